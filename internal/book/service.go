package book

import (
	"context"

	"libraryapi/internal/httpx"

	"github.com/google/uuid"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new book owned by event.OwnedBy.
func (s *Service) Create(ctx context.Context, event CreateBook) (Book, error) {
	details := httpx.ValidateStruct(event)
	if event.OwnedBy == uuid.Nil {
		details = append(details, httpx.ErrorDetail{Field: "owned_by", Message: "owned_by is required"})
	}
	if len(details) > 0 {
		return Book{}, &ValidationError{Details: details}
	}
	return s.repo.Create(ctx, event)
}

// List returns a page of books, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) (PaginatedList, error) {
	return s.repo.List(ctx, opts.Normalize())
}

// Get returns a book by its ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces a book's descriptive fields. Only the owner may update.
func (s *Service) Update(ctx context.Context, event UpdateBook) (Book, error) {
	if details := httpx.ValidateStruct(event); len(details) > 0 {
		return Book{}, &ValidationError{Details: details}
	}
	return s.repo.Update(ctx, event)
}

// Delete removes a book. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, event DeleteBook) error {
	return s.repo.Delete(ctx, event)
}
