package checkout

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Checkout lends a book to a user.
func (s *Service) Checkout(ctx context.Context, event CreateCheckout) (Checkout, error) {
	return s.repo.Create(ctx, event)
}

// Return closes the open checkout. Returning someone else's checkout, or one
// already returned, reports ErrNotFound.
func (s *Service) Return(ctx context.Context, event ReturnCheckout) (Checkout, error) {
	return s.repo.MarkReturned(ctx, event)
}

func (s *Service) Current(ctx context.Context, bookID uuid.UUID) (Checkout, error) {
	return s.repo.Current(ctx, bookID)
}

func (s *Service) History(ctx context.Context, bookID uuid.UUID) ([]Checkout, error) {
	return s.repo.ListByBook(ctx, bookID)
}
