package book

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	Create(ctx context.Context, event CreateBook) (Book, error)
	List(ctx context.Context, opts ListOptions) (PaginatedList, error)
	GetByID(ctx context.Context, id uuid.UUID) (Book, error)
	Update(ctx context.Context, event UpdateBook) (Book, error)
	Delete(ctx context.Context, event DeleteBook) error
}
