package checkout

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=checkout

type Repository interface {
	Create(ctx context.Context, event CreateCheckout) (Checkout, error)
	MarkReturned(ctx context.Context, event ReturnCheckout) (Checkout, error)
	Current(ctx context.Context, bookID uuid.UUID) (Checkout, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]Checkout, error)
}
