// Package checkout lends books to users and records their return.
package checkout

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no open checkout matches the book, the
	// checkout id and the borrower.
	ErrNotFound = errors.New("checkout not found")

	ErrBookNotFound      = errors.New("book not found")
	ErrAlreadyCheckedOut = errors.New("book is already checked out")
)

// Checkout is one loan of a book. ReturnedAt is nil while the book is out.
type Checkout struct {
	ID           uuid.UUID  `json:"id"`
	BookID       uuid.UUID  `json:"book_id"`
	CheckedOutBy uuid.UUID  `json:"checked_out_by"`
	CheckedOutAt time.Time  `json:"checked_out_at"`
	ReturnedAt   *time.Time `json:"returned_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (c Checkout) Returned() bool {
	return c.ReturnedAt != nil
}

type CreateCheckout struct {
	BookID       uuid.UUID
	CheckedOutBy uuid.UUID
}

// ReturnCheckout closes an open checkout. Only the borrower may return it.
type ReturnCheckout struct {
	CheckoutID uuid.UUID
	BookID     uuid.UUID
	ReturnedBy uuid.UUID
}
