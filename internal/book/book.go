package book

import (
	"errors"
	"strings"
	"time"

	"libraryapi/internal/httpx"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a book does not exist or is not owned by
	// the requesting user.
	ErrNotFound = errors.New("book not found")

	// ErrConstraint is returned when the database rejects a write, e.g. a
	// not-null violation.
	ErrConstraint = errors.New("book violates a table constraint")

	ErrValidation = errors.New("invalid book")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Book is a row of the books table. CreatedAt and UpdatedAt are owned by the
// database: column defaults on insert, books_updated_at_trigger on update.
type Book struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	ISBN        string    `json:"isbn"`
	Description string    `json:"description"`
	OwnedBy     uuid.UUID `json:"owned_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateBook carries the caller-supplied columns of a new book.
type CreateBook struct {
	Title       string    `json:"title" validate:"notblank,max=255"`
	Author      string    `json:"author" validate:"notblank,max=255"`
	ISBN        string    `json:"isbn" validate:"notblank,max=255"`
	Description string    `json:"description" validate:"notblank,max=1024"`
	OwnedBy     uuid.UUID `json:"-"`
}

// UpdateBook replaces the descriptive columns of a book owned by RequestedBy.
type UpdateBook struct {
	BookID      uuid.UUID `json:"-"`
	Title       string    `json:"title" validate:"notblank,max=255"`
	Author      string    `json:"author" validate:"notblank,max=255"`
	ISBN        string    `json:"isbn" validate:"notblank,max=255"`
	Description string    `json:"description" validate:"notblank,max=1024"`
	RequestedBy uuid.UUID `json:"-"`
}

type DeleteBook struct {
	BookID      uuid.UUID
	RequestedBy uuid.UUID
}

type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize applies the default page size and clamps out-of-range values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type PaginatedList struct {
	Total  int64  `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Items  []Book `json:"items"`
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Details []httpx.ErrorDetail
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		msgs = append(msgs, d.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
