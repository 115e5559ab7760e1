package checkout

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInsertQuery(t *testing.T) {
	query, args, err := buildInsertQuery(CreateCheckout{BookID: bookID, CheckedOutBy: borrowerID})

	require.NoError(t, err)
	assert.Contains(t, query, `INSERT INTO "checkouts" ("book_id", "user_id")`)
	assert.Contains(t, query, `RETURNING "checkout_id"`)
	assert.Equal(t, []any{bookID.String(), borrowerID.String()}, args)
}

func TestBuildReturnQuery(t *testing.T) {
	query, args, err := buildReturnQuery(ReturnCheckout{CheckoutID: checkoutID, BookID: bookID, ReturnedBy: borrowerID})

	require.NoError(t, err)
	assert.Contains(t, query, `SET "returned_at"=CURRENT_TIMESTAMP(3)`)
	assert.Contains(t, query, `("returned_at" IS NULL)`)
	assert.Contains(t, query, `("user_id" = $`)
	assert.NotContains(t, query, `"updated_at"=`)
	assert.ElementsMatch(t, []any{checkoutID.String(), bookID.String(), borrowerID.String()}, args)
}

func TestBuildHistoryQuery(t *testing.T) {
	query, args, err := buildHistoryQuery(bookID)

	require.NoError(t, err)
	assert.Contains(t, query, `ORDER BY "checked_out_at" DESC, "checkout_id" DESC`)
	assert.Equal(t, []any{bookID.String()}, args)
}

func TestMapError(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"unknown book", &pgconn.PgError{Code: pgForeignKeyViolation}, ErrBookNotFound},
		{"open checkout exists", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: openCheckoutIndex}, ErrAlreadyCheckedOut},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgForeignKeyViolation}), ErrBookNotFound},
		{"other unique index", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "checkouts_pkey"}, nil},
		{"passthrough", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if tt.want == nil {
				assert.Same(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestNewPostgresRepo_DefaultTimeout(t *testing.T) {
	assert.Equal(t, defaultQueryTimeout, NewPostgresRepo(nil, 0, nil).timeout)
}
