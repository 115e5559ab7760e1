package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"libraryapi/internal/book"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	tableCheckouts  = "checkouts"
	colCheckoutID   = "checkout_id"
	colBookID       = "book_id"
	colUserID       = "user_id"
	colCheckedOutAt = "checked_out_at"
	colReturnedAt   = "returned_at"
	colUpdatedAt    = "updated_at"

	// openCheckoutIndex is the partial unique index allowing one open
	// checkout per book.
	openCheckoutIndex = "checkouts_open_book_idx"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

const (
	dialectPostgres     = "postgres"
	defaultQueryTimeout = 3 * time.Second
)

var checkoutColumns = []any{
	colCheckoutID, colBookID, colUserID, colCheckedOutAt, colReturnedAt, colUpdatedAt,
}

type PostgresRepo struct {
	db      book.DBTX
	timeout time.Duration
	logger  *slog.Logger
}

func NewPostgresRepo(db book.DBTX, timeout time.Duration, logger *slog.Logger) *PostgresRepo {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &PostgresRepo{db: db, timeout: timeout, logger: logger}
}

// Create opens a checkout. The foreign key rejects unknown books and
// openCheckoutIndex rejects a book that is already out.
func (r *PostgresRepo) Create(ctx context.Context, event CreateCheckout) (Checkout, error) {
	query, args, err := buildInsertQuery(event)
	if err != nil {
		return Checkout{}, err
	}
	return r.queryOne(ctx, "create checkout", query, args)
}

// MarkReturned stamps returned_at on an open checkout held by the returner.
// updated_at is left to checkouts_updated_at_trigger.
func (r *PostgresRepo) MarkReturned(ctx context.Context, event ReturnCheckout) (Checkout, error) {
	query, args, err := buildReturnQuery(event)
	if err != nil {
		return Checkout{}, err
	}
	return r.queryOne(ctx, "return checkout", query, args)
}

func (r *PostgresRepo) Current(ctx context.Context, bookID uuid.UUID) (Checkout, error) {
	query, args, err := dialectBuilder().
		From(tableCheckouts).
		Select(checkoutColumns...).
		Where(goqu.Ex{
			colBookID:     bookID.String(),
			colReturnedAt: nil,
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Checkout{}, fmt.Errorf("build current checkout query: %w", err)
	}
	return r.queryOne(ctx, "current checkout", query, args)
}

// ListByBook returns the lending history of a book, newest first.
func (r *PostgresRepo) ListByBook(ctx context.Context, bookID uuid.UUID) ([]Checkout, error) {
	query, args, err := buildHistoryQuery(bookID)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		r.logQuery("list checkouts", query, start, err)
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []Checkout{}
	for rows.Next() {
		c, scanErr := scanCheckout(rows)
		if scanErr != nil {
			err = fmt.Errorf("scan checkout row: %w", scanErr)
			break
		}
		out = append(out, c)
	}
	if err == nil {
		err = rows.Err()
	}
	r.logQuery("list checkouts", query, start, err)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (r *PostgresRepo) queryOne(ctx context.Context, action, query string, args []any) (Checkout, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	c, err := scanCheckout(r.db.QueryRow(timeoutCtx, query, args...))
	r.logQuery(action, query, start, err)
	if err != nil {
		return Checkout{}, mapError(err)
	}
	return c, nil
}

func dialectBuilder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

func buildInsertQuery(event CreateCheckout) (string, []any, error) {
	query, args, err := dialectBuilder().
		Insert(tableCheckouts).
		Rows(goqu.Record{
			colBookID: event.BookID.String(),
			colUserID: event.CheckedOutBy.String(),
		}).
		Returning(checkoutColumns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build insert checkout query: %w", err)
	}
	return query, args, nil
}

func buildReturnQuery(event ReturnCheckout) (string, []any, error) {
	query, args, err := dialectBuilder().
		Update(tableCheckouts).
		Set(goqu.Record{colReturnedAt: goqu.L("CURRENT_TIMESTAMP(3)")}).
		Where(goqu.Ex{
			colCheckoutID: event.CheckoutID.String(),
			colBookID:     event.BookID.String(),
			colUserID:     event.ReturnedBy.String(),
			colReturnedAt: nil,
		}).
		Returning(checkoutColumns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build return checkout query: %w", err)
	}
	return query, args, nil
}

func buildHistoryQuery(bookID uuid.UUID) (string, []any, error) {
	query, args, err := dialectBuilder().
		From(tableCheckouts).
		Select(checkoutColumns...).
		Where(goqu.Ex{colBookID: bookID.String()}).
		Order(goqu.I(colCheckedOutAt).Desc(), goqu.I(colCheckoutID).Desc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build checkout history query: %w", err)
	}
	return query, args, nil
}

func scanCheckout(row pgx.Row) (Checkout, error) {
	var c Checkout
	err := row.Scan(&c.ID, &c.BookID, &c.CheckedOutBy, &c.CheckedOutAt, &c.ReturnedAt, &c.UpdatedAt)
	return c, err
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgForeignKeyViolation:
			return ErrBookNotFound
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == openCheckoutIndex:
			return ErrAlreadyCheckedOut
		}
	}
	return err
}

func (r *PostgresRepo) logQuery(action, query string, start time.Time, err error) {
	if r.logger == nil {
		return
	}
	duration := math.Round(float64(time.Since(start).Nanoseconds())/1e6*1000) / 1000
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("sql failed: "+action, "error", err.Error(), "duration_ms", duration, "query", query)
		return
	}
	r.logger.Debug("sql executed: "+action, "duration_ms", duration, "query", query)
}
