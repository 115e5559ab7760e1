package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	tableBooks     = "books"
	colBookID      = "book_id"
	colTitle       = "title"
	colAuthor      = "author"
	colISBN        = "isbn"
	colDescription = "description"
	colUserID      = "user_id"
	colCreatedAt   = "created_at"
	colUpdatedAt   = "updated_at"
	aliasTotal     = "total"
)

// Postgres error codes mapped to ErrConstraint.
const (
	pgNotNullViolation = "23502"
	pgCheckViolation   = "23514"
	pgStringTooLong    = "22001"
	pgInvalidEncoding  = "22021"
)

const (
	logMsgSQLExecuted = "sql executed: "
	logMsgSQLFailed   = "sql failed: "
	logAttrDurationMS = "duration_ms"
	logAttrQuery      = "query"
	logAttrError      = "error"
)

const (
	dialectPostgres     = "postgres"
	defaultQueryTimeout = 3 * time.Second
)

var bookColumns = []any{
	colBookID, colTitle, colAuthor, colISBN, colDescription, colUserID, colCreatedAt, colUpdatedAt,
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx, so a repository
// can run inside a caller-owned transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepo struct {
	db      DBTX
	timeout time.Duration
	logger  *slog.Logger
}

func NewPostgresRepo(db DBTX, timeout time.Duration, logger *slog.Logger) *PostgresRepo {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &PostgresRepo{db: db, timeout: timeout, logger: logger}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Create inserts the caller-owned columns only; book_id, created_at and
// updated_at come from the column defaults.
func (r *PostgresRepo) Create(ctx context.Context, event CreateBook) (Book, error) {
	query, args, err := buildInsertQuery(event)
	if err != nil {
		return Book{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	r.logQuery("create", query, start, err)
	if err != nil {
		return Book{}, mapError(err)
	}
	return b, nil
}

// List returns one page ordered newest first. Total is read off the first
// row, so a page past the end reports Total == 0.
func (r *PostgresRepo) List(ctx context.Context, opts ListOptions) (PaginatedList, error) {
	opts = opts.Normalize()
	query, args, err := buildListQuery(opts)
	if err != nil {
		return PaginatedList{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		r.logQuery("list", query, start, err)
		return PaginatedList{}, mapError(err)
	}
	defer rows.Close()

	out, err := scanPage(rows, opts)
	r.logQuery("list", query, start, err)
	if err != nil {
		return PaginatedList{}, mapError(err)
	}
	return out, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id uuid.UUID) (Book, error) {
	query, args, err := dialectBuilder().
		From(tableBooks).
		Select(bookColumns...).
		Where(goqu.Ex{colBookID: id.String()}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Book{}, fmt.Errorf("build get query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	r.logQuery("get", query, start, err)
	if err != nil {
		return Book{}, mapError(err)
	}
	return b, nil
}

// Update rewrites the descriptive columns of a book owned by the requester.
// updated_at is left to books_updated_at_trigger.
func (r *PostgresRepo) Update(ctx context.Context, event UpdateBook) (Book, error) {
	query, args, err := buildUpdateQuery(event)
	if err != nil {
		return Book{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	r.logQuery("update", query, start, err)
	if err != nil {
		return Book{}, mapError(err)
	}
	return b, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, event DeleteBook) error {
	query, args, err := dialectBuilder().
		Delete(tableBooks).
		Where(goqu.Ex{
			colBookID: event.BookID.String(),
			colUserID: event.RequestedBy.String(),
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	tag, err := r.db.Exec(timeoutCtx, query, args...)
	r.logQuery("delete", query, start, err)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() < 1 {
		return ErrNotFound
	}
	return nil
}

func dialectBuilder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

func buildInsertQuery(event CreateBook) (string, []any, error) {
	query, args, err := dialectBuilder().
		Insert(tableBooks).
		Rows(goqu.Record{
			colTitle:       event.Title,
			colAuthor:      event.Author,
			colISBN:        event.ISBN,
			colDescription: event.Description,
			colUserID:      event.OwnedBy.String(),
		}).
		Returning(bookColumns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build insert query: %w", err)
	}
	return query, args, nil
}

func buildListQuery(opts ListOptions) (string, []any, error) {
	columns := append(append([]any{}, bookColumns...), goqu.L("COUNT(*) OVER()").As(aliasTotal))

	query, args, err := dialectBuilder().
		From(tableBooks).
		Select(columns...).
		Order(goqu.I(colCreatedAt).Desc(), goqu.I(colBookID).Desc()).
		Limit(uint(opts.Limit)).
		Offset(uint(opts.Offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build list query: %w", err)
	}
	return query, args, nil
}

func buildUpdateQuery(event UpdateBook) (string, []any, error) {
	query, args, err := dialectBuilder().
		Update(tableBooks).
		Set(goqu.Record{
			colTitle:       event.Title,
			colAuthor:      event.Author,
			colISBN:        event.ISBN,
			colDescription: event.Description,
		}).
		Where(goqu.Ex{
			colBookID: event.BookID.String(),
			colUserID: event.RequestedBy.String(),
		}).
		Returning(bookColumns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build update query: %w", err)
	}
	return query, args, nil
}

func scanPage(rows pgx.Rows, opts ListOptions) (PaginatedList, error) {
	out := PaginatedList{Limit: opts.Limit, Offset: opts.Offset, Items: []Book{}}
	for rows.Next() {
		var b Book
		var total int64
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.OwnedBy, &b.CreatedAt, &b.UpdatedAt,
			&total,
		); err != nil {
			return PaginatedList{}, fmt.Errorf("scan book row: %w", err)
		}
		if len(out.Items) == 0 {
			out.Total = total
		}
		out.Items = append(out.Items, b)
	}
	if err := rows.Err(); err != nil {
		return PaginatedList{}, err
	}
	return out, nil
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.OwnedBy, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// mapError translates driver errors into the package's sentinel errors.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgNotNullViolation, pgCheckViolation, pgStringTooLong, pgInvalidEncoding:
			return fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
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
		r.logger.Error(logMsgSQLFailed+action, logAttrError, err.Error(), logAttrDurationMS, duration, logAttrQuery, query)
		return
	}
	r.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, duration, logAttrQuery, query)
}
