package book

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"libraryapi/internal/testutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createForTest stores a book through the repository and removes it when the
// test ends.
func createForTest(t *testing.T, repo *PostgresRepo, title string) Book {
	t.Helper()

	b, err := repo.Create(context.Background(), CreateBook{
		Title:       title,
		Author:      "Test Author",
		ISBN:        "Test ISBN",
		Description: "Test Description",
		OwnedBy:     ownerID,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repo.Delete(context.Background(), DeleteBook{BookID: b.ID, RequestedBy: ownerID})
	})
	return b
}

func TestPostgresRepo_CreateUsesColumnDefaults(t *testing.T) {
	pool := testutil.MigratedPool(t)
	repo := NewPostgresRepo(pool, 0, nil)

	b := createForTest(t, repo, "Defaults")

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, ownerID, b.OwnedBy)
	assert.False(t, b.CreatedAt.IsZero())
	assert.True(t, b.CreatedAt.Equal(b.UpdatedAt), "created_at %v updated_at %v", b.CreatedAt, b.UpdatedAt)
	assert.WithinDuration(t, time.Now(), b.CreatedAt, time.Minute)
}

func TestPostgresRepo_UpdateStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	pool := testutil.MigratedPool(t)
	repo := NewPostgresRepo(pool, 0, nil)

	created := createForTest(t, repo, "Before")
	time.Sleep(20 * time.Millisecond)

	updated, err := repo.Update(ctx, UpdateBook{
		BookID:      created.ID,
		Title:       "After",
		Author:      created.Author,
		ISBN:        created.ISBN,
		Description: created.Description,
		RequestedBy: ownerID,
	})
	require.NoError(t, err)

	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.OwnedBy, updated.OwnedBy)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestPostgresRepo_TriggerOverridesSuppliedUpdatedAt(t *testing.T) {
	ctx := context.Background()
	pool := testutil.MigratedPool(t)
	repo := NewPostgresRepo(pool, 0, nil)

	created := createForTest(t, repo, "Pinned")

	_, err := pool.Exec(ctx,
		`UPDATE books SET updated_at = '2000-01-01T00:00:00Z' WHERE book_id = $1`, created.ID.String())
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestPostgresRepo_DeleteAndInsertDoNotFireTrigger(t *testing.T) {
	ctx := context.Background()
	pool := testutil.MigratedPool(t)

	var createdAt, updatedAt time.Time
	id := testutil.InsertBookRow(t, pool, "Insert only", testutil.TestOwnerID)
	err := pool.QueryRow(ctx,
		`SELECT created_at, updated_at FROM books WHERE book_id = $1`, id).Scan(&createdAt, &updatedAt)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(updatedAt))

	tag, err := pool.Exec(ctx, `DELETE FROM books WHERE book_id = $1`, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tag.RowsAffected())
}

func TestPostgresRepo_NotNullViolation(t *testing.T) {
	ctx := context.Background()
	pool := testutil.MigratedPool(t)

	row := map[string]any{
		colTitle:       "t",
		colAuthor:      "a",
		colISBN:        "i",
		colDescription: "d",
		colUserID:      testutil.TestOwnerID,
	}

	for _, column := range []string{colTitle, colAuthor, colISBN, colDescription, colUserID} {
		t.Run(column, func(t *testing.T) {
			values := make([]any, 0, len(row))
			for _, c := range []string{colTitle, colAuthor, colISBN, colDescription, colUserID} {
				if c == column {
					values = append(values, nil)
					continue
				}
				values = append(values, row[c])
			}

			_, err := pool.Exec(ctx, `
				INSERT INTO books (title, author, isbn, description, user_id)
				VALUES ($1, $2, $3, $4, $5::uuid)`, values...)
			require.Error(t, err)

			var pgErr *pgconn.PgError
			require.True(t, errors.As(err, &pgErr))
			assert.Equal(t, pgNotNullViolation, pgErr.Code)
			assert.Equal(t, column, pgErr.ColumnName)
			assert.ErrorIs(t, mapError(err), ErrConstraint)
		})
	}
}

func TestPostgresRepo_OwnerScopedWrites(t *testing.T) {
	ctx := context.Background()
	pool := testutil.MigratedPool(t)
	repo := NewPostgresRepo(pool, 0, nil)

	created := createForTest(t, repo, "Owned")

	_, err := repo.Update(ctx, UpdateBook{
		BookID: created.ID, Title: "x", Author: "x", ISBN: "x", Description: "x", RequestedBy: otherID,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Delete(ctx, DeleteBook{BookID: created.ID, RequestedBy: otherID})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, DeleteBook{BookID: created.ID, RequestedBy: ownerID}))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepo_ListPagination(t *testing.T) {
	ctx := context.Background()
	pool := testutil.MigratedPool(t)

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `DELETE FROM books`)
	require.NoError(t, err)

	repo := NewPostgresRepo(tx, 0, nil)
	var ids []string
	for _, title := range []string{"One", "Two", "Three"} {
		b, err := repo.Create(ctx, CreateBook{
			Title: title, Author: "a", ISBN: "i", Description: "d", OwnedBy: ownerID,
		})
		require.NoError(t, err)
		ids = append(ids, b.ID.String())
	}
	// One transaction shares one created_at, so book_id breaks the tie.
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	page, err := repo.List(ctx, ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[0], page.Items[0].ID.String())
	assert.Equal(t, ids[1], page.Items[1].ID.String())

	page, err = repo.List(ctx, ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[2], page.Items[0].ID.String())

	page, err = repo.List(ctx, ListOptions{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestPostgresRepo_RollbackRevertsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	pool := testutil.MigratedPool(t)
	repo := NewPostgresRepo(pool, 0, nil)

	created := createForTest(t, repo, "Rolled back")
	time.Sleep(20 * time.Millisecond)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	updated, err := NewPostgresRepo(tx, 0, nil).Update(ctx, UpdateBook{
		BookID: created.ID, Title: "Changed", Author: "a", ISBN: "i", Description: "d", RequestedBy: ownerID,
	})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	require.NoError(t, tx.Rollback(ctx))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rolled back", got.Title)
	assert.True(t, got.UpdatedAt.Equal(created.UpdatedAt))
}
