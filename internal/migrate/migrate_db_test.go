package migrate_test

import (
	"context"
	"testing"

	"libraryapi/internal/migrate"
	"libraryapi/internal/testutil"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUp_IsIdempotent(t *testing.T) {
	pool := testutil.OpenTestPool(t)
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	ctx := context.Background()
	m := migrate.New(sqlDB)

	require.NoError(t, m.Up(ctx))
	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(1))

	require.NoError(t, m.Up(ctx))
	again, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, version, again)

	var tables int
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = 'books'`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 1, tables)
}

func TestUp_InstallsTriggers(t *testing.T) {
	pool := testutil.MigratedPool(t)

	tests := []struct {
		table   string
		trigger string
	}{
		{"books", "books_updated_at_trigger"},
		{"checkouts", "checkouts_updated_at_trigger"},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			var fn, timing, event string
			err := pool.QueryRow(context.Background(), `
				SELECT t.action_statement, t.action_timing, t.event_manipulation
				FROM information_schema.triggers t
				WHERE t.event_object_table = $1 AND t.trigger_name = $2`, tt.table, tt.trigger).
				Scan(&fn, &timing, &event)
			require.NoError(t, err)

			assert.Contains(t, fn, "set_updated_at()")
			assert.Equal(t, "BEFORE", timing)
			assert.Equal(t, "UPDATE", event)
		})
	}
}

func TestCreateTableStatement_ReapplyIsNoop(t *testing.T) {
	pool := testutil.MigratedPool(t)

	_, err := pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS books (
			book_id UUID PRIMARY KEY DEFAULT gen_random_uuid()
		)`)
	assert.NoError(t, err)
}
