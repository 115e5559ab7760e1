package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"libraryapi/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoMigrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file lives in internal/migrate/, so repo root is ../..
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", ".."))
	return filepath.Join(repoRoot, "db", "migrations")
}

func TestCollect_EmbeddedMigrations(t *testing.T) {
	migrations, err := New(nil).Collect()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, int64(1), migrations[0].Version)
}

func TestCollect_WithDir(t *testing.T) {
	migrations, err := New(nil, WithDir(repoMigrationsDir(t))).Collect()
	require.NoError(t, err)
	assert.NotEmpty(t, migrations)
}

func TestEmbeddedMigrations_MatchDisk(t *testing.T) {
	dir := repoMigrationsDir(t)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		onDisk, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		embedded, err := fs.ReadFile(db.Migrations, db.MigrationsDir+"/"+e.Name())
		require.NoError(t, err, "%s is not embedded", e.Name())
		assert.Equal(t, string(onDisk), string(embedded))
	}
}

func TestSQLMigrations_HaveGooseDirectives(t *testing.T) {
	entries, err := fs.ReadDir(db.Migrations, db.MigrationsDir)
	require.NoError(t, err)

	for _, e := range entries {
		b, err := fs.ReadFile(db.Migrations, db.MigrationsDir+"/"+e.Name())
		require.NoError(t, err)
		s := string(b)
		if !strings.Contains(s, "-- +goose Up") {
			t.Fatalf("%s missing '-- +goose Up'", e.Name())
		}
		if !strings.Contains(s, "-- +goose Down") {
			t.Fatalf("%s missing '-- +goose Down'", e.Name())
		}
		if strings.Count(s, "-- +goose StatementBegin") != strings.Count(s, "-- +goose StatementEnd") {
			t.Fatalf("%s has unbalanced StatementBegin/StatementEnd", e.Name())
		}
	}
}

func TestBooksMigration_Surface(t *testing.T) {
	b, err := fs.ReadFile(db.Migrations, db.MigrationsDir+"/00001_create_books.sql")
	require.NoError(t, err)
	s := string(b)

	up, down, found := strings.Cut(s, "-- +goose Down")
	require.True(t, found)

	assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS books")
	assert.Contains(t, up, "book_id     UUID PRIMARY KEY DEFAULT gen_random_uuid()")
	assert.Contains(t, up, "created_at  TIMESTAMP(3) WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP(3)")
	assert.Contains(t, up, "updated_at  TIMESTAMP(3) WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP(3)")
	assert.Contains(t, up, "CREATE OR REPLACE FUNCTION set_updated_at()")
	assert.Contains(t, up, "CREATE TRIGGER books_updated_at_trigger")
	assert.Contains(t, up, "BEFORE UPDATE ON books")
	assert.NotContains(t, up, "REFERENCES", "user_id must not carry a foreign key")

	assert.Contains(t, down, "DROP TRIGGER IF EXISTS books_updated_at_trigger ON books")
	assert.Contains(t, down, "DROP FUNCTION IF EXISTS set_updated_at()")
	assert.Contains(t, down, "DROP TABLE IF EXISTS books")
}

func TestCreate_WritesSQLMigration(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Create(dir, "add_loans"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_add_loans.sql"), entries[0].Name())

	b, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(b), "-- +goose Up")
}

func TestCreate_RequiresName(t *testing.T) {
	err := Create(t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestCheckoutsMigration_Surface(t *testing.T) {
	b, err := fs.ReadFile(db.Migrations, db.MigrationsDir+"/00002_create_checkouts.sql")
	require.NoError(t, err)

	up, down, found := strings.Cut(string(b), "-- +goose Down")
	require.True(t, found)

	assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS checkouts")
	assert.Contains(t, up, "REFERENCES books (book_id) ON DELETE CASCADE")
	assert.Contains(t, up, "ON checkouts (book_id) WHERE returned_at IS NULL")
	assert.Contains(t, up, "EXECUTE FUNCTION set_updated_at()")
	assert.NotContains(t, up, "CREATE OR REPLACE FUNCTION", "the trigger function belongs to the books migration")

	assert.Contains(t, down, "DROP TABLE IF EXISTS checkouts")
	assert.NotContains(t, down, "DROP FUNCTION")
}

func TestCollect_OrdersVersions(t *testing.T) {
	migrations, err := New(nil).Collect()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, int64(2), migrations[1].Version)
}
