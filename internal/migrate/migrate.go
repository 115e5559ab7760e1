// Package migrate applies the schema in db/migrations with goose.
//
// Migrations are embedded in the binary by default. WithDir switches to a
// directory on disk, which is what `libctl migrate create` writes into.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"libraryapi/db"

	"github.com/pressly/goose/v3"
)

const dialect = "postgres"

// lockKey serializes migration runs across processes sharing a database.
const lockKey int64 = 7_310_245_001

// ErrNameRequired is returned by Create when no migration name is given.
var ErrNameRequired = errors.New("migration name is required")

// goose keeps its dialect, base FS and logger in package globals.
var gooseMu sync.Mutex

type Migrator struct {
	db     *sql.DB
	fsys   fs.FS
	dir    string
	logger *slog.Logger
}

type Option func(*Migrator)

// WithDir reads migrations from dir on the local filesystem instead of the
// embedded set.
func WithDir(dir string) Option {
	return func(m *Migrator) {
		if dir == "" {
			return
		}
		m.fsys = os.DirFS(dir)
		m.dir = "."
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func New(sqlDB *sql.DB, opts ...Option) *Migrator {
	m := &Migrator{
		db:     sqlDB,
		fsys:   db.Migrations,
		dir:    db.MigrationsDir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// run configures goose for this migrator and invokes fn while holding the
// package lock.
func (m *Migrator) run(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(m.fsys)
	goose.SetLogger(&gooseLogger{logger: m.logger})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}

// locked runs fn under a session-level advisory lock. goose runs on other
// connections of m.db, so the pool needs at least two.
func (m *Migrator) locked(ctx context.Context, fn func() error) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", lockKey); err != nil {
			m.logger.Warn("release migration lock", "error", err)
		}
	}()

	return m.run(fn)
}

func (m *Migrator) Up(ctx context.Context) error {
	return m.locked(ctx, func() error {
		if err := goose.UpContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

func (m *Migrator) UpByOne(ctx context.Context) error {
	return m.locked(ctx, func() error {
		if err := goose.UpByOneContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate up-by-one: %w", err)
		}
		return nil
	})
}

func (m *Migrator) Down(ctx context.Context) error {
	return m.locked(ctx, func() error {
		if err := goose.DownContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	})
}

func (m *Migrator) Redo(ctx context.Context) error {
	return m.locked(ctx, func() error {
		if err := goose.RedoContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate redo: %w", err)
		}
		return nil
	})
}

// Reset rolls back every applied migration.
func (m *Migrator) Reset(ctx context.Context) error {
	return m.locked(ctx, func() error {
		if err := goose.ResetContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate reset: %w", err)
		}
		return nil
	})
}

// Status logs the applied state of every migration.
func (m *Migrator) Status(ctx context.Context) error {
	return m.run(func() error {
		if err := goose.StatusContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate status: %w", err)
		}
		return nil
	})
}

// Version returns the current schema version recorded by goose.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(func() error {
		v, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// Collect parses every migration without touching the database.
func (m *Migrator) Collect() (goose.Migrations, error) {
	var migrations goose.Migrations
	err := m.run(func() error {
		ms, err := goose.CollectMigrations(m.dir, 0, goose.MaxVersion)
		if err != nil {
			return fmt.Errorf("collect migrations: %w", err)
		}
		migrations = ms
		return nil
	})
	return migrations, err
}

// Create scaffolds a new SQL migration in dir on the local filesystem.
func Create(dir, name string) error {
	if name == "" {
		return ErrNameRequired
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(nil)
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("create migration %q: %w", name, err)
	}
	return nil
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(strings.TrimRight(format, "\n"), v...), "component", "goose")
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(strings.TrimRight(format, "\n"), v...), "component", "goose")
	os.Exit(1)
}
