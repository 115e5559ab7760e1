package main

import (
	"context"

	"libraryapi/internal/migrate"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

const defaultMigrationsDir = "db/migrations"

// migrationsDir is where `migrate create` writes new files.
func migrationsDir(configured string) string {
	if configured != "" {
		return configured
	}
	return defaultMigrationsDir
}

func newMigrateCmd(a *app) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withMigrator := func(fn func(ctx context.Context, m *migrate.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := a.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			sqlDB := stdlib.OpenDBFromPool(pool)
			defer sqlDB.Close()

			return fn(ctx, migrate.New(sqlDB, migrate.WithDir(a.cfg.MigrationsDir), migrate.WithLogger(a.logger)))
		}
	}

	steps := []struct {
		use, short string
		fn         func(*migrate.Migrator, context.Context) error
	}{
		{"up", "Apply all pending migrations", (*migrate.Migrator).Up},
		{"up-by-one", "Apply the next pending migration", (*migrate.Migrator).UpByOne},
		{"down", "Roll back the latest migration", (*migrate.Migrator).Down},
		{"redo", "Roll back and re-apply the latest migration", (*migrate.Migrator).Redo},
		{"reset", "Roll back every migration", (*migrate.Migrator).Reset},
		{"status", "Print the status of every migration", (*migrate.Migrator).Status},
	}
	for _, step := range steps {
		fn := step.fn
		migrateCmd.AddCommand(&cobra.Command{
			Use:   step.use,
			Short: step.short,
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m *migrate.Migrator) error {
				return fn(m, ctx)
			}),
		})
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *migrate.Migrator) error {
				v, err := m.Version(ctx)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%d\n", v)
				return nil
			})(cmd, args)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Scaffold a new SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := migrationsDir(a.cfg.MigrationsDir)
			if err := migrate.Create(dir, args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "migration %q created in %s\n", args[0], dir)
			return nil
		},
	})

	return migrateCmd
}
