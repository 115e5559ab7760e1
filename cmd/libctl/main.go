// Command libctl is the admin CLI for the library books service: schema
// migrations, sample data and development tokens.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"libraryapi/internal/config"
	"libraryapi/internal/platform/database"
	"libraryapi/internal/platform/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "libctl",
		Short:        "Admin CLI for the library books service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	rootCmd.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newTokenCmd(a),
	)
	return rootCmd
}

func (a *app) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := database.Open(ctx, a.cfg.Database, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return pool, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
