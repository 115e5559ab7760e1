package main

import (
	"fmt"
	"time"

	"libraryapi/internal/auth"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed development token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			if role != auth.RoleUser && role != auth.RoleAdmin {
				return fmt.Errorf("--role must be %s or %s", auth.RoleUser, auth.RoleAdmin)
			}

			token, jti, err := auth.GenerateToken(a.cfg.JWTSecret, userID, role, ttl)
			if err != nil {
				return err
			}
			a.logger.Debug("token issued", "user_id", userID, "role", role, "jti", jti, "ttl", ttl)
			printf(cmd.OutOrStdout(), "%s\n", token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user id (UUID)")
	cmd.Flags().StringVar(&role, "role", auth.RoleUser, "token role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
