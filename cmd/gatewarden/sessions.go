// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package main

import (
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	authpg "github.com/gatewarden/gatewarden/internal/auth/postgres"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/store"
)

// NewSessionsCmd creates the sessions subcommand for session maintenance.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and maintain stored sessions",
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete sessions whose tokens have expired",
		Long: `Purge deletes session rows older than the token TTL. Tokens carry
their own expiry, so an expired session row is only a stale revocation-list
entry; purging keeps the table from growing without bound.`,
		RunE: runSessionsPurge,
	}
	cmd.AddCommand(purge)

	return cmd
}

func runSessionsPurge(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("%s environment variable is required", config.EnvDatabaseURL)
	}

	ctx := cmd.Context()
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cutoff := time.Now().Add(-cfg.TokenTTL)
	deleted, err := authpg.NewSessionRepository(pool).DeleteExpired(ctx, cutoff)
	if err != nil {
		return err
	}

	cmd.Printf("purged %d expired sessions (issued before %s)\n",
		deleted, cutoff.UTC().Format(time.RFC3339))
	return nil
}
