// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/auth/memory"
	authpg "github.com/gatewarden/gatewarden/internal/auth/postgres"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/httpapi"
	"github.com/gatewarden/gatewarden/internal/logging"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth API server",
		Long: `Start the HTTP API server exposing register, sign-in, sign-out and
token validation, plus a metrics/health endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, dev)
		},
	}

	cmd.Flags().String("listen-addr", config.DefaultListenAddr, "API listen address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format (json or text)")
	cmd.Flags().Duration("token-ttl", config.DefaultTokenTTL, "session token lifetime")
	cmd.Flags().Duration("store-timeout", config.DefaultStoreTimeout, "per-request store timeout")
	cmd.Flags().Int("hash-time", 0, "argon2id iterations (0 = default)")
	cmd.Flags().Int("hash-memory", 0, "argon2id memory in KiB (0 = default)")
	cmd.Flags().Int("hash-threads", 0, "argon2id parallelism (0 = default)")
	cmd.Flags().BoolVar(&dev, "dev", false, "run with in-memory stores (no database)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, dev bool) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("gatewarden", version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting auth service",
		"listen_addr", cfg.ListenAddr,
		"token_ttl", cfg.TokenTTL.String(),
		"dev", dev,
	)

	var identities auth.IdentityRepository
	var sessions auth.SessionRepository
	if dev {
		identities = memory.NewIdentityRepository()
		sessions = memory.NewSessionRepository()
		logger.Warn("running with in-memory stores, all state is lost on exit")
	} else {
		if cfg.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").
				Errorf("%s environment variable is required", config.EnvDatabaseURL)
		}
		pool, connErr := store.Connect(ctx, cfg.DatabaseURL)
		if connErr != nil {
			return connErr
		}
		defer pool.Close()
		logger.Info("connected to database")

		identities = authpg.NewIdentityRepository(pool)
		sessions = authpg.NewSessionRepository(pool)
	}

	signer, err := auth.NewHMACSigner(cfg.SigningSecret,
		auth.WithVerificationKeys(cfg.SecondaryKeys...),
		auth.WithSignerLogger(logger),
	)
	if err != nil {
		return err
	}

	hasher := auth.NewArgon2idHasher(auth.Argon2Params{
		Time:    cfg.HashTime,
		Memory:  cfg.HashMemory,
		Threads: cfg.HashThreads,
	})

	service, err := auth.NewService(identities, sessions, hasher, signer,
		auth.WithTokenTTL(cfg.TokenTTL),
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	var obsErrCh <-chan error
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool { return true })
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return err
		}
		metrics = obsServer.Metrics()
	}

	apiOpts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithStoreTimeout(cfg.StoreTimeout),
	}
	if metrics != nil {
		apiOpts = append(apiOpts, httpapi.WithMetrics(metrics))
	}
	apiServer, err := httpapi.NewServer(cfg.ListenAddr, service, apiOpts...)
	if err != nil {
		return err
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case err = <-apiErrCh:
		if err != nil {
			logger.Error("api server failed", "error", err)
		}
	case err = <-obsErrCh:
		if err != nil {
			logger.Error("observability server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if stopErr := apiServer.Stop(shutdownCtx); stopErr != nil {
		logger.Error("api server shutdown failed", "error", stopErr)
	}
	if obsServer != nil {
		if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
			logger.Error("observability server shutdown failed", "error", stopErr)
		}
	}

	logger.Info("auth service stopped")
	return err
}
