// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/signet-auth/signet/internal/auth"
	"github.com/signet-auth/signet/internal/auth/memory"
	authpg "github.com/signet-auth/signet/internal/auth/postgres"
	"github.com/signet-auth/signet/internal/config"
	"github.com/signet-auth/signet/internal/httpapi"
	"github.com/signet-auth/signet/internal/logging"
	"github.com/signet-auth/signet/internal/observability"
	"github.com/signet-auth/signet/internal/store"
)

// ObservabilityServer is the slice of observability.Server the serve command
// drives.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ServeDeps holds injectable dependencies for the serve command.
// A nil deps (or nil field) selects the production implementation.
type ServeDeps struct {
	// ConnectStore opens the account store. The returned func releases it.
	ConnectStore func(ctx context.Context, databaseURL string) (auth.AccountStore, func(), error)

	// NewObservability builds the metrics/health server and the recorder
	// the auth service reports outcomes to.
	NewObservability func(addr string, ready func() bool) (ObservabilityServer, auth.MetricsRecorder)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API server",
		Long: `Start the HTTP API server which registers accounts, issues bearer
tokens on login, and verifies tokens on protected requests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, nil)
		},
	}

	flags := cmd.Flags()
	flags.String("listen-addr", config.DefaultListenAddr, "API listen address")
	flags.String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("database-url", "", "PostgreSQL connection string")
	flags.String("log-format", config.DefaultLogFormat, "log format (json or text)")
	flags.Int("token-ttl-minutes", config.DefaultTokenTTLMinutes, "bearer token lifetime in minutes")
	flags.Bool("dev", false, "run with the in-memory account store (no database)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("signet", version, cfg.LogFormat)

	slog.Info("starting signet",
		"listen_addr", cfg.ListenAddr,
		"dev", cfg.Dev,
	)

	var ready atomic.Bool

	accounts, closeStore, err := openAccountStore(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher, err := auth.NewArgon2idHasher(cfg.HashParams())
	if err != nil {
		return err
	}
	codec, err := auth.NewCodec([]byte(cfg.SigningSecret), cfg.TokenTTL())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	serviceOpts := []auth.ServiceOption{}
	if cfg.MetricsAddr != "" {
		var recorder auth.MetricsRecorder
		obsServer, recorder = newObservability(deps, cfg.MetricsAddr, ready.Load)
		if recorder != nil {
			serviceOpts = append(serviceOpts, auth.WithMetrics(recorder))
		}
	}

	svc, err := auth.NewService(accounts, hasher, codec, serviceOpts...)
	if err != nil {
		return err
	}

	api, err := httpapi.NewServer(svc, httpapi.Config{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
	}, slog.Default())
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	apiErrCh, err := api.Start()
	if err != nil {
		stopServers(nil, obsServer)
		return oops.Code("SERVE_FAILED").With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	ready.Store(true)
	cmd.Println("Signet server started")
	slog.Info("signet ready", "addr", api.Addr())

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	slog.Info("shutting down...")
	stopServers(api, obsServer)
	slog.Info("shutdown complete")
	return nil
}

// openAccountStore builds the configured account store. Dev mode trades the
// database for an in-memory store that forgets everything on restart.
func openAccountStore(ctx context.Context, cfg *config.Config, deps *ServeDeps) (auth.AccountStore, func(), error) {
	if cfg.Dev {
		slog.Warn("dev mode: using in-memory account store, accounts will not survive a restart")
		return memory.NewStore(), func() {}, nil
	}

	if deps != nil && deps.ConnectStore != nil {
		return deps.ConnectStore(ctx, cfg.DatabaseURL)
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	slog.Info("connected to database")
	return authpg.NewAccountRepository(pool), pool.Close, nil
}

func newObservability(deps *ServeDeps, addr string, ready func() bool) (ObservabilityServer, auth.MetricsRecorder) {
	if deps != nil && deps.NewObservability != nil {
		return deps.NewObservability(addr, ready)
	}
	server := observability.NewServer(addr, ready)
	return server, server.Metrics()
}

// stopServers shuts down whichever servers are running, api first so no new
// work arrives while the metrics endpoint is still answering probes.
func stopServers(api interface {
	Stop(ctx context.Context) error
}, obs ObservabilityServer) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if api != nil {
		if err := api.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping api server", "error", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error so a failed server brings the whole process down
// gracefully. It exits when an error arrives, the channel closes, or the
// context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
