package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/TeneoProtocolAI/staking-rewards/internal/adapters/httpapi"
	"github.com/TeneoProtocolAI/staking-rewards/internal/app"
	"github.com/TeneoProtocolAI/staking-rewards/internal/config"
	"github.com/TeneoProtocolAI/staking-rewards/pkg/version"
)

func main() {
	_ = godotenv.Load() // Load .env if present

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.RefreshInterval > 0 {
		sched, err := app.NewRefreshScheduler(a.Refresher, cfg.RefreshCurrencies, cfg.RefreshInterval, logger)
		if err != nil {
			logger.Error("failed to schedule price refresh", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Shutdown()
	}

	api := httpapi.New(httpapi.Config{
		Reporter:  a.Reports,
		Refresher: a.Refresher,
		Metrics:   a.Metrics.Handler(),
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting staking rewards server", "addr", cfg.HTTPAddr, "version", version.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down...")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
