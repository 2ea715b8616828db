package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/clausa/clausa/internal/api"
	"github.com/clausa/clausa/internal/app"
	"github.com/clausa/clausa/internal/config"
	"github.com/clausa/clausa/internal/web"
)

// runServe initializes the application and starts the HTTP API server
// with the embedded chat UI.
func runServe(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr()
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", Version, "addr", addr)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	srv, err := api.NewServer(api.Config{
		Logger:      logger,
		Flow:        a.Flow,
		Knowledge:   a.Knowledge,
		Threads:     a.Threads,
		Pool:        a.Pool,
		Web:         web.Handler(),
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx, addr)
}
