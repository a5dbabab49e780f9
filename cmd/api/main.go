package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"loyalty/internal/config"
	"loyalty/internal/infrastructure"
	"loyalty/internal/logging"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := infrastructure.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.Info("rewards service starting", "storage", cfg.Storage, "bus", cfg.BusProvider)
	if err := app.Run(ctx); err != nil {
		slog.Error("application stopped with error", "error", err)
		cleanup()
		os.Exit(1)
	}
	slog.Info("rewards service stopped")
}
