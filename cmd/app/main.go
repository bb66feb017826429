package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/app"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
	"github.com/NastyaGoryachaya/silver-price-monitor/pkg/logger"
)

func main() {

	// config + logger
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(&cfg.Logger)

	// context + signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// build application
	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("app init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// run application
	if err := application.Run(ctx); err != nil {
		log.Error("application stopped with error", slog.String("error", err.Error()))
	}

	log.Info("silver-price-monitor stopped")
}
