package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/servicehub/core/config"
	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/internal/app"
)

func main() {
	var cfg app.Config
	if err := config.Load(&cfg); err != nil {
		logger.New().Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}
	log := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.WithLogger(log))
	if err != nil {
		log.Error("failed to start", logger.Error(err))
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
