package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	"github.com/mvaldezdev/marketcart-backend/pkg/db"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/migrate"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox"
	"github.com/mvaldezdev/marketcart-backend/pkg/pubsub"
)

func main() {
	bootLogger := logger.New(logger.Options{ServiceName: "outbox-publisher"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		bootLogger.Warn(ctx, "no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "outbox-publisher"

	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "auto migration failed", err)
		os.Exit(1)
	}

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to create pubsub client", err)
		os.Exit(1)
	}
	defer func() {
		if err := psClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     psClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(ctx, "failed to build publisher service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx := logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": cfg.Service.Kind,
	})
	logg.Info(startCtx, "outbox publisher starting")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher exited with error", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher stopped")
}
