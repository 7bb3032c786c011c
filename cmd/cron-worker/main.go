package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mvaldezdev/marketcart-backend/internal/cart"
	"github.com/mvaldezdev/marketcart-backend/internal/cron"
	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	"github.com/mvaldezdev/marketcart-backend/pkg/db"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/metrics"
	"github.com/mvaldezdev/marketcart-backend/pkg/migrate"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox"
	"github.com/mvaldezdev/marketcart-backend/pkg/redis"
)

func main() {
	bootLogger := logger.New(logger.Options{ServiceName: "cron-worker"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		bootLogger.Warn(ctx, "no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg := logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to connect to redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), 0)
	if err != nil {
		logg.Error(ctx, "failed to build cron lock", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	expiryJob, err := cron.NewCartExpiryJob(cron.CartExpiryJobParams{
		Logger: logg,
		DB:     dbClient,
		Reader: cartRepo,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(ctx, "failed to build cart expiry job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to build cron service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx := logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": cfg.Service.Kind,
		"interval":     cfg.Cron.Interval.String(),
	})
	logg.Info(startCtx, "cron worker starting")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker exited with error", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker stopped")
}
