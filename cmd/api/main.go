package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mvaldezdev/marketcart-backend/api/routes"
	"github.com/mvaldezdev/marketcart-backend/internal/cart"
	"github.com/mvaldezdev/marketcart-backend/internal/catalog"
	"github.com/mvaldezdev/marketcart-backend/internal/checkout"
	"github.com/mvaldezdev/marketcart-backend/internal/coupons"
	"github.com/mvaldezdev/marketcart-backend/internal/orders"
	"github.com/mvaldezdev/marketcart-backend/internal/shipping"
	"github.com/mvaldezdev/marketcart-backend/internal/tax"
	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	"github.com/mvaldezdev/marketcart-backend/pkg/db"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/migrate"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox"
	"github.com/mvaldezdev/marketcart-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	bootLogger := logger.New(logger.Options{ServiceName: "marketcart-api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		bootLogger.Warn(ctx, "no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "marketcart-api",
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

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	couponService, err := coupons.NewService(coupons.ServiceParams{Repo: coupons.NewRepository(gormDB)})
	if err != nil {
		logg.Error(ctx, "failed to build coupons service", err)
		os.Exit(1)
	}

	taxResolver, err := tax.NewResolver(gormDB, cfg.Tax)
	if err != nil {
		logg.Error(ctx, "failed to build tax resolver", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)

	cartService, err := cart.NewService(cart.ServiceParams{
		Client:   dbClient,
		Repo:     cartRepo,
		Catalog:  catalogRepo,
		Coupons:  couponService,
		Tax:      taxResolver,
		Shipping: shipping.NewEstimator(cfg.Shipping),
		Outbox:   outboxService,
		Logger:   logg,
		Config:   cfg.Cart,
	})
	if err != nil {
		logg.Error(ctx, "failed to build cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Client:   dbClient,
		CartRepo: cartRepo,
		Catalog:  catalogRepo,
		Coupons:  coupons.NewRepository(gormDB),
		Orders:   orders.NewRepository(gormDB),
		Tax:      taxResolver,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build checkout service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{Repo: orders.NewRepository(gormDB)})
	if err != nil {
		logg.Error(ctx, "failed to build orders service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   orderService,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	startCtx := logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": cfg.Service.Kind,
		"port":         cfg.App.Port,
	})
	logg.Info(startCtx, "api server starting")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server failed", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
