package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/quickdelivery-backend/internal/cart"
	"github.com/angelmondragon/quickdelivery-backend/internal/cron"
	"github.com/angelmondragon/quickdelivery-backend/internal/orders"
	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/metrics"
	"github.com/angelmondragon/quickdelivery-backend/pkg/migrate"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox"
	"github.com/angelmondragon/quickdelivery-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cartRepo, err := cart.NewSessionRepository(redisClient, cfg.Redis.SessionTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart repository", err)
		os.Exit(1)
	}
	cartStore, err := cart.NewStore(cartRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, outbox.NewService(outboxRepo, logg), cartStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	lifecycle, err := cron.NewOrderLifecycleJob(cron.OrderLifecycleJobParams{
		Logger:    logg,
		Orders:    orderService,
		Metrics:   metricsCollector,
		BatchSize: cfg.Lifecycle.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order lifecycle job", err)
		os.Exit(1)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:         logg,
		DB:             dbClient,
		Repository:     outboxRepo,
		DLQ:            outbox.NewDLQRepository(),
		Metrics:        metricsCollector,
		Retention:      cfg.Outbox.Retention,
		DLQRetention:   cfg.Outbox.DLQRetention,
		ExhaustedAfter: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey(cfg.App.Env), cfg.Lifecycle.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(lifecycle, cron.Every(retention, cfg.Outbox.RetentionEvery)),
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Lifecycle.TickInterval,
		JobTimeout: cfg.Lifecycle.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"tick_interval": cfg.Lifecycle.TickInterval.String(),
	})

	metricsServer := &http.Server{
		Addr:              cfg.Lifecycle.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
