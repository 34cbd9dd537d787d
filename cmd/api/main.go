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

	"github.com/angelmondragon/quickdelivery-backend/api/controllers"
	"github.com/angelmondragon/quickdelivery-backend/api/routes"
	"github.com/angelmondragon/quickdelivery-backend/internal/cart"
	"github.com/angelmondragon/quickdelivery-backend/internal/catalog"
	"github.com/angelmondragon/quickdelivery-backend/internal/coupons"
	"github.com/angelmondragon/quickdelivery-backend/internal/identity"
	"github.com/angelmondragon/quickdelivery-backend/internal/orders"
	"github.com/angelmondragon/quickdelivery-backend/internal/payments"
	"github.com/angelmondragon/quickdelivery-backend/internal/users"
	phonepewebhook "github.com/angelmondragon/quickdelivery-backend/internal/webhooks/phonepe"
	"github.com/angelmondragon/quickdelivery-backend/pkg/auth/session"
	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/metrics"
	"github.com/angelmondragon/quickdelivery-backend/pkg/migrate"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/quickdelivery-backend/pkg/phonepe"
	"github.com/angelmondragon/quickdelivery-backend/pkg/pubsub"
	"github.com/angelmondragon/quickdelivery-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pingers := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		pingers["pubsub"] = pubsubClient
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	identityService, err := identity.NewService(identity.ServiceParams{
		Codes:          redisClient,
		Limiter:        redisClient,
		Users:          users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		Sender:         identity.NewLogSender(logg),
		OTPConfig:      cfg.OTP,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	products := catalog.New()
	couponResolver := coupons.NewResolver()

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
	cartService, err := cart.NewService(cartStore, products, couponResolver, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, emitter, cartStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gateway, err := phonepe.NewClient(redisClient, cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(
		cartStore,
		orderService,
		gateway,
		redisClient,
		cfg.Payments,
		metrics.NewPaymentMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	callbackGuard, err := idempotency.NewManager(redisClient, cfg.Payments.WebhookTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}
	webhookService, err := phonepewebhook.NewService(phonepewebhook.ServiceParams{
		Payments:  paymentService,
		Guard:     callbackGuard,
		SaltKey:   cfg.Payments.SaltKey,
		SaltIndex: cfg.Payments.SaltIndex,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create phonepe webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Pingers:  pingers,
			Metrics:  promhttp.Handler(),
			Redis:    redisClient,
			Sessions: sessionManager,
			Catalog:  products,
			Coupons:  couponResolver,
			Identity: identityService,
			Cart:     cartService,
			Payments: paymentService,
			Orders:   orderService,
			Webhooks: webhookService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
