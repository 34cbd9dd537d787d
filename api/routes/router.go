package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/quickdelivery-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/quickdelivery-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/quickdelivery-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/quickdelivery-backend/api/controllers/webhooks"
	"github.com/angelmondragon/quickdelivery-backend/api/middleware"
	"github.com/angelmondragon/quickdelivery-backend/internal/cart"
	"github.com/angelmondragon/quickdelivery-backend/internal/catalog"
	"github.com/angelmondragon/quickdelivery-backend/internal/coupons"
	"github.com/angelmondragon/quickdelivery-backend/internal/identity"
	"github.com/angelmondragon/quickdelivery-backend/internal/orders"
	"github.com/angelmondragon/quickdelivery-backend/internal/payments"
	"github.com/angelmondragon/quickdelivery-backend/pkg/auth/session"
	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/phonepe"
	pkgredis "github.com/angelmondragon/quickdelivery-backend/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs for replay protection
// and throttling.
type RedisStore interface {
	middleware.ReplayStore
	pkgredis.RateLimiter
}

type callbackService interface {
	HandleCallback(ctx context.Context, envelope phonepe.CallbackEnvelope, checksum string) error
}

// Dependencies are the services mounted by NewRouter.
type Dependencies struct {
	Pingers  map[string]controllers.Pinger
	Metrics  http.Handler
	Redis    RedisStore
	Sessions session.AccessSessionChecker

	Catalog  *catalog.Catalog
	Coupons  *coupons.Resolver
	Identity identity.Service
	Cart     cart.Service
	Payments payments.Service
	Orders   orders.Service
	Webhooks callbackService
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	otpRequestPolicy := middleware.NewRateLimitPolicy(
		"otp_request",
		cfg.OTP.RequestWindow,
		cfg.OTP.IPLimit,
		"phone",
		cfg.OTP.RequestLimit,
	)
	otpVerifyPolicy := middleware.NewRateLimitPolicy(
		"otp_verify",
		cfg.OTP.RequestWindow,
		cfg.OTP.IPLimit,
		"handle",
		cfg.OTP.MaxAttempts,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/phonepe", webhookcontrollers.PhonePeWebhook(deps.Webhooks, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(otpRequestPolicy, deps.Redis, logg)).Post("/otp/request", controllers.AuthRequestCode(deps.Identity, logg))
			r.With(middleware.RateLimit(otpVerifyPolicy, deps.Redis, logg)).Post("/otp/verify", controllers.AuthVerifyCode(deps.Identity, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Identity, logg))
			r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).Post("/logout", controllers.AuthLogout(deps.Identity, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", controllers.CatalogCategories(deps.Catalog))
			r.Get("/products", controllers.CatalogProducts(deps.Catalog))
			r.Get("/products/{productId}", controllers.CatalogProduct(deps.Catalog, logg))
		})
		r.Get("/coupons", controllers.CouponsList(deps.Coupons))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{productId}", cartcontrollers.CartUpdateQuantity(deps.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
				r.Post("/coupon", cartcontrollers.CartApplyCoupon(deps.Cart, logg))
				r.Delete("/coupon", cartcontrollers.CartRemoveCoupon(deps.Cart, logg))
				r.Get("/addresses", cartcontrollers.CartAddresses(deps.Cart, logg))
				r.Post("/addresses", cartcontrollers.CartAddAddress(deps.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Use(middleware.Idempotency(deps.Redis, logg))
				r.Get("/", ordercontrollers.OrderList(deps.Orders, logg))
				r.Get("/cancel-reasons", ordercontrollers.OrderCancelReasons())
				r.Get("/{orderId}", ordercontrollers.OrderDetail(deps.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.OrderCancel(deps.Orders, logg))
				r.Post("/{orderId}/rating", ordercontrollers.OrderRate(deps.Orders, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
				r.Use(middleware.Idempotency(deps.Redis, logg))

				r.Post("/checkout/pay", controllers.CheckoutPay(deps.Payments, logg))
				r.Route("/payments", func(r chi.Router) {
					r.Get("/pending", controllers.PaymentPending(deps.Payments, logg))
					r.Post("/confirm", controllers.PaymentConfirm(deps.Payments, logg))
					r.Post("/await", controllers.PaymentAwait(deps.Payments, logg))
					r.Post("/retry", controllers.PaymentRetry(deps.Payments, logg))
				})
			})
		})
	})

	return r
}
