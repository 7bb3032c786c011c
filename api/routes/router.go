package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mvaldezdev/marketcart-backend/api/controllers"
	cartcontrollers "github.com/mvaldezdev/marketcart-backend/api/controllers/cart"
	checkoutcontrollers "github.com/mvaldezdev/marketcart-backend/api/controllers/checkout"
	ordercontrollers "github.com/mvaldezdev/marketcart-backend/api/controllers/orders"
	"github.com/mvaldezdev/marketcart-backend/api/middleware"
	cartsvc "github.com/mvaldezdev/marketcart-backend/internal/cart"
	checkoutsvc "github.com/mvaldezdev/marketcart-backend/internal/checkout"
	ordersvc "github.com/mvaldezdev/marketcart-backend/internal/orders"
	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Cart     *cartsvc.Service
	Checkout *checkoutsvc.Service
	Orders   *ordersvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Owner(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Post("/", cartcontrollers.Fetch(deps.Cart, logg))
			r.Post("/merge", cartcontrollers.Merge(deps.Cart, logg))
			r.Route("/{cartID}", func(r chi.Router) {
				r.Get("/", cartcontrollers.FetchByID(deps.Cart, logg))
				r.Post("/items", cartcontrollers.AddItem(deps.Cart, logg))
				r.Patch("/items/{itemID}", cartcontrollers.UpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemID}", cartcontrollers.RemoveItem(deps.Cart, logg))
				r.Post("/coupons", cartcontrollers.ApplyCoupon(deps.Cart, logg))
				r.Delete("/coupons/{couponID}", cartcontrollers.RemoveCoupon(deps.Cart, logg))
				r.Put("/shipping", cartcontrollers.SelectShipping(deps.Cart, logg))
				r.Post("/shipping/refresh", cartcontrollers.RefreshShipping(deps.Cart, logg))
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			policy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutIPLimit, cfg.RateLimit.CheckoutOwnerLimit)
			r.With(middleware.RateLimit(policy, deps.Redis, logg)).
				Post("/{cartID}", checkoutcontrollers.Checkout(deps.Checkout, deps.Orders, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderID}", ordercontrollers.Fetch(deps.Orders, logg))
		})
	})

	return r
}
