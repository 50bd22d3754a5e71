package transport

import (
	"net/http"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"
	"github.com/TechnoExperience/texnewweb-sub000/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Limiter        *middleware.RateLimiter
}

type Handlers struct {
	Checkout *CheckoutHandler
	Orders   *OrderHandler
	Payments *PaymentHandler
}

// NewRouter mounts the API. The limiter runs after authentication so signed-in
// buyers are bucketed by user id.
func NewRouter(cfg RouterConfig, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(cfg.Metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
		r.Use(middleware.Authenticate(cfg.JWTSecret))
		r.Use(cfg.Limiter.Middleware)

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/valuation", h.Checkout.Valuation)
			r.Post("/advance", h.Checkout.Advance)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/prefill", h.Checkout.Prefill)
				r.Post("/submit", h.Checkout.Submit)
			})
		})

		r.With(middleware.RequireAuth).Get("/orders/{id}", h.Orders.GetOrder)

		r.Post("/payments/sign", h.Payments.Sign)
		r.Post("/payments/notify", h.Payments.Notify)
	})

	return r
}
