package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/utsavplanner/bookings-and-payments/internal/auth"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
	"github.com/utsavplanner/bookings-and-payments/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, jwtSvc *auth.Service, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Vendor catalog is readable without a token.
	r.Get("/v1/vendors", h.ListVendors)
	r.Get("/v1/vendors/categories", h.VendorCategories)
	r.Get("/v1/vendors/{id}", h.GetVendor)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSvc))
		r.Use(RateLimitMiddleware(rl))

		r.With(IdempotencyMiddleware).Post("/v1/bookings", h.CreateBooking)
		r.Get("/v1/bookings", h.ListBookings)
		r.Get("/v1/bookings/{id}", h.GetBooking)
		r.Put("/v1/bookings/{id}", h.UpdateBooking)
		r.Delete("/v1/bookings/{id}", h.DeleteBooking)

		r.With(IdempotencyMiddleware).Post("/v1/payments/create-order", h.CreateOrder)
		r.Post("/v1/payments/verify", h.VerifyPayment)

		r.Post("/v1/events", h.CreateEvent)
		r.Get("/v1/events", h.ListEvents)
		r.Get("/v1/events/{id}", h.GetEvent)

		r.Post("/v1/vendors", h.CreateVendor)
	})

	return r
}
