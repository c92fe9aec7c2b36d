package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl Limiter, limits RateLimits) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(TracingMiddleware)
		r.Use(RateLimitMiddleware(rl, limits))
		r.Use(IdempotencyMiddleware)

		r.Post("/v1/scans", h.ValidateScan)
		r.Get("/v1/events", h.ListEvents)
		r.Get("/v1/events/{id}/tally", h.GetTally)
		r.Get("/v1/tickets/{code}/scans", h.ScanHistory)
	})

	return r
}
