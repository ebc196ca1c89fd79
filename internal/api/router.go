// Package api provides the HTTP API for the job filter service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bargom/jobfilter/internal/api/handlers/jobs"
	"github.com/bargom/jobfilter/internal/health"
	"github.com/bargom/jobfilter/pkg/metrics"
)

// RouterConfig holds optional handlers for the router.
type RouterConfig struct {
	// Health serves /health, /health/live and /health/ready. If nil,
	// only a bare /health 200-OK stub is mounted.
	Health *health.Handler
	// Metrics, if set, exposes /metrics and wraps every request with
	// request-count/duration instrumentation.
	Metrics *metrics.Registry
}

// NewRouter creates a new Chi router with all routes and middleware configured.
func NewRouter(h *jobs.Handler) chi.Router {
	return NewRouterWithConfig(h, RouterConfig{})
}

// NewRouterWithConfig creates a new Chi router with optional handlers.
func NewRouterWithConfig(h *jobs.Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(jsonContentType)
	if cfg.Metrics != nil {
		r.Use(metrics.HTTPMiddleware(cfg.Metrics))
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.HealthHandler)
		r.Get("/health/live", cfg.Health.LivenessHandler)
		r.Get("/health/ready", cfg.Health.ReadinessHandler)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		})
	}

	// Job queue routes, including the query-document filter endpoint.
	r.Route("/api/v1", func(r chi.Router) {
		h.RegisterRoutes(r)
	})

	return r
}

// jsonContentType is middleware that sets the Content-Type header to application/json.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
