// Package httptransport assembles the engine's HTTP surface. Handlers stay in
// their feature packages; the router owns only the middleware chain and the
// operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agripass/internal/platform/metrics"
	"agripass/internal/platform/middleware"
	"agripass/internal/platform/ratelimit"
)

// Registrar is anything that mounts routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports dependency health for /healthz.
type HealthChecker func() error

// NewRouter wires middleware, feature handlers, and operational endpoints.
// A nil limiter disables throttling.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, health HealthChecker, limiter ratelimit.Limiter, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Actor)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(m))

	r.Group(func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		if limiter != nil {
			api.Use(middleware.RateLimit(limiter, logger))
		}
		for _, h := range handlers {
			h.Register(api)
		}
	})

	r.Get("/healthz", handleHealth(health))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
