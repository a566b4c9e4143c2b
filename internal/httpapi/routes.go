// Package httpapi mounts the model router's HTTP surface: routing,
// registry administration, health, metrics and analytics.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/llmrouter/core/internal/metrics"
	"github.com/llmrouter/core/internal/ratelimit"
	"github.com/llmrouter/core/internal/service"
)

// maxRequestBodySize bounds POST/PUT bodies (1 MB; prompts are text, not
// file uploads).
const maxRequestBodySize = 1 << 20

// Dependencies bundles what the HTTP layer needs to serve a request.
type Dependencies struct {
	Router      *service.Router
	Metrics     *metrics.Registry
	RateLimiter *ratelimit.Limiter
}

// bodySizeLimit wraps the request body with http.MaxBytesReader on
// state-changing methods.
func bodySizeLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MountRoutes wires every external operation onto r.
func MountRoutes(r chi.Router, d Dependencies) {
	r.Get("/healthz", HealthzHandler(d))
	r.Handle("/metrics", d.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(bodySizeLimit(maxRequestBodySize))
		if d.RateLimiter != nil {
			r.With(d.RateLimiter.Middleware).Post("/route", RouteHandler(d))
		} else {
			r.Post("/route", RouteHandler(d))
		}
		r.Get("/models", ModelsListHandler(d))
		r.Put("/models", ModelsResetHandler(d))
		r.Get("/analytics", AnalyticsHandler(d))
		r.Get("/analytics/recent", AnalyticsRecentHandler(d))
	})
}
