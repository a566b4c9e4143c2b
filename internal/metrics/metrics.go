package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the process's Prometheus collectors. It is a thin wrapper
// around a dedicated prometheus.Registry (rather than the global default)
// so tests can construct independent instances.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestLatencyMs *prometheus.HistogramVec
	CostUSD          *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
	FallbackTotal    *prometheus.CounterVec
}

// New builds and registers a fresh metrics registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelrouter_requests_total",
			Help: "Total prompts routed, labeled by preset/model/provider/status",
		}, []string{"preset", "model", "provider", "status"}),
		RequestLatencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modelrouter_request_latency_ms",
			Help:    "End-to-end routePrompt latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}, []string{"preset", "model", "provider"}),
		CostUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelrouter_cost_usd_total",
			Help: "Estimated USD cost of backend invocations",
		}, []string{"model", "provider"}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modelrouter_rate_limited_total",
			Help: "Total requests rejected by the per-IP rate limiter",
		}),
		FallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelrouter_fallback_total",
			Help: "Total requests served by the static fallback model after the selected model failed",
		}, []string{"original_model"}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestLatencyMs, m.CostUSD, m.RateLimitedTotal, m.FallbackTotal)
	return m
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
