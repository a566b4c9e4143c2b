package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("expected non-nil Registry")
	}
	if r.reg == nil {
		t.Fatal("expected non-nil prometheus registry")
	}
	if r.RequestsTotal == nil {
		t.Fatal("expected non-nil RequestsTotal counter")
	}
	if r.RequestLatencyMs == nil {
		t.Fatal("expected non-nil RequestLatencyMs histogram")
	}
	if r.CostUSD == nil {
		t.Fatal("expected non-nil CostUSD counter")
	}
	if r.FallbackTotal == nil {
		t.Fatal("expected non-nil FallbackTotal counter")
	}
}

func TestHandlerNonNil(t *testing.T) {
	r := New()
	h := r.Handler()
	if h == nil {
		t.Fatal("expected non-nil http.Handler from Handler()")
	}
}

func TestMetricsCanBeCollected(t *testing.T) {
	r := New()

	r.RequestsTotal.WithLabelValues("balanced", "gpt-4o-mini", "OPENAI", "200").Inc()
	r.CostUSD.WithLabelValues("gpt-4o-mini", "OPENAI").Add(0.01)
	r.RequestLatencyMs.WithLabelValues("balanced", "gpt-4o-mini", "OPENAI").Observe(150.0)
	r.FallbackTotal.WithLabelValues("gpt-5").Inc()

	mfs, err := r.reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error gathering metrics: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected at least one metric family after recording values")
	}

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	want := []string{
		"modelrouter_requests_total",
		"modelrouter_request_latency_ms",
		"modelrouter_cost_usd_total",
		"modelrouter_fallback_total",
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("expected metric %q in gathered metrics", name)
		}
	}
}

func TestMultipleRegistriesAreIndependent(t *testing.T) {
	r1 := New()
	r2 := New()

	r1.RequestsTotal.WithLabelValues("balanced", "gpt-4o-mini", "OPENAI", "200").Inc()

	mfs, err := r2.reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil && m.GetCounter().GetValue() > 0 {
				t.Error("r2 should not have any non-zero counters")
			}
		}
	}
	_ = r1
}

func TestRegisteredMetricDescriptions(t *testing.T) {
	r := New()

	ch := make(chan *prometheus.Desc, 10)
	go func() {
		r.RequestsTotal.Describe(ch)
		r.RequestLatencyMs.Describe(ch)
		r.CostUSD.Describe(ch)
		close(ch)
	}()

	count := 0
	for range ch {
		count++
	}
	if count != 3 {
		t.Errorf("expected 3 metric descriptors, got %d", count)
	}
}
