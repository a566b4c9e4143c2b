package service

import (
	"sync"
	"time"

	"github.com/llmrouter/core/internal/category"
	"github.com/llmrouter/core/internal/preset"
	"github.com/llmrouter/core/internal/registry"
)

// ringBufferCapacity is the fixed analytics buffer size from spec section
// 4.5.4.
const ringBufferCapacity = 1000

// classificationAccuracyThreshold is the confidence cutoff used to estimate
// classification accuracy in Metrics (spec section 4.5.4).
const classificationAccuracyThreshold = 0.6

// costSavingsEstimateRate is the naive "20% of per-request cost" sentinel
// used for the aggregate cost-savings estimate in Metrics. It is a reporting
// heuristic only, never an optimization objective (spec section 9).
const costSavingsEstimateRate = 0.2

// RequestLogEntry is one ring-buffer entry (spec section 3).
type RequestLogEntry struct {
	ID                       int               `json:"id"`
	Prompt                   string            `json:"prompt"`
	Category                 category.Category `json:"category"`
	SelectedKey              string            `json:"selectedKey"`
	Provider                 registry.Provider `json:"provider"`
	CostUSD                  float64           `json:"costUsd"`
	LatencyMs                float64           `json:"latencyMs"`
	QualityScore             float64           `json:"qualityScore"`
	ClassificationMethod     string            `json:"classificationMethod"`
	ClassificationConfidence float64           `json:"classificationConfidence"`
	Preset                   preset.Preset     `json:"preset"`
	Timestamp                time.Time         `json:"timestamp"`
	UserID                   string            `json:"userId,omitempty"`
	SessionID                string            `json:"sessionId,omitempty"`
	Error                    string            `json:"error,omitempty"`
}

// Metrics is the aggregate view Router.Metrics() returns: request totals,
// cost, latency, per-model and per-category distributions, and the two
// reporting sentinels from spec section 4.5.4.
type Metrics struct {
	TotalRequests               int                        `json:"totalRequests"`
	TotalCostUSD                float64                    `json:"totalCostUsd"`
	AverageLatencyMs            float64                    `json:"averageLatencyMs"`
	RequestsByModel             map[string]int             `json:"requestsByModel"`
	RequestsByCategory          map[category.Category]int `json:"requestsByCategory"`
	CostSavingsEstimateTotalUSD float64                    `json:"costSavingsEstimateTotalUsd"`
	ClassificationAccuracyEst   float64                    `json:"classificationAccuracyEstimate"`
}


// ringBuffer is a fixed-capacity, insertion-order analytics log: append and
// evict-oldest-on-overflow are atomic with respect to concurrent appends
// (spec section 5), guarded by a single mutex rather than a rolling
// time-windowed structure.
type ringBuffer struct {
	mu      sync.Mutex
	entries []RequestLogEntry
	nextID  int
}

func newRingBuffer() *ringBuffer {
	return &ringBuffer{entries: make([]RequestLogEntry, 0, ringBufferCapacity)}
}

// append adds entry to the buffer, evicting the oldest entry first if the
// buffer is already at capacity.
func (r *ringBuffer) append(entry RequestLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.nextID
	r.nextID++
	if len(r.entries) >= ringBufferCapacity {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, entry)
}

// recentLogs returns a copy of the n most recently appended entries, oldest
// first. n <= 0 or n greater than the buffer size returns everything held.
func (r *ringBuffer) recentLogs(n int) []RequestLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	start := len(r.entries) - n
	out := make([]RequestLogEntry, n)
	copy(out, r.entries[start:])
	return out
}

func (r *ringBuffer) metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := Metrics{
		RequestsByModel:    make(map[string]int),
		RequestsByCategory: make(map[category.Category]int),
	}
	if len(r.entries) == 0 {
		return m
	}

	var totalLatency float64
	var confidentCount int
	for _, e := range r.entries {
		m.TotalRequests++
		m.TotalCostUSD += e.CostUSD
		totalLatency += e.LatencyMs
		m.RequestsByModel[e.SelectedKey]++
		m.RequestsByCategory[e.Category]++
		m.CostSavingsEstimateTotalUSD += costSavingsEstimateRate * e.CostUSD
		if e.ClassificationConfidence > classificationAccuracyThreshold {
			confidentCount++
		}
	}
	m.AverageLatencyMs = totalLatency / float64(len(r.entries))
	m.ClassificationAccuracyEst = float64(confidentCount) / float64(len(r.entries))
	return m
}

// reset clears every entry but keeps the running ID counter monotonic
// across a reset, matching the ring buffer's insertion-order contract.
func (r *ringBuffer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}
