// Package registry holds the in-memory model registry: the stable table
// mapping a model key to its descriptor (provider, pricing, latency prior,
// per-category quality prior, and a mutable availability flag).
//
// The registry is a process singleton mutated only through MarkUnavailable
// and ResetAll. Reads go through Snapshot and Get, which hand callers copies
// taken under the read lock, and Resolve, which maps a name to its key;
// Snapshot copies the whole table under a single read lock — the routing engine
// scores a consistent view of the registry for the lifetime of one decision,
// per the snapshot-per-decision rule in spec section 5.
package registry

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/llmrouter/core/internal/category"
)

// Provider is the upstream LLM vendor a model descriptor belongs to.
type Provider string

const (
	OpenAI      Provider = "OPENAI"
	Anthropic   Provider = "ANTHROPIC"
	Google      Provider = "GOOGLE"
	HuggingFace Provider = "HUGGINGFACE"
)

// defaultQualityPrior is substituted for any category absent from a
// descriptor's QualityPriorByCategory table.
const defaultQualityPrior = 0.5

// Descriptor describes one registered model. Every field except Available is
// immutable after construction; Available is flipped only through the
// registry's MarkUnavailable/ResetAll operations.
type Descriptor struct {
	Key                    string                        `json:"key"`
	ProviderModelName      string                        `json:"providerModelName"`
	Provider               Provider                      `json:"provider"`
	ContextWindowTokens    int                           `json:"contextWindowTokens"`
	PriceInputPerMillion   float64                       `json:"priceInputPerMillion"`
	PriceOutputPerMillion  float64                       `json:"priceOutputPerMillion"`
	LatencyP50Seconds      float64                       `json:"latencyP50Seconds"`
	QualityPriorByCategory map[category.Category]float64 `json:"qualityPriorByCategory,omitempty"`
	Available              bool                          `json:"available"`
}

// QualityPrior returns the descriptor's quality prior for c, defaulting to
// 0.5 when the category has no entry.
func (d Descriptor) QualityPrior(c category.Category) float64 {
	if v, ok := d.QualityPriorByCategory[c]; ok {
		return v
	}
	return defaultQualityPrior
}

// HasCategory reports whether the descriptor carries an explicit quality
// prior for c — this is the registry's capability test: a model can serve a
// category only if it appears in the table at all.
func (d Descriptor) HasCategory(c category.Category) bool {
	_, ok := d.QualityPriorByCategory[c]
	return ok
}

// LatencyMs is the descriptor's p50 latency in milliseconds.
func (d Descriptor) LatencyMs() float64 {
	return 1000 * d.LatencyP50Seconds
}

// ThroughputTps is a derived, rounded tokens-per-second figure used as a
// minor scoring bonus.
func (d Descriptor) ThroughputTps() float64 {
	if d.LatencyP50Seconds <= 0 {
		return 0
	}
	return math.Round(1000 / d.LatencyP50Seconds)
}

// PriceInputPer1k and PriceOutputPer1k restate the per-million prices per
// 1,000 tokens, the unit the routing engine's cost scoring works in.
func (d Descriptor) PriceInputPer1k() float64  { return d.PriceInputPerMillion / 1000 }
func (d Descriptor) PriceOutputPer1k() float64 { return d.PriceOutputPerMillion / 1000 }

// IsPremium reports whether the model key matches one of the reference
// implementation's hard-coded premium-tier substrings. Preserved verbatim
// for scoring parity — see spec section 9's design note on this bias.
func (d Descriptor) IsPremium() bool {
	k := strings.ToLower(d.Key)
	return strings.Contains(k, "claude") || strings.Contains(k, "gpt-5")
}

// validate enforces the Model Descriptor invariants from spec section 3.
func (d Descriptor) validate() error {
	if d.Key == "" {
		return fmt.Errorf("model descriptor: key must not be empty")
	}
	if d.ProviderModelName == "" {
		return fmt.Errorf("model descriptor %q: providerModelName must not be empty", d.Key)
	}
	if d.ContextWindowTokens <= 0 {
		return fmt.Errorf("model descriptor %q: contextWindowTokens must be strictly positive", d.Key)
	}
	if d.LatencyP50Seconds <= 0 {
		return fmt.Errorf("model descriptor %q: latencyP50Seconds must be strictly positive", d.Key)
	}
	if d.PriceInputPerMillion < 0 || d.PriceOutputPerMillion < 0 {
		return fmt.Errorf("model descriptor %q: prices must be non-negative", d.Key)
	}
	if math.IsInf(d.PriceInputPerMillion, 0) || math.IsInf(d.PriceOutputPerMillion, 0) ||
		math.IsInf(d.LatencyP50Seconds, 0) {
		return fmt.Errorf("model descriptor %q: prices and latency must be finite", d.Key)
	}
	return nil
}

// Registry is the process-singleton model table.
type Registry struct {
	mu      sync.RWMutex
	order   []string // registry iteration order; fixes tie-break order for scoring
	byKey   map[string]*Descriptor
	byAlias map[string]string // providerModelName -> key
}

// New creates an empty registry. Use Register (or LoadDefault, in seed.go) to
// populate it.
func New() *Registry {
	return &Registry{
		byKey:   make(map[string]*Descriptor),
		byAlias: make(map[string]string),
	}
}

// Register adds a model descriptor to the registry. Available defaults to
// true regardless of the value passed in, matching the "available defaults
// to true" invariant. Register is intended for startup wiring only; it is
// not safe to call concurrently with routing decisions in the general case,
// though it takes the write lock like any other mutation.
func (r *Registry) Register(d Descriptor) error {
	d.Available = true
	if err := d.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[d.Key]; exists {
		return fmt.Errorf("registry: duplicate model key %q", d.Key)
	}
	if existingKey, exists := r.byAlias[d.ProviderModelName]; exists {
		return fmt.Errorf("registry: providerModelName %q already used by key %q", d.ProviderModelName, existingKey)
	}

	cp := d
	r.byKey[d.Key] = &cp
	r.byAlias[d.ProviderModelName] = d.Key
	r.order = append(r.order, d.Key)
	return nil
}

// MarkUnavailable flips a model's Available flag to false. It stays false
// until ResetAll is called. Unknown keys are a no-op.
func (r *Registry) MarkUnavailable(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byKey[key]; ok {
		d.Available = false
	}
}

// ResetAll restores every model's Available flag to true. Idempotent.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byKey {
		d.Available = true
	}
}

// Snapshot returns a copy of every registered descriptor in stable registry
// (insertion) order, taken under a single read lock. Callers — principally
// the routing engine — should score against one Snapshot call per decision
// rather than re-reading the registry mid-computation.
func (r *Registry) Snapshot() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.byKey[key])
	}
	return out
}

// Get returns a single descriptor snapshot by key or alias (providerModelName).
func (r *Registry) Get(keyOrAlias string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byKey[keyOrAlias]; ok {
		return *d, true
	}
	if key, ok := r.byAlias[keyOrAlias]; ok {
		return *r.byKey[key], true
	}
	return Descriptor{}, false
}

// Resolve maps either a registry key or a provider-native model name to the
// canonical registry key. Used by the backend client pool to alias clients
// by both names (spec section 9, "client cache keyed by two names").
func (r *Registry) Resolve(keyOrAlias string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byKey[keyOrAlias]; ok {
		return keyOrAlias, true
	}
	if key, ok := r.byAlias[keyOrAlias]; ok {
		return key, true
	}
	return "", false
}
