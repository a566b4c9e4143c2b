// Package service implements the router service: the end-to-end
// orchestrator that classifies a prompt, asks the routing engine for a
// decision, invokes the selected backend, applies the one-shot static
// fallback on failure, and records outcomes to the analytics ring buffer.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/category"
	"github.com/llmrouter/core/internal/classifier/hybrid"
	"github.com/llmrouter/core/internal/preset"
	"github.com/llmrouter/core/internal/registry"
	"github.com/llmrouter/core/internal/routing"
)

// staticFallbackKey is the well-known model invoked once after the
// originally selected model fails, regardless of category (spec section 4.5).
const staticFallbackKey = "gpt-4o-mini"

// staticFallbackCostPer1kTokens is the assumed per-1k-token cost used only
// for the static fallback's cost accounting, per spec section 4.5 step 8.
const staticFallbackCostPer1kTokens = 0.00015

// Classifier is the subset of hybrid.Classifier the router service needs.
type Classifier interface {
	Classify(ctx context.Context, prompt string) hybrid.Result
}

// ClientResolver is the subset of backend.Pool the router service needs.
type ClientResolver interface {
	Resolve(keyOrAlias string) (backend.Client, error)
}

// RouterResponse is the router service's output contract (spec section 3).
type RouterResponse struct {
	Text                     string            `json:"text"`
	ModelUsed                string            `json:"modelUsed"`
	Category                 category.Category `json:"category"`
	ClassificationConfidence float64           `json:"classificationConfidence"`
	Decision                 routing.Decision  `json:"decision"`
	ActualCostUSD            float64           `json:"actualCostUsd"`
	ActualLatencyMs          float64           `json:"actualLatencyMs"`
	CostSavingsUSD           float64           `json:"costSavingsUsd"`
	Timestamp                time.Time         `json:"timestamp"`
	WasTruncated             bool              `json:"wasTruncated"`
}

// Router is the router service: classify, decide, invoke, fall back, log.
type Router struct {
	classifier    Classifier
	pool          ClientResolver
	reg           *registry.Registry
	defaultPreset preset.Preset
	timeoutMs     int
	log           *ringBuffer
}

// New builds a Router. timeoutMs bounds every backend call (including the
// static fallback); defaultPreset is used when the caller passes an empty
// preset.
func New(classifier Classifier, pool ClientResolver, reg *registry.Registry, defaultPreset preset.Preset, timeoutMs int) *Router {
	if defaultPreset == "" {
		defaultPreset = preset.Balanced
	}
	return &Router{
		classifier:    classifier,
		pool:          pool,
		reg:           reg,
		defaultPreset: defaultPreset,
		timeoutMs:     timeoutMs,
		log:           newRingBuffer(),
	}
}

// RoutePrompt runs the full classify -> decide -> invoke -> fallback -> log
// pipeline (spec section 4.5).
func (r *Router) RoutePrompt(ctx context.Context, prompt string, p preset.Preset, userID, sessionID string) (RouterResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return RouterResponse{}, &InputError{Reason: "prompt must be a non-empty string"}
	}
	if p == "" {
		p = r.defaultPreset
	}
	if !preset.Valid(p) {
		return RouterResponse{}, &InputError{Reason: fmt.Sprintf("unknown priority preset %q", p)}
	}

	start := time.Now()
	cls := r.classifier.Classify(ctx, prompt)

	decision, err := routing.Decide(prompt, cls.Category, p, r.reg.Snapshot())
	if err != nil {
		return RouterResponse{}, err
	}

	temperature, maxTokens := resolveGenerationDefaults(cls.Category)
	opts := backend.GenerateOptions{
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TimeoutMs:   r.timeoutMs,
	}

	genResult, invokeErr := r.invoke(ctx, decision.SelectedKey, prompt, opts)
	if invokeErr == nil {
		return r.recordSuccess(prompt, p, cls, decision, decision.SelectedKey, decision.Provider, genResult, start, userID, sessionID), nil
	}

	originalMessage := invokeErr.Error()
	r.reg.MarkUnavailable(decision.SelectedKey)

	fallbackOpts := backend.GenerateOptions{
		MaxTokens:   maxTokens,
		Temperature: 0.7,
		TimeoutMs:   r.timeoutMs,
	}
	fallbackResult, fallbackErr := r.invoke(ctx, staticFallbackKey, prompt, fallbackOpts)
	if fallbackErr != nil {
		r.log.append(RequestLogEntry{
			Prompt:                   prompt,
			Category:                 cls.Category,
			SelectedKey:              decision.SelectedKey,
			Provider:                 decision.Provider,
			ClassificationMethod:     cls.FinalMethod,
			ClassificationConfidence: cls.Confidence,
			Preset:                   p,
			Timestamp:                time.Now().UTC(),
			UserID:                   userID,
			SessionID:                sessionID,
			Error:                    fmt.Sprintf("%v; fallback also failed: %v", originalMessage, fallbackErr),
		})
		return RouterResponse{}, &FallbackExhaustedError{OriginalError: originalMessage}
	}

	return r.recordFallback(prompt, p, cls, decision, fallbackResult, originalMessage, start, userID, sessionID), nil
}

func (r *Router) invoke(ctx context.Context, key, prompt string, opts backend.GenerateOptions) (backend.GenerateResult, error) {
	client, err := r.pool.Resolve(key)
	if err != nil {
		return backend.GenerateResult{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()
	return client.Generate(callCtx, prompt, opts)
}

func (r *Router) recordSuccess(prompt string, p preset.Preset, cls hybrid.Result, decision routing.Decision, key string, provider registry.Provider, gen backend.GenerateResult, start time.Time, userID, sessionID string) RouterResponse {
	descriptor, _ := r.reg.Get(key)
	actualCost := actualCostUSD(gen, descriptor)
	text, truncated := truncate(gen.Content)
	savings := costSavings(cls.Category, actualCost, r.reg.Snapshot())
	latencyMs := float64(time.Since(start).Milliseconds())

	r.log.append(RequestLogEntry{
		Prompt:                   prompt,
		Category:                 cls.Category,
		SelectedKey:              key,
		Provider:                 provider,
		CostUSD:                  actualCost,
		LatencyMs:                latencyMs,
		QualityScore:             descriptor.QualityPrior(cls.Category),
		ClassificationMethod:     cls.FinalMethod,
		ClassificationConfidence: cls.Confidence,
		Preset:                   p,
		Timestamp:                time.Now().UTC(),
		UserID:                   userID,
		SessionID:                sessionID,
	})

	return RouterResponse{
		Text:                     text,
		ModelUsed:                key,
		Category:                 cls.Category,
		ClassificationConfidence: cls.Confidence,
		Decision:                 decision,
		ActualCostUSD:            actualCost,
		ActualLatencyMs:          latencyMs,
		CostSavingsUSD:           savings,
		Timestamp:                time.Now().UTC(),
		WasTruncated:             truncated,
	}
}

func (r *Router) recordFallback(prompt string, p preset.Preset, cls hybrid.Result, decision routing.Decision, gen backend.GenerateResult, originalMessage string, start time.Time, userID, sessionID string) RouterResponse {
	totalTokens := gen.InputTokens + gen.OutputTokens
	actualCost := (float64(totalTokens) / 1000) * staticFallbackCostPer1kTokens
	text, truncated := truncate(gen.Content)
	savings := costSavings(cls.Category, actualCost, r.reg.Snapshot())
	latencyMs := float64(time.Since(start).Milliseconds())
	descriptor, _ := r.reg.Get(staticFallbackKey)

	r.log.append(RequestLogEntry{
		Prompt:                   prompt,
		Category:                 cls.Category,
		SelectedKey:              staticFallbackKey,
		Provider:                 descriptor.Provider,
		CostUSD:                  actualCost,
		LatencyMs:                latencyMs,
		QualityScore:             descriptor.QualityPrior(cls.Category),
		ClassificationMethod:     cls.FinalMethod,
		ClassificationConfidence: cls.Confidence,
		Preset:                   p,
		Timestamp:                time.Now().UTC(),
		UserID:                   userID,
		SessionID:                sessionID,
		Error:                    fmt.Sprintf("primary model failed, served by static fallback: %s", originalMessage),
	})

	return RouterResponse{
		Text:                     text,
		ModelUsed:                staticFallbackKey,
		Category:                 cls.Category,
		ClassificationConfidence: cls.Confidence,
		Decision:                 decision,
		ActualCostUSD:            actualCost,
		ActualLatencyMs:          latencyMs,
		CostSavingsUSD:           savings,
		Timestamp:                time.Now().UTC(),
		WasTruncated:             truncated,
	}
}

// actualCostUSD implements spec section 4.5.1. Every in-pack backend
// adapter already returns real or char-estimated token counts, so the
// "backend does not return token counts" branch never needs a separate
// estimate here.
func actualCostUSD(gen backend.GenerateResult, d registry.Descriptor) float64 {
	return (float64(gen.InputTokens)/1e6)*d.PriceInputPerMillion +
		(float64(gen.OutputTokens)/1e6)*d.PriceOutputPerMillion
}

// costSavings implements spec section 4.5.2: the per-category most
// expensive candidate's input price stands in for "maxCost", and savings is
// the non-negative gap between that and what was actually spent. This is a
// reporting sentinel, not an optimization objective (spec section 9).
func costSavings(cat category.Category, actualCost float64, snapshot []registry.Descriptor) float64 {
	var maxCost float64
	for _, d := range snapshot {
		if !d.HasCategory(cat) {
			continue
		}
		if d.PriceInputPerMillion > maxCost {
			maxCost = d.PriceInputPerMillion
		}
	}
	savings := maxCost - actualCost
	if savings < 0 {
		savings = 0
	}
	return savings
}

// RecentLogs returns the n most recently logged outcomes, oldest first.
func (r *Router) RecentLogs(n int) []RequestLogEntry {
	return r.log.recentLogs(n)
}

// Metrics returns the aggregate analytics view (spec section 4.5.4).
func (r *Router) Metrics() Metrics {
	return r.log.metrics()
}

// ResetMetrics clears the analytics ring buffer.
func (r *Router) ResetMetrics() {
	r.log.reset()
}

// Models returns a snapshot of every registered model descriptor, for the
// GET /models admin operation (spec section 6).
func (r *Router) Models() []registry.Descriptor {
	return r.reg.Snapshot()
}

// ResetAvailability restores every model's availability flag, for the
// PUT /models {"action":"reset"} admin operation (spec section 6).
func (r *Router) ResetAvailability() {
	routing.ResetAllAvailability(r.reg)
}
