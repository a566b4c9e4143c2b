// Package backend defines the uniform contract every provider adapter
// implements, and the lazily-constructed, dual-aliased client pool the
// routing engine and router service resolve clients through.
package backend

import (
	"context"
	"time"

	"github.com/llmrouter/core/internal/registry"
)

// GenerateOptions configures one generation call. MaxTokens, Temperature and
// TimeoutMs are always set by the caller; the rest are optional.
type GenerateOptions struct {
	MaxTokens        int
	Temperature      float64
	TimeoutMs        int
	SystemPrompt     string
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	StopSequences    []string
	JSONMode         bool
}

// Timeout returns the configured call timeout as a time.Duration, falling
// back to 30s if TimeoutMs is unset.
func (o GenerateOptions) Timeout() time.Duration {
	if o.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(o.TimeoutMs) * time.Millisecond
}

// GenerateResult is what a backend client returns on success.
type GenerateResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
	CostUSD      *float64 // nil when the provider does not report cost directly
	LatencyMs    float64
	Timestamp    time.Time
}

// Client is the uniform backend-client contract from spec section 6: send a
// prompt plus options, get text and usage back.
type Client interface {
	Generate(ctx context.Context, prompt string, options GenerateOptions) (GenerateResult, error)
	IsAvailable(ctx context.Context) bool
	Provider() registry.Provider
	ModelName() string
}

// Factory constructs a Client for a given registry descriptor. Returning a
// ConfigError (missing credential) is expected and non-fatal to the pool —
// it just means that one model stays unresolvable.
type Factory func(d registry.Descriptor) (Client, error)
