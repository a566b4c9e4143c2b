package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/category"
	"github.com/llmrouter/core/internal/classifier/hybrid"
	"github.com/llmrouter/core/internal/preset"
	"github.com/llmrouter/core/internal/registry"
)

type fakeClassifier struct {
	result hybrid.Result
}

func (f *fakeClassifier) Classify(ctx context.Context, prompt string) hybrid.Result {
	return f.result
}

type fakeClient struct {
	provider registry.Provider
	model    string
	result   backend.GenerateResult
	err      error
}

func (f *fakeClient) Generate(ctx context.Context, prompt string, options backend.GenerateOptions) (backend.GenerateResult, error) {
	if f.err != nil {
		return backend.GenerateResult{}, f.err
	}
	return f.result, nil
}
func (f *fakeClient) IsAvailable(ctx context.Context) bool { return f.err == nil }
func (f *fakeClient) Provider() registry.Provider          { return f.provider }
func (f *fakeClient) ModelName() string                    { return f.model }

type fakePool struct {
	clients map[string]backend.Client
}

func (f *fakePool) Resolve(keyOrAlias string) (backend.Client, error) {
	if c, ok := f.clients[keyOrAlias]; ok {
		return c, nil
	}
	return nil, errors.New("fakePool: unknown model " + keyOrAlias)
}

func seededRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, d := range registry.Seed() {
		require.NoError(t, r.Register(d))
	}
	return r
}

func TestRoutePromptRejectsEmptyPrompt(t *testing.T) {
	r := New(&fakeClassifier{}, &fakePool{}, seededRegistry(t), preset.Balanced, 30000)
	_, err := r.RoutePrompt(context.Background(), "   ", preset.Balanced, "", "")
	require.Error(t, err)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestRoutePromptRejectsUnknownPreset(t *testing.T) {
	r := New(&fakeClassifier{}, &fakePool{}, seededRegistry(t), preset.Balanced, 30000)
	_, err := r.RoutePrompt(context.Background(), "hello", preset.Preset("BOGUS"), "", "")
	require.Error(t, err)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestRoutePromptSuccessRecordsLogAndResponse(t *testing.T) {
	reg := seededRegistry(t)
	client := &fakeClient{
		provider: registry.Anthropic,
		model:    "claude-3-7-sonnet-20250219",
		result: backend.GenerateResult{
			Content:      "func Sort() {}",
			InputTokens:  10,
			OutputTokens: 20,
			Timestamp:    time.Now(),
		},
	}
	pool := &fakePool{clients: map[string]backend.Client{"claude-3-7-sonnet-20250219": client}}

	r := New(&fakeClassifier{result: hybrid.Result{Category: category.Code, Confidence: 0.9, FinalMethod: hybrid.FinalHeuristicOnly}}, pool, reg, preset.Balanced, 30000)
	resp, err := r.RoutePrompt(context.Background(), "Write a Python function to sort a list", preset.Balanced, "user-1", "session-1")
	require.NoError(t, err)
	assert.Equal(t, "claude-3-7-sonnet-20250219", resp.ModelUsed)
	assert.Equal(t, "func Sort() {}", resp.Text)
	assert.False(t, resp.WasTruncated)
	assert.Greater(t, resp.ActualCostUSD, 0.0)

	logs := r.RecentLogs(10)
	require.Len(t, logs, 1)
	assert.Equal(t, "claude-3-7-sonnet-20250219", logs[0].SelectedKey)
	assert.Equal(t, "user-1", logs[0].UserID)

	metrics := r.Metrics()
	assert.Equal(t, 1, metrics.TotalRequests)
}

func TestRoutePromptFallsBackOnBackendFailure(t *testing.T) {
	reg := seededRegistry(t)
	failing := &fakeClient{provider: registry.OpenAI, model: "gpt-5", err: errors.New("upstream 500")}
	fallback := &fakeClient{
		provider: registry.OpenAI,
		model:    "gpt-4o-mini",
		result: backend.GenerateResult{
			Content:      "a fallback reply",
			InputTokens:  5,
			OutputTokens: 5,
		},
	}
	pool := &fakePool{clients: map[string]backend.Client{
		"gpt-5":       failing,
		"gpt-4o-mini": fallback,
	}}

	r := New(&fakeClassifier{result: hybrid.Result{Category: category.MathReasoning, Confidence: 0.9, FinalMethod: hybrid.FinalHeuristicOnly}}, pool, reg, preset.Balanced, 30000)
	resp, err := r.RoutePrompt(context.Background(), "Solve: 2x + 5 = 13", preset.Quality, "", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", resp.ModelUsed)
	assert.Equal(t, "a fallback reply", resp.Text)

	logs := r.RecentLogs(10)
	require.Len(t, logs, 1)
	assert.NotEmpty(t, logs[0].Error)

	d, ok := reg.Get("gpt-5")
	require.True(t, ok)
	assert.False(t, d.Available)
}

func TestRoutePromptReturnsFallbackExhaustedWhenBothFail(t *testing.T) {
	reg := seededRegistry(t)
	failing := &fakeClient{provider: registry.OpenAI, model: "gpt-5", err: errors.New("upstream 500")}
	fallbackFailing := &fakeClient{provider: registry.OpenAI, model: "gpt-4o-mini", err: errors.New("fallback also down")}
	pool := &fakePool{clients: map[string]backend.Client{
		"gpt-5":       failing,
		"gpt-4o-mini": fallbackFailing,
	}}

	r := New(&fakeClassifier{result: hybrid.Result{Category: category.MathReasoning, Confidence: 0.9, FinalMethod: hybrid.FinalHeuristicOnly}}, pool, reg, preset.Balanced, 30000)
	_, err := r.RoutePrompt(context.Background(), "Solve: 2x + 5 = 13", preset.Quality, "", "")
	require.Error(t, err)
	var exhausted *FallbackExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Contains(t, exhausted.OriginalError, "upstream 500")
}

func TestRoutePromptPropagatesNoCandidateModelsError(t *testing.T) {
	reg := registry.New()
	r := New(&fakeClassifier{result: hybrid.Result{Category: category.Code, Confidence: 0.9}}, &fakePool{}, reg, preset.Balanced, 30000)
	_, err := r.RoutePrompt(context.Background(), "hi", preset.Balanced, "", "")
	require.Error(t, err)
}

func TestResetAvailabilityRestoresSelection(t *testing.T) {
	reg := seededRegistry(t)
	reg.MarkUnavailable("gpt-5")
	r := New(&fakeClassifier{}, &fakePool{}, reg, preset.Balanced, 30000)
	r.ResetAvailability()
	d, ok := reg.Get("gpt-5")
	require.True(t, ok)
	assert.True(t, d.Available)
}
