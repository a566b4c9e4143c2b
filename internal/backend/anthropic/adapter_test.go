package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/registry"
)

func TestNewRejectsEmptyAPIKey(t *testing.T) {
	_, err := New(registry.Descriptor{Key: "claude-3-7-sonnet-20250219", ProviderModelName: "claude-3-7-sonnet-20250219"}, "", "")
	require.Error(t, err)
	var cfgErr *backend.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGenerateParsesContentAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"text": "an answer"}},
			"usage":   map[string]any{"input_tokens": 3, "output_tokens": 7},
		})
	}))
	defer srv.Close()

	c, err := New(registry.Descriptor{Key: "claude-3-7-sonnet-20250219", ProviderModelName: "claude-3-7-sonnet-20250219"}, "test-key", srv.URL)
	require.NoError(t, err)

	result, err := c.Generate(context.Background(), "hi", backend.GenerateOptions{MaxTokens: 100, TimeoutMs: 5000})
	require.NoError(t, err)
	assert.Equal(t, "an answer", result.Content)
	assert.Equal(t, 3, result.InputTokens)
	assert.Equal(t, 7, result.OutputTokens)
}

func TestGenerateDefaultsMaxTokensWhenUnset(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"text": "ok"}},
		})
	}))
	defer srv.Close()

	c, err := New(registry.Descriptor{Key: "claude-3-7-sonnet-20250219", ProviderModelName: "claude-3-7-sonnet-20250219"}, "test-key", srv.URL)
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "hi", backend.GenerateOptions{TimeoutMs: 5000})
	require.NoError(t, err)
	assert.EqualValues(t, defaultMaxTokensFloor, captured["max_tokens"])
}

func TestGenerateSurfacesBackendErrorOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer srv.Close()

	c, err := New(registry.Descriptor{Key: "claude-3-7-sonnet-20250219", ProviderModelName: "claude-3-7-sonnet-20250219"}, "test-key", srv.URL)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "hi", backend.GenerateOptions{TimeoutMs: 5000})
	require.Error(t, err)
	var beErr *backend.Error
	assert.ErrorAs(t, err, &beErr)
}
