// Package huggingface implements the backend.Client contract for the
// HuggingFace Inference API over plain net/http — no HuggingFace-specific
// client library appears anywhere in the example pack, so this adapter uses
// the shared transport helper directly rather than a provider SDK.
package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/backend/transport"
	"github.com/llmrouter/core/internal/registry"
)

const defaultBaseURL = "https://api-inference.huggingface.co"

// Client sends text-generation requests to the HuggingFace Inference API.
type Client struct {
	modelName string
	apiKey    string
	baseURL   string
	http      *http.Client
}

// New builds a Client for the given descriptor. An empty apiKey is a
// configuration error, not a construction panic.
func New(d registry.Descriptor, apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, &backend.ConfigError{ModelKey: d.Key, Reason: "HUGGINGFACE_API_KEY is not set"}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		modelName: d.ProviderModelName,
		apiKey:    apiKey,
		baseURL:   baseURL,
		http:      &http.Client{},
	}, nil
}

func (c *Client) Provider() registry.Provider { return registry.HuggingFace }
func (c *Client) ModelName() string           { return c.modelName }

type generationRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generationParams   `json:"parameters"`
}

type generationParams struct {
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	TopP         *float64 `json:"top_p,omitempty"`
	ReturnFullText bool  `json:"return_full_text"`
}

type generationResponseItem struct {
	GeneratedText string `json:"generated_text"`
}

func (c *Client) Generate(ctx context.Context, prompt string, options backend.GenerateOptions) (backend.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, options.Timeout())
	defer cancel()

	req := generationRequest{
		Inputs: prompt,
		Parameters: generationParams{
			MaxNewTokens:   options.MaxTokens,
			Temperature:    options.Temperature,
			TopP:           options.TopP,
			ReturnFullText: false,
		},
	}

	start := time.Now()
	body, err := transport.Do(ctx, c.http, c.baseURL+"/models/"+c.modelName, req, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	latency := time.Since(start)
	if err != nil {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.HuggingFace), Cause: err}
	}

	var items []generationResponseItem
	if err := json.Unmarshal(body, &items); err != nil {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.HuggingFace), Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(items) == 0 {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.HuggingFace), Cause: fmt.Errorf("empty generation response")}
	}

	text := items[0].GeneratedText
	return backend.GenerateResult{
		Content:      text,
		InputTokens:  estimateTokens(prompt),
		OutputTokens: estimateTokens(text),
		LatencyMs:    float64(latency.Milliseconds()),
		Timestamp:    time.Now(),
	}, nil
}

// estimateTokens applies the router-wide chars/4 heuristic: the HuggingFace
// Inference API does not return token counts in its response payload.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(strings.TrimSpace(s)) + 3) / 4
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models/"+c.modelName, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < 500
}
