// Package anthropic implements the backend.Client contract for Anthropic's
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/backend/transport"
	"github.com/llmrouter/core/internal/registry"
)

const (
	defaultBaseURL        = "https://api.anthropic.com"
	defaultMaxTokensFloor = 4096
	anthropicVersion      = "2023-06-01"
)

// Client sends Messages API requests over HTTP.
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
		return nil, &backend.ConfigError{ModelKey: d.Key, Reason: "ANTHROPIC_API_KEY is not set"}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		modelName: d.ProviderModelName,
		apiKey:    apiKey,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Client) Provider() registry.Provider { return registry.Anthropic }
func (c *Client) ModelName() string           { return c.modelName }

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        *float64  `json:"top_p,omitempty"`
	StopSeqs    []string  `json:"stop_sequences,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) Generate(ctx context.Context, prompt string, options backend.GenerateOptions) (backend.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, options.Timeout())
	defer cancel()

	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokensFloor
	}

	req := messagesRequest{
		Model:       c.modelName,
		System:      options.SystemPrompt,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		StopSeqs:    options.StopSequences,
	}

	start := time.Now()
	body, err := transport.Do(ctx, c.http, c.baseURL+"/v1/messages", req, map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	})
	latency := time.Since(start)
	if err != nil {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.Anthropic), Cause: err}
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.Anthropic), Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Content) == 0 {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.Anthropic), Cause: fmt.Errorf("empty content in response")}
	}

	text := ""
	for _, block := range resp.Content {
		text += block.Text
	}

	return backend.GenerateResult{
		Content:      text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		LatencyMs:    float64(latency.Milliseconds()),
		Timestamp:    time.Now(),
	}, nil
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	// A GET against the messages endpoint returns 405, proving reachability
	// without spending a completion.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/messages", nil)
	if err != nil {
		return false
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < 500
}
