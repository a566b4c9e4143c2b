// Package openai implements the backend.Client contract for OpenAI's Chat
// Completions API.
package openai

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

const defaultBaseURL = "https://api.openai.com"

// Client sends Chat Completions requests over HTTP.
type Client struct {
	modelName string
	apiKey    string
	baseURL   string
	http      *http.Client
}

// New builds a Client for the given descriptor. apiKey must be non-empty;
// an empty key is a configuration error, not a construction panic.
func New(d registry.Descriptor, apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, &backend.ConfigError{ModelKey: d.Key, Reason: "OPENAI_API_KEY is not set"}
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

func (c *Client) Provider() registry.Provider { return registry.OpenAI }
func (c *Client) ModelName() string           { return c.modelName }

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []chatMessage   `json:"messages"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	Temperature      float64         `json:"temperature"`
	TopP             *float64        `json:"top_p,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Client) Generate(ctx context.Context, prompt string, options backend.GenerateOptions) (backend.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, options.Timeout())
	defer cancel()

	messages := make([]chatMessage, 0, 2)
	if options.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: options.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:            c.modelName,
		Messages:         messages,
		MaxTokens:        options.MaxTokens,
		Temperature:      options.Temperature,
		TopP:             options.TopP,
		FrequencyPenalty: options.FrequencyPenalty,
		PresencePenalty:  options.PresencePenalty,
		Stop:             options.StopSequences,
	}
	if options.JSONMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	start := time.Now()
	body, err := transport.Do(ctx, c.http, c.baseURL+"/v1/chat/completions", req, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	latency := time.Since(start)
	if err != nil {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.OpenAI), Cause: err}
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.OpenAI), Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.OpenAI), Cause: fmt.Errorf("empty choices in response")}
	}

	return backend.GenerateResult{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		LatencyMs:    float64(latency.Milliseconds()),
		Timestamp:    time.Now(),
	}, nil
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
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
