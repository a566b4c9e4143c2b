// Package google implements the backend.Client contract for Google's
// Gemini models via the genai SDK.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/registry"
)

// Client wraps a genai.GenerativeModel bound to a single Gemini model.
type Client struct {
	modelName string
	model     *genai.GenerativeModel
	client    *genai.Client
}

// New builds a Client for the given descriptor. An empty apiKey is a
// configuration error, not a construction panic.
func New(ctx context.Context, d registry.Descriptor, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, &backend.ConfigError{ModelKey: d.Key, Reason: "GOOGLE_API_KEY is not set"}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := client.GenerativeModel(d.ProviderModelName)
	return &Client{modelName: d.ProviderModelName, model: model, client: client}, nil
}

func (c *Client) Provider() registry.Provider { return registry.Google }
func (c *Client) ModelName() string            { return c.modelName }

func (c *Client) Generate(ctx context.Context, prompt string, options backend.GenerateOptions) (backend.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, options.Timeout())
	defer cancel()

	c.configure(options)

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	latency := time.Since(start)
	if err != nil {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.Google), Cause: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return backend.GenerateResult{}, &backend.Error{ModelKey: c.modelName, Provider: string(registry.Google), Cause: errors.New("no content returned from Gemini")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	result := backend.GenerateResult{
		Content:   strings.TrimSpace(text.String()),
		LatencyMs: float64(latency.Milliseconds()),
		Timestamp: time.Now(),
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

func (c *Client) configure(options backend.GenerateOptions) {
	c.model.SetTemperature(float32(options.Temperature))
	if options.TopP != nil {
		c.model.SetTopP(float32(*options.TopP))
	}
	if options.MaxTokens > 0 {
		c.model.SetMaxOutputTokens(int32(options.MaxTokens))
	} else {
		c.model.SetMaxOutputTokens(4096)
	}
	if options.SystemPrompt != "" {
		c.model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(options.SystemPrompt)}}
	}
	if len(options.StopSequences) > 0 {
		c.model.StopSequences = options.StopSequences
	}
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.model.CountTokens(ctx, genai.Text("ping"))
	return err == nil
}

// Close releases the underlying genai client. Not part of backend.Client;
// backend.Pool does not call it.
func (c *Client) Close() error {
	return c.client.Close()
}
