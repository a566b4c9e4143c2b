// Package model implements the model-backed prompt classifier: it asks a
// designated LLM backend to categorize a prompt and parses its structured
// reply.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/category"
)

// Method names the classification pathway, echoed into classifier results.
const Method = "model"

// DefaultClassifierKey is the backend.Pool key the model classifier
// dispatches to unless overridden.
const DefaultClassifierKey = "gpt-4o-mini"

const systemPrompt = "You are a prompt classification expert. Classify the user's prompt into exactly one category and reply with a single JSON object."

var jsonBlockPattern = regexp.MustCompile(`\{[^{}]*\}`)

// Resolver is the subset of backend.Pool the classifier needs.
type Resolver interface {
	Resolve(keyOrAlias string) (backend.Client, error)
}

// Result is the model classifier's output contract.
type Result struct {
	Category    category.Category
	Confidence  float64
	Method      string
	ModelUsed   string
	LatencyMs   float64
	Reasoning   string
	RawResponse string
	// Failed is true when Classify degraded to UNKNOWN/0.1 because of a
	// transport or parse failure, as opposed to the model genuinely
	// reaching that verdict on its own. The hybrid classifier uses this to
	// distinguish "model said UNKNOWN" from "model classifier is down".
	Failed bool
}

// Classifier dispatches classification prompts to a backend client pool.
type Classifier struct {
	pool          Resolver
	classifierKey string
}

// New builds a Classifier that dispatches to classifierKey (default
// DefaultClassifierKey when empty).
func New(pool Resolver, classifierKey string) *Classifier {
	if classifierKey == "" {
		classifierKey = DefaultClassifierKey
	}
	return &Classifier{pool: pool, classifierKey: classifierKey}
}

type replyPayload struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classify never returns an error: any transport or parse failure degrades
// to UNKNOWN/0.1 with the failure recorded in Reasoning, per spec section 4.2.
func (c *Classifier) Classify(ctx context.Context, prompt string) Result {
	client, err := c.pool.Resolve(c.classifierKey)
	if err != nil {
		return degraded(fmt.Sprintf("resolving classifier backend %q: %v", c.classifierKey, err))
	}

	userPrompt := buildUserPrompt(prompt)

	start := time.Now()
	genResult, err := client.Generate(ctx, userPrompt, backend.GenerateOptions{
		MaxTokens:    200,
		Temperature:  0.1,
		TimeoutMs:    30000,
		SystemPrompt: systemPrompt,
	})
	latency := time.Since(start)
	if err != nil {
		return degraded(fmt.Sprintf("classifier backend call failed: %v", err))
	}

	result := parseReply(genResult.Content)
	result.ModelUsed = client.ModelName()
	result.LatencyMs = float64(latency.Milliseconds())
	return result
}

func buildUserPrompt(prompt string) string {
	var b strings.Builder
	b.WriteString("Choose exactly one of CODE | SUMMARIZE | QA | CREATIVE for the prompt below.\n")
	b.WriteString("Reply with JSON only: {\"category\": string, \"confidence\": number, \"reasoning\": string}.\n\n")
	b.WriteString("Prompt:\n")
	b.WriteString(prompt)
	return b.String()
}

// parseReply implements spec section 4.2's parsing algorithm: extract the
// first {...} block, decode it, validate all three fields, map the category
// string case-insensitively (MATH_REASONING is never produced here), clamp
// confidence to [0,1]. Any failure degrades to UNKNOWN/0.1, never panics.
func parseReply(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	block := jsonBlockPattern.FindString(trimmed)
	if block == "" {
		return degraded("no JSON object found in model reply", raw)
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return degraded(fmt.Sprintf("failed to decode model reply: %v", err), raw)
	}
	var fields map[string]json.RawMessage
	_ = json.Unmarshal([]byte(block), &fields)
	for _, f := range []string{"category", "confidence", "reasoning"} {
		if _, ok := fields[f]; !ok {
			return degraded(fmt.Sprintf("model reply missing %s field", f), raw)
		}
	}
	if payload.Category == "" {
		return degraded("model reply missing category field", raw)
	}

	cat := mapCategory(payload.Category)
	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	reasoning := payload.Reasoning
	if reasoning == "" {
		reasoning = fmt.Sprintf("model classified prompt as %s", cat)
	}

	return Result{
		Category:    cat,
		Confidence:  confidence,
		Method:      Method,
		Reasoning:   reasoning,
		RawResponse: raw,
	}
}

// mapCategory maps a model-reported category string case-insensitively.
// MATH_REASONING is excluded from the model's taxonomy by design — the
// heuristic remains the sole producer of that label — so any such string
// from the model maps to UNKNOWN like any other unrecognized value.
func mapCategory(s string) category.Category {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CODE":
		return category.Code
	case "SUMMARIZE":
		return category.Summarize
	case "QA":
		return category.QA
	case "CREATIVE":
		return category.Creative
	default:
		return category.Unknown
	}
}

func degraded(reasoning string, raw ...string) Result {
	rawResponse := ""
	if len(raw) > 0 {
		rawResponse = raw[0]
	}
	return Result{
		Category:    category.Unknown,
		Confidence:  0.1,
		Method:      Method,
		Reasoning:   reasoning,
		RawResponse: rawResponse,
		Failed:      true,
	}
}
