// Package transport is the shared HTTP-plus-tracing helper the OpenAI,
// Anthropic and HuggingFace backend clients build their wire calls on.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("modelrouter.backend")

// StatusError is returned when a backend responds with a non-2xx status.
type StatusError struct {
	StatusCode     int
	Body           string
	RetryAfterSecs int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend HTTP %d: %s", e.StatusCode, e.Body)
}

// ParseRetryAfter reads a Retry-After header value (seconds form only).
func (e *StatusError) ParseRetryAfter(v string) {
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		e.RetryAfterSecs = secs
	}
}

// Do sends a JSON POST request and returns the response body. It opens an
// OTel client span per call, forwards caller headers, and propagates the
// W3C trace context into the outbound request.
func Do(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "backend.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", url)),
	)
	defer span.End()

	body, err := do(ctx, client, url, payload, headers, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return body, nil
}

func do(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string, span trace.Span) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
		se.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, se
	}
	return respBody, nil
}
