package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/category"
	"github.com/llmrouter/core/internal/classifier/hybrid"
	"github.com/llmrouter/core/internal/metrics"
	"github.com/llmrouter/core/internal/preset"
	"github.com/llmrouter/core/internal/registry"
	"github.com/llmrouter/core/internal/service"
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

func newTestRouter(t *testing.T) *service.Router {
	t.Helper()
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
	cls := &fakeClassifier{result: hybrid.Result{Category: category.Code, Confidence: 0.9, FinalMethod: hybrid.FinalHeuristicOnly}}
	return service.New(cls, pool, reg, preset.Balanced, 30000)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	MountRoutes(r, Dependencies{Router: newTestRouter(t), Metrics: metrics.New()})
	return httptest.NewServer(r)
}

func TestHealthzReportsOKWhenModelsRegistered(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouteHandlerReturnsRouterResponse(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"prompt": "Write a Python function to sort a list"})
	resp, err := http.Post(srv.URL+"/v1/route", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out service.RouterResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "claude-3-7-sonnet-20250219", out.ModelUsed)
	assert.Equal(t, "func Sort() {}", out.Text)
}

func TestRouteHandlerRejectsMissingPrompt(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{})
	resp, err := http.Post(srv.URL+"/v1/route", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouteHandlerRejectsUnknownPreset(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"prompt": "hello", "priorityPreset": "fastest"})
	resp, err := http.Post(srv.URL+"/v1/route", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestModelsListReturnsRegistrySnapshot(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Models []registry.Descriptor `json:"models"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Models)
}

func TestModelsResetRejectsUnknownAction(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"action": "disable"})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/models", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestModelsResetRestoresAvailability(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"action": "reset"})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/models", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyticsReturnsZeroedMetricsBeforeAnyRequest(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/analytics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out service.Metrics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 0, out.TotalRequests)
}

func TestAnalyticsRecentReflectsLoggedRequests(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"prompt": "Write a Python function to sort a list"})
	routeResp, err := http.Post(srv.URL+"/v1/route", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	routeResp.Body.Close()

	resp, err := http.Get(srv.URL + "/v1/analytics/recent?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Logs []service.RequestLogEntry `json:"logs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Logs, 1)
	assert.Equal(t, "claude-3-7-sonnet-20250219", out.Logs[0].SelectedKey)
}

func TestAnalyticsRecentRejectsNegativeLimit(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/analytics/recent?limit=-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
