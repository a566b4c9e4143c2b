package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/llmrouter/core/internal/preset"
	"github.com/llmrouter/core/internal/service"
)

// HealthzHandler reports whether the registry holds at least one model.
// It does not attempt to reach any backend provider.
func HealthzHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		models := d.Router.Models()
		w.Header().Set("Content-Type", "application/json")
		if len(models) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "unhealthy", "models": 0})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "models": len(models)})
	}
}

// routeRequest is the POST /v1/route request body.
type routeRequest struct {
	Prompt         string `json:"prompt"`
	PriorityPreset string `json:"priorityPreset"`
	UserID         string `json:"userId"`
	SessionID      string `json:"sessionId"`
}

// RouteHandler runs the classify -> route -> invoke -> fallback pipeline for
// one prompt and records the outcome to metrics.
func RouteHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req routeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json", err.Error())
			return
		}
		if req.Prompt == "" {
			writeError(w, http.StatusBadRequest, "invalid request", "prompt must be a non-empty string")
			return
		}

		p := preset.Preset(req.PriorityPreset)
		if req.PriorityPreset != "" {
			parsed, err := preset.Parse(req.PriorityPreset)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid request", err.Error())
				return
			}
			p = parsed
		}

		resp, err := d.Router.RoutePrompt(r.Context(), req.Prompt, p, req.UserID, req.SessionID)
		if err != nil {
			recordRouteFailure(d, p)
			status := http.StatusInternalServerError
			var inputErr *service.InputError
			switch {
			case errors.As(err, &inputErr):
				status = http.StatusBadRequest
			}
			writeError(w, status, "routing failed", err.Error())
			return
		}

		recordRouteSuccess(d, p, resp)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func recordRouteSuccess(d Dependencies, p preset.Preset, resp service.RouterResponse) {
	status := "ok"
	if resp.Decision.SelectedKey != resp.ModelUsed {
		status = "fallback"
		d.Metrics.FallbackTotal.WithLabelValues(resp.Decision.SelectedKey).Inc()
	}
	d.Metrics.RequestsTotal.WithLabelValues(string(p), resp.ModelUsed, string(resp.Decision.Provider), status).Inc()
	d.Metrics.RequestLatencyMs.WithLabelValues(string(p), resp.ModelUsed, string(resp.Decision.Provider)).Observe(resp.ActualLatencyMs)
	d.Metrics.CostUSD.WithLabelValues(resp.ModelUsed, string(resp.Decision.Provider)).Add(resp.ActualCostUSD)
}

func recordRouteFailure(d Dependencies, p preset.Preset) {
	d.Metrics.RequestsTotal.WithLabelValues(string(p), "", "", "error").Inc()
}

// writeError writes the {"error": ..., "details": ...} envelope used by
// every non-2xx response this package returns.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "details": details})
}

// ModelsListHandler returns a snapshot of the full model registry.
func ModelsListHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"models": d.Router.Models()})
	}
}

type modelsAction struct {
	Action string `json:"action"`
}

// ModelsResetHandler handles PUT /v1/models {"action":"reset"}, restoring
// every model's availability flag. Any other action is rejected.
func ModelsResetHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req modelsAction
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json", err.Error())
			return
		}
		if req.Action != "reset" {
			writeError(w, http.StatusBadRequest, "invalid request", `action must be "reset"`)
			return
		}
		d.Router.ResetAvailability()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"models": d.Router.Models()})
	}
}

// AnalyticsHandler returns the aggregate analytics view.
func AnalyticsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Router.Metrics())
	}
}

// defaultRecentLogs is the fallback page size for GET /v1/analytics/recent
// when the caller omits ?limit=.
const defaultRecentLogs = 50

// AnalyticsRecentHandler returns the n most recent ring-buffer entries,
// oldest first; n is read from ?limit= (default 50).
func AnalyticsRecentHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := defaultRecentLogs
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, "invalid request", "limit must be a non-negative integer")
				return
			}
			n = parsed
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"logs": d.Router.RecentLogs(n)})
	}
}
