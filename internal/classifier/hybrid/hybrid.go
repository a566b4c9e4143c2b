// Package hybrid implements the hybrid classifier: run the heuristic first,
// fall back to the model classifier only when the heuristic isn't
// confident, and reconcile disagreements.
package hybrid

import (
	"context"
	"fmt"
	"time"

	"github.com/llmrouter/core/internal/category"
	"github.com/llmrouter/core/internal/classifier/heuristic"
	"github.com/llmrouter/core/internal/classifier/model"
)

// Final-method labels reported in Result.FinalMethod.
const (
	FinalHeuristicOnly     = "heuristic_only"
	FinalHeuristicFallback = "heuristic_fallback"
	FinalHeuristic         = "heuristic"
	FinalModel             = "model"
)

// Result is the hybrid classifier's output contract.
type Result struct {
	Category        category.Category
	Confidence      float64
	Method          string
	HeuristicResult heuristic.Result
	ModelResult     *model.Result
	FinalMethod     string
	Reasoning       string
	TotalMs         float64
}

// ModelClassifier is the subset of model.Classifier the hybrid classifier
// needs; satisfied by *model.Classifier.
type ModelClassifier interface {
	Classify(ctx context.Context, prompt string) model.Result
}

// Classifier runs the heuristic-first, model-fallback algorithm.
type Classifier struct {
	model ModelClassifier
}

// New builds a Classifier dispatching to modelClassifier when the heuristic
// isn't confident enough.
func New(modelClassifier ModelClassifier) *Classifier {
	return &Classifier{model: modelClassifier}
}

// Classify runs the full hybrid algorithm (spec section 4.3).
func (c *Classifier) Classify(ctx context.Context, prompt string) Result {
	start := time.Now()
	h := heuristic.Classify(prompt)

	if h.Sufficient() {
		return Result{
			Category:        h.Category,
			Confidence:      h.Confidence,
			Method:          FinalHeuristicOnly,
			HeuristicResult: h,
			FinalMethod:     FinalHeuristicOnly,
			Reasoning:       fmt.Sprintf("heuristic confidence %.2f met the 0.70 threshold: %s", h.Confidence, h.Reasoning),
			TotalMs:         float64(time.Since(start).Milliseconds()),
		}
	}

	m := c.model.Classify(ctx, prompt)
	if m.Failed {
		degradedConfidence := h.Confidence / 2
		if degradedConfidence < 0.1 {
			degradedConfidence = 0.1
		}
		return Result{
			Category:        h.Category,
			Confidence:      degradedConfidence,
			Method:          FinalHeuristicFallback,
			HeuristicResult: h,
			ModelResult:     &m,
			FinalMethod:     FinalHeuristicFallback,
			Reasoning:       fmt.Sprintf("model classifier unavailable (%s); degraded heuristic confidence from %.2f to %.2f", m.Reasoning, h.Confidence, degradedConfidence),
			TotalMs:         float64(time.Since(start).Milliseconds()),
		}
	}

	return reconcile(h, m, start)
}

// reconcile implements spec section 4.3 step 4: same category picks the
// higher-confidence result; different category adopts the model only when
// strictly more confident than the heuristic.
func reconcile(h heuristic.Result, m model.Result, start time.Time) Result {
	totalMs := float64(time.Since(start).Milliseconds())

	if h.Category == m.Category {
		if m.Confidence > h.Confidence {
			return Result{
				Category:        m.Category,
				Confidence:      m.Confidence,
				Method:          FinalModel,
				HeuristicResult: h,
				ModelResult:     &m,
				FinalMethod:     FinalModel,
				Reasoning:       fmt.Sprintf("heuristic and model agree on %s; model confidence %.2f exceeds heuristic %.2f", h.Category, m.Confidence, h.Confidence),
				TotalMs:         totalMs,
			}
		}
		return Result{
			Category:        h.Category,
			Confidence:      h.Confidence,
			Method:          FinalHeuristic,
			HeuristicResult: h,
			ModelResult:     &m,
			FinalMethod:     FinalHeuristic,
			Reasoning:       fmt.Sprintf("heuristic and model agree on %s; heuristic confidence %.2f is at least as high as model %.2f", h.Category, h.Confidence, m.Confidence),
			TotalMs:         totalMs,
		}
	}

	gap := m.Confidence - h.Confidence
	if gap > 0 {
		note := ""
		if gap > 0.2 {
			note = " (gap exceeds 0.2)"
		}
		return Result{
			Category:        m.Category,
			Confidence:      m.Confidence,
			Method:          FinalModel,
			HeuristicResult: h,
			ModelResult:     &m,
			FinalMethod:     FinalModel,
			Reasoning:       fmt.Sprintf("heuristic picked %s (%.2f), model picked %s (%.2f); adopting model%s", h.Category, h.Confidence, m.Category, m.Confidence, note),
			TotalMs:         totalMs,
		}
	}

	return Result{
		Category:        h.Category,
		Confidence:      h.Confidence,
		Method:          FinalHeuristic,
		HeuristicResult: h,
		ModelResult:     &m,
		FinalMethod:     FinalHeuristic,
		Reasoning:       fmt.Sprintf("heuristic picked %s (%.2f), model picked %s (%.2f); adopting heuristic", h.Category, h.Confidence, m.Category, m.Confidence),
		TotalMs:         totalMs,
	}
}
