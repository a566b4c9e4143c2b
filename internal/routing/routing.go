// Package routing implements the routing engine: filter the registry by
// capability, context window and availability, score survivors under a
// priority preset, and return a ranked decision with fallback and
// alternatives.
package routing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/llmrouter/core/internal/category"
	"github.com/llmrouter/core/internal/preset"
	"github.com/llmrouter/core/internal/registry"
)

// NoCandidateModelsError is raised when filtering yields zero models.
type NoCandidateModelsError struct {
	Category category.Category
}

func (e *NoCandidateModelsError) Error() string {
	return fmt.Sprintf("no candidate models available for category %s", e.Category)
}

// Alternative is one ranked also-ran in a RoutingDecision.
type Alternative struct {
	Key             string            `json:"key"`
	Score           float64           `json:"score"`
	Reason          string            `json:"reason"`
	Provider        registry.Provider `json:"provider"`
	QualityScore    float64           `json:"qualityScore"`
	CostPer1kTokens float64           `json:"costPer1kTokens"`
	LatencyMs       float64           `json:"latencyMs"`
}

// Decision is the routing engine's output contract.
type Decision struct {
	SelectedKey        string            `json:"selectedKey"`
	Provider           registry.Provider `json:"provider"`
	Category           category.Category `json:"category"`
	FallbackKey        string            `json:"fallbackKey,omitempty"`
	Reasoning          string            `json:"reasoning"`
	Confidence         float64           `json:"confidence"`
	EstimatedCostUsd   float64           `json:"estimatedCostUsd"`
	EstimatedLatencyMs float64           `json:"estimatedLatencyMs"`
	Score              float64           `json:"score"`
	PriorityWeights    preset.Weights    `json:"priorityWeights"`
	Alternatives       []Alternative     `json:"alternatives"`
}

// EstimateTokens applies the router-wide chars/4 heuristic used both for
// context-window filtering and cost estimation.
func EstimateTokens(prompt string) int {
	if prompt == "" {
		return 0
	}
	return (len(prompt) + 3) / 4
}

type candidateScore struct {
	descriptor registry.Descriptor
	score      float64
}

// Decide runs the full filter+score+select algorithm over snapshot (the
// registry's current view) for one (prompt, category, preset) triple.
func Decide(prompt string, cat category.Category, p preset.Preset, snapshot []registry.Descriptor) (Decision, error) {
	estimatedTokens := EstimateTokens(prompt)

	candidates := filterCandidates(cat, estimatedTokens, snapshot)
	if len(candidates) == 0 {
		return Decision{}, &NoCandidateModelsError{Category: cat}
	}

	weights := preset.Resolve(p)
	scored := scoreCandidates(candidates, cat, weights, estimatedTokens)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	selected := scored[0]
	fallbackKey := findFallback(scored, selected.descriptor.Key)
	alternatives := buildAlternatives(scored, selected, cat)

	confidence := decisionConfidence(scored)
	reasoning := buildReasoning(weights, selected.descriptor, estimatedTokens)

	estimatedInputTokens := estimatedTokens
	estimatedOutputTokens := category.Lookup(cat).EstimatedOutputTokens
	estimatedCost := (float64(estimatedInputTokens)/1e6)*selected.descriptor.PriceInputPerMillion +
		(float64(estimatedOutputTokens)/1e6)*selected.descriptor.PriceOutputPerMillion

	return Decision{
		SelectedKey:        selected.descriptor.Key,
		Provider:           selected.descriptor.Provider,
		Category:           cat,
		FallbackKey:        fallbackKey,
		Reasoning:          reasoning,
		Confidence:         confidence,
		EstimatedCostUsd:   estimatedCost,
		EstimatedLatencyMs: selected.descriptor.LatencyMs(),
		Score:              selected.score,
		PriorityWeights:    weights,
		Alternatives:       alternatives,
	}, nil
}

func filterCandidates(cat category.Category, estimatedTokens int, snapshot []registry.Descriptor) []registry.Descriptor {
	var out []registry.Descriptor
	for _, d := range snapshot {
		if !d.HasCategory(cat) {
			continue
		}
		if d.ContextWindowTokens < estimatedTokens {
			continue
		}
		if !d.Available {
			continue
		}
		out = append(out, d)
	}
	return out
}

func scoreCandidates(candidates []registry.Descriptor, cat category.Category, w preset.Weights, estimatedTokens int) []candidateScore {
	maxC, minC := priceBounds(candidates)
	maxLatencyMs := maxLatency(candidates)
	maxThroughput := maxThroughputTps(candidates)

	out := make([]candidateScore, 0, len(candidates))
	for _, d := range candidates {
		score := qualityContribution(d, cat, w) +
			costContribution(d, w, maxC, minC) +
			latencyContribution(d, w, maxLatencyMs) +
			contextBonus(d, estimatedTokens) +
			throughputBonus(d, maxThroughput)
		out = append(out, candidateScore{descriptor: d, score: score})
	}
	return out
}

func qualityContribution(d registry.Descriptor, cat category.Category, w preset.Weights) float64 {
	q := d.QualityPrior(cat)
	qPrime := q
	if w.Quality > 0.5 {
		qPrime = math.Pow(q, 0.3)
		if q > 0.9 {
			qPrime += 0.1
		}
	}
	return qPrime * w.Quality
}

func costContribution(d registry.Descriptor, w preset.Weights, maxC, minC float64) float64 {
	price := d.PriceInputPerMillion
	var costScore float64
	switch {
	case maxC == 0:
		costScore = 0.5
	case w.Cost > 0.4:
		costScore = 1 - price/maxC
	default:
		if price == 0 {
			costScore = 0.6
		} else {
			n := (price - minC) / (maxC - minC)
			costScore = 1 - math.Log(1+2*n)/math.Log(3)
		}
		if w.Quality > 0.6 {
			floor := 0.4
			if d.IsPremium() {
				floor = 0.6
			}
			if costScore < floor {
				costScore = floor
			}
		}
	}
	return costScore * w.Cost
}

func latencyContribution(d registry.Descriptor, w preset.Weights, maxLatencyMs float64) float64 {
	latScore := 1.0
	if maxLatencyMs > 0 {
		latScore = 1 - d.LatencyMs()/maxLatencyMs
	}
	if w.Quality > 0.6 && d.IsPremium() {
		if latScore < 0 {
			latScore = 0
		}
		latScore = math.Sqrt(latScore)
	}
	return latScore * w.Latency
}

func contextBonus(d registry.Descriptor, estimatedTokens int) float64 {
	if estimatedTokens <= 1000 {
		return 0
	}
	bonus := float64(d.ContextWindowTokens-estimatedTokens) / 10000
	if bonus > 0.1 {
		bonus = 0.1
	}
	if bonus < 0 {
		bonus = 0
	}
	return bonus
}

func throughputBonus(d registry.Descriptor, maxThroughput float64) float64 {
	if maxThroughput == 0 {
		return 0
	}
	return 0.05 * d.ThroughputTps() / maxThroughput
}

func priceBounds(candidates []registry.Descriptor) (maxC, minC float64) {
	minC = math.Inf(1)
	for _, d := range candidates {
		if d.PriceInputPerMillion > maxC {
			maxC = d.PriceInputPerMillion
		}
		if d.PriceInputPerMillion < minC {
			minC = d.PriceInputPerMillion
		}
	}
	if math.IsInf(minC, 1) {
		minC = 0
	}
	return maxC, minC
}

func maxLatency(candidates []registry.Descriptor) float64 {
	var result float64
	for _, d := range candidates {
		if d.LatencyMs() > result {
			result = d.LatencyMs()
		}
	}
	return result
}

func maxThroughputTps(candidates []registry.Descriptor) float64 {
	var result float64
	for _, d := range candidates {
		if d.ThroughputTps() > result {
			result = d.ThroughputTps()
		}
	}
	return result
}

func findFallback(scored []candidateScore, selectedKey string) string {
	for _, s := range scored {
		if s.descriptor.Key == selectedKey {
			continue
		}
		if s.descriptor.Available {
			return s.descriptor.Key
		}
	}
	return ""
}

func buildAlternatives(scored []candidateScore, selected candidateScore, cat category.Category) []Alternative {
	var out []Alternative
	for _, s := range scored {
		if s.descriptor.Key == selected.descriptor.Key {
			continue
		}
		if !s.descriptor.Available {
			continue
		}
		out = append(out, Alternative{
			Key:             s.descriptor.Key,
			Score:           s.score,
			Reason:          compareReason(s.descriptor, selected.descriptor),
			Provider:        s.descriptor.Provider,
			QualityScore:    s.descriptor.QualityPrior(cat),
			CostPer1kTokens: s.descriptor.PriceInputPer1k(),
			LatencyMs:       s.descriptor.LatencyMs(),
		})
		if len(out) == 4 {
			break
		}
	}
	return out
}

func compareReason(alt, selected registry.Descriptor) string {
	var parts []string
	if alt.LatencyMs() < selected.LatencyMs() {
		parts = append(parts, "lower latency")
	} else if alt.LatencyMs() > selected.LatencyMs() {
		parts = append(parts, "higher latency")
	}
	if alt.PriceInputPerMillion < selected.PriceInputPerMillion {
		parts = append(parts, "lower cost")
	} else if alt.PriceInputPerMillion > selected.PriceInputPerMillion {
		parts = append(parts, "higher cost")
	}
	if alt.ContextWindowTokens > selected.ContextWindowTokens {
		parts = append(parts, "larger context window")
	}
	if len(parts) == 0 {
		return "comparable to the selected model"
	}
	return strings.Join(parts, ", ") + " than the selected model"
}

func decisionConfidence(scored []candidateScore) float64 {
	if len(scored) == 1 {
		return 1.0
	}
	top := scored[0].score
	runnerUp := scored[1].score
	if runnerUp == 0 {
		return 1.0
	}
	denom := math.Max(top, runnerUp)
	if denom == 0 {
		return 1.0
	}
	confidence := 0.5 + 0.5*(top-runnerUp)/denom
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

func buildReasoning(w preset.Weights, selected registry.Descriptor, estimatedTokens int) string {
	dominant := dominantPriority(w)
	var b strings.Builder
	b.WriteString(dominant)
	if estimatedTokens > 100000 {
		b.WriteString(fmt.Sprintf("; request needs a large context window (%d estimated tokens)", estimatedTokens))
	}
	b.WriteString(fmt.Sprintf("; throughput ~%.0f tokens/sec", selected.ThroughputTps()))
	return b.String()
}

func dominantPriority(w preset.Weights) string {
	top := w.Quality
	label := "optimized for quality"
	if w.Cost > top {
		top = w.Cost
		label = "optimized for cost"
	}
	if w.Latency > top {
		top = w.Latency
		label = "optimized for latency"
	}
	if w.Quality == w.Cost && w.Cost == w.Latency {
		return "balanced performance"
	}
	return label
}

// MarkModelUnavailable and ResetAllAvailability are thin delegations to the
// registry, kept here so callers route every mutation of the routing
// decision surface through this package rather than reaching into
// internal/registry directly.
func MarkModelUnavailable(reg *registry.Registry, key string) {
	reg.MarkUnavailable(key)
}

func ResetAllAvailability(reg *registry.Registry) {
	reg.ResetAll()
}
