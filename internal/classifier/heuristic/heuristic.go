// Package heuristic implements the keyword-overlap prompt classifier.
package heuristic

import (
	"fmt"
	"strings"

	"github.com/llmrouter/core/internal/category"
)

// Method names the classification pathway, echoed into classifier results.
const Method = "heuristic"

// Result is the heuristic classifier's output contract.
type Result struct {
	Category        category.Category
	Confidence      float64
	Method          string
	MatchedKeywords []string
	Reasoning       string
}

// SufficientThreshold is the confidence the hybrid classifier treats as
// "good enough to skip the model classifier".
const SufficientThreshold = 0.7

// Sufficient reports whether r's confidence clears SufficientThreshold.
func (r Result) Sufficient() bool {
	return r.Confidence >= SufficientThreshold
}

// categoryScore holds one category's raw keyword-match score, used while
// picking the winner and computing the runner-up gap.
type categoryScore struct {
	cat     category.Category
	score   float64
	matched []string
}

// Classify scores prompt against every scored category's keyword list and
// returns the winner. Ties are broken by category.Scored's iteration order.
// Every rawScore of 0 yields UNKNOWN with confidence 0.1.
func Classify(prompt string) Result {
	lower := strings.ToLower(prompt)

	scores := make([]categoryScore, 0, len(category.Scored))
	for _, c := range category.Scored {
		keywords := category.Lookup(c).Keywords
		matched := matchedKeywords(lower, keywords)
		scores = append(scores, categoryScore{cat: c, score: rawScore(matched, keywords), matched: matched})
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.score > best.score {
			best = s
		}
	}

	if best.score == 0 {
		return Result{
			Category:   category.Unknown,
			Confidence: 0.1,
			Method:     Method,
			Reasoning:  "no keyword matched any category",
		}
	}

	confidence := adjustedConfidence(best.score, scores, best.cat)

	return Result{
		Category:        best.cat,
		Confidence:      confidence,
		Method:          Method,
		MatchedKeywords: best.matched,
		Reasoning:       fmt.Sprintf("matched %d keyword(s) for %s", len(best.matched), best.cat),
	}
}

func matchedKeywords(lowerPrompt string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lowerPrompt, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// rawScore implements matchRatio + exactBonus, clamped to 1.0.
func rawScore(matched, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	matchRatio := float64(len(matched)) / float64(len(keywords))
	exactBonus := 0.1 * float64(len(matched))
	raw := matchRatio + exactBonus
	if raw > 1.0 {
		raw = 1.0
	}
	return raw
}

// adjustedConfidence applies the gap-to-runner-up bonus and clamps to [0, 0.9].
func adjustedConfidence(topScore float64, scores []categoryScore, topCat category.Category) float64 {
	runnerUp := 0.0
	for _, s := range scores {
		if s.cat == topCat {
			continue
		}
		if s.score > runnerUp {
			runnerUp = s.score
		}
	}
	gap := topScore - runnerUp

	confidence := topScore
	if gap > 0.3 {
		confidence += 0.2
	}
	if gap > 0.5 {
		confidence += 0.1
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 0.9 {
		confidence = 0.9
	}
	return confidence
}
