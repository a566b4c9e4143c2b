package service

import (
	"strings"

	"github.com/llmrouter/core/internal/category"
)

// generationDefault is one row of the per-category temperature/maxTokens
// table (spec section 4.5).
type generationDefault struct {
	Temperature float64
	MaxTokens   int
}

var generationDefaults = map[category.Category]generationDefault{
	category.Code:          {Temperature: 0.1, MaxTokens: 2000},
	category.Summarize:     {Temperature: 0.3, MaxTokens: 1500},
	category.QA:            {Temperature: 0.2, MaxTokens: 2000},
	category.Creative:      {Temperature: 0.8, MaxTokens: 2500},
	category.MathReasoning: {Temperature: 0.1, MaxTokens: 3000},
	category.Unknown:       {Temperature: 0.5, MaxTokens: 1500},
}

// resolveGenerationDefaults looks up the tabled temperature/maxTokens for
// cat, then widens maxTokens to max(2*estimatedOutputTokens, 1500) when the
// category mapping's baseline output estimate suggests a larger figure —
// the spec's intent is to always grant at least 1,500 output tokens.
func resolveGenerationDefaults(cat category.Category) (temperature float64, maxTokens int) {
	d, ok := generationDefaults[cat]
	if !ok {
		d = generationDefaults[category.Unknown]
	}
	widened := category.Lookup(cat).EstimatedOutputTokens * 2
	if widened < 1500 {
		widened = 1500
	}
	maxTokens = d.MaxTokens
	if widened > maxTokens {
		maxTokens = widened
	}
	return d.Temperature, maxTokens
}

// truncationLimit is the character cap from spec section 4.5.3.
const truncationLimit = 3000

// truncate implements spec section 4.5.3: if text fits within
// truncationLimit, return it unchanged. Otherwise locate the last '.' or
// '\n' at or before truncationLimit; if that cut position exceeds 0.8 times
// the limit, cut there and append an ellipsis. Otherwise — including the
// cut==0 edge case, when the only match sits at the very start of the
// string — return the text unchanged, per the documented design note.
func truncate(text string) (result string, wasTruncated bool) {
	if len(text) <= truncationLimit {
		return text, false
	}

	window := text[:truncationLimit+1]
	cut := lastIndexOfAny(window, '.', '\n')
	if float64(cut) > 0.8*float64(truncationLimit) {
		return text[:cut+1] + "…", true
	}
	return text, false
}

func lastIndexOfAny(s string, chars ...byte) int {
	best := -1
	for _, c := range chars {
		if i := strings.LastIndexByte(s, c); i > best {
			best = i
		}
	}
	return best
}
