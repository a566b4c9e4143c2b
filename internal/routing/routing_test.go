package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmrouter/core/internal/category"
	"github.com/llmrouter/core/internal/preset"
	"github.com/llmrouter/core/internal/registry"
)

func seededRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, d := range registry.Seed() {
		require.NoError(t, r.Register(d))
	}
	return r
}

// Scenario 1: CODE, BALANCED -> claude-3-7-sonnet-20250219 (highest combined
// score: gpt-5's CODE prior is higher, 0.99 vs 0.98, but claude is cheaper).
func TestScenarioCodeBalancedSelectsClaude(t *testing.T) {
	r := seededRegistry(t)
	d, err := Decide("Write a Python function to sort a list", category.Code, preset.Balanced, r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "claude-3-7-sonnet-20250219", d.SelectedKey)
}

func TestScenarioCodeBalancedFallsBackToGPT5WhenClaudeUnavailable(t *testing.T) {
	r := seededRegistry(t)
	r.MarkUnavailable("claude-3-7-sonnet-20250219")
	d, err := Decide("Write a Python function to sort a list", category.Code, preset.Balanced, r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", d.SelectedKey)
}

// Scenario 2: SUMMARIZE, COST -> free gpt-oss-20b wins the cost-priority regime.
func TestScenarioSummarizeCostSelectsFreeModel(t *testing.T) {
	r := seededRegistry(t)
	d, err := Decide("Summarize the key points of machine learning", category.Summarize, preset.Cost, r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "gpt-oss-20b", d.SelectedKey)
}

func TestScenarioSummarizeCostFallsBackToGPT4oMiniWhenFreeModelUnavailable(t *testing.T) {
	r := seededRegistry(t)
	r.MarkUnavailable("gpt-oss-20b")
	d, err := Decide("Summarize the key points of machine learning", category.Summarize, preset.Cost, r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", d.SelectedKey)
}

// Scenario 3: MATH_REASONING, QUALITY -> gpt-5 (prior 0.99); fallback claude (0.95).
func TestScenarioMathReasoningQualitySelectsGPT5(t *testing.T) {
	r := seededRegistry(t)
	d, err := Decide("Solve: 2x + 5 = 13", category.MathReasoning, preset.Quality, r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", d.SelectedKey)
	assert.Equal(t, "claude-3-7-sonnet-20250219", d.FallbackKey)
}

// Scenario 4: QA, LATENCY -> gemini-1.5-flash or gpt-4o-mini beat gpt-5.
func TestScenarioQALatencyAvoidsSlowModel(t *testing.T) {
	r := seededRegistry(t)
	d, err := Decide("Hello, how are you?", category.QA, preset.Latency, r.Snapshot())
	require.NoError(t, err)
	assert.Contains(t, []string{"gemini-1.5-flash", "gpt-4o-mini"}, d.SelectedKey)
	assert.NotEqual(t, "gpt-5", d.SelectedKey)
}

// Scenario 6: oversize context keeps only gemini-1.5-flash as a candidate.
func TestScenarioOversizeContextOnlyGeminiSurvives(t *testing.T) {
	r := seededRegistry(t)
	hugePrompt := strings.Repeat("a", 1000000)
	for _, p := range []preset.Preset{preset.Balanced, preset.Quality, preset.Cost, preset.Latency} {
		d, err := Decide(hugePrompt, category.QA, p, r.Snapshot())
		require.NoError(t, err)
		assert.Equal(t, "gemini-1.5-flash", d.SelectedKey, "preset %s", p)
	}
}

func TestDecideFailsWithNoCandidateModelsErrorWhenRegistryEmpty(t *testing.T) {
	r := registry.New()
	_, err := Decide("hi", category.QA, preset.Balanced, r.Snapshot())
	require.Error(t, err)
	var noCandErr *NoCandidateModelsError
	require.ErrorAs(t, err, &noCandErr)
}

func TestDecideFailsWhenAllCandidatesUnavailable(t *testing.T) {
	r := seededRegistry(t)
	for _, d := range registry.Seed() {
		r.MarkUnavailable(d.Key)
	}
	_, err := Decide("hi", category.QA, preset.Balanced, r.Snapshot())
	require.Error(t, err)
}

func TestMarkModelUnavailableThenDecisionNeverSelectsIt(t *testing.T) {
	r := seededRegistry(t)
	MarkModelUnavailable(r, "gpt-5")
	for i := 0; i < 5; i++ {
		d, err := Decide("Solve: 2x + 5 = 13", category.MathReasoning, preset.Quality, r.Snapshot())
		require.NoError(t, err)
		assert.NotEqual(t, "gpt-5", d.SelectedKey)
	}
	ResetAllAvailability(r)
	d, err := Decide("Solve: 2x + 5 = 13", category.MathReasoning, preset.Quality, r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", d.SelectedKey)
}

func TestDecisionConfidenceAlwaysInRange(t *testing.T) {
	r := seededRegistry(t)
	for _, p := range []preset.Preset{preset.Balanced, preset.Quality, preset.Cost, preset.Latency} {
		for _, c := range category.Scored {
			d, err := Decide("a representative prompt", c, p, r.Snapshot())
			require.NoError(t, err)
			assert.GreaterOrEqual(t, d.Confidence, 0.0)
			assert.LessOrEqual(t, d.Confidence, 1.0)
		}
	}
}

func TestAlternativesAreNonIncreasingAndCappedAtFour(t *testing.T) {
	r := seededRegistry(t)
	d, err := Decide("Write a Python function to sort a list", category.Code, preset.Balanced, r.Snapshot())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(d.Alternatives), 4)
	for i := 1; i < len(d.Alternatives); i++ {
		assert.GreaterOrEqual(t, d.Alternatives[i-1].Score, d.Alternatives[i].Score)
	}
}

func TestAlternativesExcludeUnavailableModels(t *testing.T) {
	r := seededRegistry(t)
	r.MarkUnavailable("gpt-4o-mini")
	d, err := Decide("Write a Python function to sort a list", category.Code, preset.Balanced, r.Snapshot())
	require.NoError(t, err)
	for _, alt := range d.Alternatives {
		assert.NotEqual(t, "gpt-4o-mini", alt.Key)
	}
}

func TestCostPresetPrefersCheaperModelAmongEqualQuality(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(registry.Descriptor{
		Key: "cheap", ProviderModelName: "cheap", Provider: registry.OpenAI,
		ContextWindowTokens: 100000, LatencyP50Seconds: 1, PriceInputPerMillion: 1,
		QualityPriorByCategory: map[category.Category]float64{category.QA: 0.8},
	}))
	require.NoError(t, r.Register(registry.Descriptor{
		Key: "pricey", ProviderModelName: "pricey", Provider: registry.OpenAI,
		ContextWindowTokens: 100000, LatencyP50Seconds: 1, PriceInputPerMillion: 10,
		QualityPriorByCategory: map[category.Category]float64{category.QA: 0.8},
	}))
	d, err := Decide("hi", category.QA, preset.Cost, r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "cheap", d.SelectedKey)
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
