package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/llmrouter/core/internal/category"
)

// Seed returns the default model set built into the binary. It intentionally
// mirrors the models referenced by name throughout the end-to-end scenarios:
// a cheap general-purpose default, a premium Anthropic and a premium OpenAI
// model, a large-context Google model, and a free open-weights model served
// through HuggingFace's Inference API.
func Seed() []Descriptor {
	return []Descriptor{
		{
			Key:                  "gpt-4o-mini",
			ProviderModelName:    "gpt-4o-mini",
			Provider:             OpenAI,
			ContextWindowTokens:  128000,
			PriceInputPerMillion: 0.15,
			PriceOutputPerMillion: 0.60,
			LatencyP50Seconds:    0.46,
			QualityPriorByCategory: map[category.Category]float64{
				category.Code:          0.60,
				category.Summarize:     0.80,
				category.QA:            0.78,
				category.Creative:      0.75,
				category.MathReasoning: 0.70,
			},
		},
		{
			Key:                  "claude-3-7-sonnet-20250219",
			ProviderModelName:    "claude-3-7-sonnet-20250219",
			Provider:             Anthropic,
			ContextWindowTokens:  200000,
			PriceInputPerMillion: 0.20,
			PriceOutputPerMillion: 1.00,
			LatencyP50Seconds:    0.50,
			QualityPriorByCategory: map[category.Category]float64{
				category.Code:          0.98,
				category.Summarize:     0.90,
				category.QA:            0.88,
				category.Creative:      0.92,
				category.MathReasoning: 0.95,
			},
		},
		{
			Key:                  "gpt-5",
			ProviderModelName:    "gpt-5",
			Provider:             OpenAI,
			ContextWindowTokens:  128000,
			PriceInputPerMillion: 0.30,
			PriceOutputPerMillion: 1.50,
			LatencyP50Seconds:    0.45,
			QualityPriorByCategory: map[category.Category]float64{
				category.Code:          0.99,
				category.Summarize:     0.93,
				category.QA:            0.90,
				category.Creative:      0.94,
				category.MathReasoning: 0.99,
			},
		},
		{
			Key:                  "gemini-1.5-flash",
			ProviderModelName:    "gemini-1.5-flash",
			Provider:             Google,
			ContextWindowTokens:  1050000,
			PriceInputPerMillion: 0.075,
			PriceOutputPerMillion: 0.30,
			LatencyP50Seconds:    0.45,
			QualityPriorByCategory: map[category.Category]float64{
				category.Code:          0.40,
				category.Summarize:     0.30,
				category.QA:            0.80,
				category.Creative:      0.72,
				category.MathReasoning: 0.68,
			},
		},
		{
			Key:                  "gpt-oss-20b",
			ProviderModelName:    "gpt-oss-20b",
			Provider:             HuggingFace,
			ContextWindowTokens:  32000,
			PriceInputPerMillion: 0,
			PriceOutputPerMillion: 0,
			LatencyP50Seconds:    1.50,
			QualityPriorByCategory: map[category.Category]float64{
				category.Code:          0.60,
				category.Summarize:     0.85,
				category.QA:            0.60,
				category.Creative:      0.60,
				category.MathReasoning: 0.55,
			},
		},
	}
}

// LoadDefault registers the built-in Seed models, then — if
// MODEL_ROUTER_REGISTRY_FILE is set — merges in the YAML file it points to.
// File entries with a key matching a built-in model replace it outright;
// new keys are added. Returns the populated registry.
func LoadDefault(registryFile string) (*Registry, error) {
	r := New()
	for _, d := range Seed() {
		if err := r.Register(d); err != nil {
			return nil, fmt.Errorf("registry: seeding built-in models: %w", err)
		}
	}
	if registryFile == "" {
		return r, nil
	}
	extra, err := loadYAMLFile(registryFile)
	if err != nil {
		return nil, fmt.Errorf("registry: loading %s: %w", registryFile, err)
	}
	for _, d := range extra {
		if _, exists := r.byKey[d.Key]; exists {
			r.mu.Lock()
			delete(r.byAlias, r.byKey[d.Key].ProviderModelName)
			delete(r.byKey, d.Key)
			for i, k := range r.order {
				if k == d.Key {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
			r.mu.Unlock()
		}
		if err := r.Register(d); err != nil {
			return nil, fmt.Errorf("registry: loading %s: %w", registryFile, err)
		}
	}
	return r, nil
}

// yamlDescriptor mirrors Descriptor with yaml tags for the optional seed file.
type yamlDescriptor struct {
	Key                    string             `yaml:"key"`
	ProviderModelName      string             `yaml:"providerModelName"`
	Provider               string             `yaml:"provider"`
	ContextWindowTokens    int                `yaml:"contextWindowTokens"`
	PriceInputPerMillion   float64            `yaml:"priceInputPerMillion"`
	PriceOutputPerMillion  float64            `yaml:"priceOutputPerMillion"`
	LatencyP50Seconds      float64            `yaml:"latencyP50Seconds"`
	QualityPriorByCategory map[string]float64 `yaml:"qualityPriorByCategory"`
}

type yamlFile struct {
	Models []yamlDescriptor `yaml:"models"`
}

func loadYAMLFile(path string) ([]Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f yamlFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	out := make([]Descriptor, 0, len(f.Models))
	for _, m := range f.Models {
		qp := make(map[category.Category]float64, len(m.QualityPriorByCategory))
		for k, v := range m.QualityPriorByCategory {
			c := category.Category(k)
			if !category.Valid(c) {
				return nil, fmt.Errorf("unknown category %q for model %q", k, m.Key)
			}
			qp[c] = v
		}
		out = append(out, Descriptor{
			Key:                    m.Key,
			ProviderModelName:      m.ProviderModelName,
			Provider:               Provider(m.Provider),
			ContextWindowTokens:    m.ContextWindowTokens,
			PriceInputPerMillion:   m.PriceInputPerMillion,
			PriceOutputPerMillion:  m.PriceOutputPerMillion,
			LatencyP50Seconds:      m.LatencyP50Seconds,
			QualityPriorByCategory: qp,
		})
	}
	return out, nil
}
