// Package config loads the router's environment-variable configuration
// once at startup, grounded on the teacher's getenv-with-default pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/llmrouter/core/internal/preset"
)

// Config is every environment knob the router reads at startup (spec
// section 6 plus the HTTP-transport expansion knobs).
type Config struct {
	ListenAddr string
	LogLevel   string

	ClassificationConfidenceThreshold float64 // reserved, spec section 6
	MaxRetryAttempts                  int     // reserved, spec section 6
	RequestTimeoutMs                  int
	DefaultPriorityPreset             preset.Preset

	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int

	RegistryFile string

	OpenAIAPIKey      string
	AnthropicAPIKey   string
	GoogleAPIKey      string
	HuggingFaceAPIKey string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string
}

// Load reads every MODEL_ROUTER_* and provider-credential variable,
// applying the defaults from spec section 6 and the SPEC_FULL expansion
// table, then validates the numeric ranges those variables document.
func Load() (Config, error) {
	defaultPreset, err := preset.Parse(strings.ToLower(getEnv("DEFAULT_PRIORITY_PRESET", "balanced")))
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Config{
		ListenAddr: getEnv("MODEL_ROUTER_LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("MODEL_ROUTER_LOG_LEVEL", "info"),

		ClassificationConfidenceThreshold: getEnvFloat("CLASSIFICATION_CONFIDENCE_THRESHOLD", 0.6),
		MaxRetryAttempts:                  getEnvInt("MAX_RETRY_ATTEMPTS", 2),
		RequestTimeoutMs:                  getEnvInt("REQUEST_TIMEOUT_MS", 30000),
		DefaultPriorityPreset:             defaultPreset,

		CORSOrigins:    getEnvStringSlice("MODEL_ROUTER_CORS_ORIGINS", []string{"*"}),
		RateLimitRPS:   getEnvInt("MODEL_ROUTER_RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("MODEL_ROUTER_RATE_LIMIT_BURST", 40),

		RegistryFile: getEnv("MODEL_ROUTER_REGISTRY_FILE", ""),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		GoogleAPIKey:      getEnv("GOOGLE_API_KEY", ""),
		HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),

		OTelEnabled:     getEnvBool("MODEL_ROUTER_OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("MODEL_ROUTER_OTEL_ENDPOINT", "localhost:4318"),
		OTelServiceName: getEnv("MODEL_ROUTER_OTEL_SERVICE_NAME", "modelrouter"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the numeric ranges spec section 6 documents for each
// knob.
func (c Config) Validate() error {
	if c.ClassificationConfidenceThreshold < 0 || c.ClassificationConfidenceThreshold > 1 {
		return fmt.Errorf("CLASSIFICATION_CONFIDENCE_THRESHOLD must be in [0,1], got %f", c.ClassificationConfidenceThreshold)
	}
	if c.MaxRetryAttempts < 1 || c.MaxRetryAttempts > 5 {
		return fmt.Errorf("MAX_RETRY_ATTEMPTS must be in [1,5], got %d", c.MaxRetryAttempts)
	}
	if c.RequestTimeoutMs < 5000 || c.RequestTimeoutMs > 120000 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be in [5000,120000], got %d", c.RequestTimeoutMs)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("MODEL_ROUTER_RATE_LIMIT_RPS must be > 0, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("MODEL_ROUTER_RATE_LIMIT_BURST must be > 0, got %d", c.RateLimitBurst)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvStringSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return def
}
