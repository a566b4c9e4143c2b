package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/llmrouter/core/internal/backend"
	"github.com/llmrouter/core/internal/backend/anthropic"
	"github.com/llmrouter/core/internal/backend/google"
	"github.com/llmrouter/core/internal/backend/huggingface"
	"github.com/llmrouter/core/internal/backend/openai"
	"github.com/llmrouter/core/internal/classifier/hybrid"
	"github.com/llmrouter/core/internal/classifier/model"
	"github.com/llmrouter/core/internal/config"
	"github.com/llmrouter/core/internal/httpapi"
	"github.com/llmrouter/core/internal/logging"
	"github.com/llmrouter/core/internal/metrics"
	"github.com/llmrouter/core/internal/ratelimit"
	"github.com/llmrouter/core/internal/registry"
	"github.com/llmrouter/core/internal/service"
	"github.com/llmrouter/core/internal/tracing"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)
	logger.Info("modelrouter starting", slog.String("version", version))

	otelShutdown, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
	})
	if err != nil {
		log.Fatalf("otel setup error: %v", err)
	}
	if cfg.OTelEnabled {
		logger.Info("opentelemetry tracing enabled", slog.String("endpoint", cfg.OTelEndpoint))
	}

	reg, err := registry.LoadDefault(cfg.RegistryFile)
	if err != nil {
		log.Fatalf("registry load error: %v", err)
	}

	factories := map[registry.Provider]backend.Factory{
		registry.OpenAI: func(d registry.Descriptor) (backend.Client, error) {
			return openai.New(d, cfg.OpenAIAPIKey, "")
		},
		registry.Anthropic: func(d registry.Descriptor) (backend.Client, error) {
			return anthropic.New(d, cfg.AnthropicAPIKey, "")
		},
		registry.Google: func(d registry.Descriptor) (backend.Client, error) {
			return google.New(context.Background(), d, cfg.GoogleAPIKey)
		},
		registry.HuggingFace: func(d registry.Descriptor) (backend.Client, error) {
			return huggingface.New(d, cfg.HuggingFaceAPIKey, "")
		},
	}
	pool := backend.NewPool(reg, factories)

	modelClassifier := model.New(pool, model.DefaultClassifierKey)
	classifier := hybrid.New(modelClassifier)

	router := service.New(classifier, pool, reg, cfg.DefaultPriorityPreset, cfg.RequestTimeoutMs)

	m := metrics.New()
	rl := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, time.Second,
		ratelimit.WithCounter(m.RateLimitedTotal))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.OTelEnabled {
		r.Use(tracing.Middleware())
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	httpapi.MountRoutes(r, httpapi.Dependencies{
		Router:      router,
		Metrics:     m,
		RateLimiter: rl,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		WriteTimeout:      time.Duration(cfg.RequestTimeoutMs)*time.Millisecond + 30*time.Second,
	}

	go func() {
		logger.Info("modelrouter listening", slog.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down (draining in-flight requests)")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := otelShutdown(ctx); err != nil {
		logger.Warn("otel shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("shutdown complete")
}
