package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"

	"github.com/hshukla4/stt-project/internal/api"
	"github.com/hshukla4/stt-project/internal/config"
	"github.com/hshukla4/stt-project/internal/engine"
	"github.com/hshukla4/stt-project/internal/logger"
	"github.com/hshukla4/stt-project/internal/metrics"
	"github.com/hshukla4/stt-project/internal/orchestrator"
	"github.com/hshukla4/stt-project/internal/sentry"
	"github.com/hshukla4/stt-project/internal/telemetry"
)

func main() {
	defer sentry.Recover()

	ctx := context.Background()

	cfg := config.MustLoad()

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, nil)
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize Sentry
	sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName, cfg.ServiceVersion)
	if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize business metrics
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	// Initialize logger with OTel support
	logger := logger.New(cfg.Env)
	slog.SetDefault(logger) // Set as default so slog.Info() uses our handler

	// Engines are probed once here; availability is fixed for the
	// process lifetime.
	local := engine.NewLocalEngine(cfg.WhisperServerURL, cfg.WhisperModelSize, cfg.Transcription.LocalConcurrency)
	openai := engine.NewOpenAIEngine(cfg.OpenAIKey)
	registry := engine.NewRegistry(ctx, local, openai)

	orch := orchestrator.New(registry, orchestrator.Config{
		Primary:         engine.ID(cfg.Transcription.PrimaryEngine),
		Fallback:        engine.ID(cfg.Transcription.FallbackEngine),
		FallbackEnabled: cfg.Transcription.FallbackEnabled,
		EngineTimeout:   cfg.Transcription.EngineTimeout(),
	})

	// API handlers
	apiServer := api.NewServer(cfg, registry, orch)

	// Router
	r := chi.NewRouter()

	// Middleware
	r.Use(otelchi.Middleware(cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	// The frontend talks to this server directly from the browser.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Use(sentry.HTTPMiddleware)

	r.Get("/", apiServer.HandleRoot)
	r.Get("/health", apiServer.HandleHealth)
	r.Get("/engines", apiServer.HandleEngines)
	r.Post("/transcribe", apiServer.HandleTranscribe)

	slog.Info("Starting server",
		"port", cfg.Port,
		"primary_engine", cfg.Transcription.PrimaryEngine,
		"fallback_engine", cfg.Transcription.FallbackEngine,
		"dual_engine", cfg.Transcription.FallbackEnabled)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
