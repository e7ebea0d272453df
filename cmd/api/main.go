// Package main provides the entrypoint for the farmroute API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/api"
	"github.com/farmroute/farmroute/internal/api/handler"
	"github.com/farmroute/farmroute/internal/api/middleware"
	"github.com/farmroute/farmroute/internal/app"
	"github.com/farmroute/farmroute/internal/cargo"
	"github.com/farmroute/farmroute/internal/catalog"
	"github.com/farmroute/farmroute/internal/config"
	"github.com/farmroute/farmroute/internal/planner"
	"github.com/farmroute/farmroute/internal/risk"
	"github.com/farmroute/farmroute/internal/session"
	"github.com/farmroute/farmroute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "farmroute-api"

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		log = log.Level(level)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting farmroute API")

	if cfg.UsesDevSigningKey() {
		log.Warn().Msg("using default session signing key - not secure for production")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Logger:         log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize HTTP metrics")
	}
	engineMetrics, err := telemetry.NewEngineMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize engine metrics")
	}

	providers, err := app.NewProviders(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize providers")
	}
	defer func() {
		if closeErr := providers.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close directions cache")
		}
	}()
	log.Info().
		Str("routing_provider", providers.Directions.Name()).
		Str("weather_provider", providers.Weather.Name()).
		Bool("persistent_cache", providers.Persistent()).
		Msg("providers initialized")

	evaluator := risk.NewEvaluator(risk.EvaluatorConfig{
		Provider:   providers.Weather,
		Thresholds: &cfg.Risk,
		Timeout:    cfg.Weather.Timeout,
		Budget:     cfg.Weather.CheckBudget,
		Logger:     log,
	})

	plan := planner.New(planner.Config{
		Directions: providers.Directions,
		Builder:    app.BuilderConfig(cfg),
		Calculator: cargo.NewCalculator(cfg.Cargo.BaseSpeedKmh, cfg.Cargo.Multipliers),
		Evaluator:  evaluator,
		Recorder:   engineMetrics,
		Logger:     log,
	})

	sessions := session.NewStore(session.StoreConfig{
		IdleTTL: cfg.Session.IdleTTL,
		Logger:  log,
	})
	go sessions.Run(ctx)

	tokens := session.NewTokens(session.TokenConfig{
		SigningKey: cfg.Session.SigningKey,
		Issuer:     cfg.Session.Issuer,
		Audience:   cfg.Session.Audience,
		TTL:        cfg.Session.TokenTTL,
	})

	router := api.NewRouter(api.RouterConfig{
		Logger:     log,
		Metrics:    httpMetrics,
		RequireTLS: cfg.RequireTLS,
		Planner:    plan,
		Sessions:   sessions,
		Tokens:     tokens,
		Catalog:    catalog.Dehradun(),
		Ops: handler.OpsConfig{
			Version:         Version,
			BuildTime:       BuildTime,
			Registry:        providers.Registry,
			DirectionsCache: providers,
			RoutingProvider: providers.Directions.Name(),
			WeatherProvider: providers.Weather.Name(),
			Sessions:        sessions,
			Routing:         providers.Directions,
			Weather:         providers.Weather,
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
