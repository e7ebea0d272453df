// Package main provides the entrypoint for the farmroute pre-warm worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/api/response"
	"github.com/farmroute/farmroute/internal/app"
	"github.com/farmroute/farmroute/internal/config"
	"github.com/farmroute/farmroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "farmroute-worker"

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
		Msg("starting farmroute worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := app.NewProviders(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize providers")
	}
	defer func() {
		if closeErr := providers.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close directions cache")
		}
	}()

	refreshCfg := worker.DefaultRefreshConfig()
	refreshCfg.Concurrency = cfg.Worker.Concurrency
	refreshCfg.MaxAlternatives = app.BuilderConfig(cfg).RequestedAlternatives()
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:     refreshCfg,
		Logger:     log,
		Weather:    providers.Weather,
		Directions: providers.Directions,
	})

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": Version,
			"refresh": job.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Worker.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.Worker.PubSubSubscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Worker.PubSubProjectID,
			SubscriptionName: cfg.Worker.PubSubSubscription,
			RefreshJob:       job,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
			}
		}()
	} else {
		go runTicker(ctx, job, cfg.Worker.Interval, log)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown error")
	}

	log.Info().Msg("worker stopped")
}

// runTicker pre-warms the caches once at startup and then every interval.
func runTicker(ctx context.Context, job *worker.RefreshJob, interval time.Duration, log zerolog.Logger) {
	log.Info().Dur("interval", interval).Msg("running pre-warm on a timer")

	run := func() {
		result := job.Run(ctx)
		log.Info().
			Int("successful", result.Successful).
			Int("failed", result.Failed).
			Dur("duration", result.Duration).
			Msg("pre-warm finished")
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
