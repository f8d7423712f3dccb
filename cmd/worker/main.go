// Package main provides the entrypoint for the Ambee reading poller.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/breatheroute/ambee/internal/api/middleware"
	"github.com/breatheroute/ambee/internal/api/response"
	"github.com/breatheroute/ambee/internal/config"
	"github.com/breatheroute/ambee/internal/database"
	"github.com/breatheroute/ambee/internal/provider/resilience"
	"github.com/breatheroute/ambee/internal/readings"
	"github.com/breatheroute/ambee/internal/telemetry"
	"github.com/breatheroute/ambee/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "ambee-worker"

	cfg, points, err := loadConfig()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := cfg.Logger(serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Int("points", len(points)).
		Msg("starting Ambee worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFrom(cfg, serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	var repo readings.Repository = readings.NewInMemoryRepository()
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgRepo := readings.NewPostgresRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare reading schema")
		}
		repo = pgRepo
		log.Info().Str("database", cfg.Database.Database).Msg("database connected")
	} else {
		log.Warn().Msg("no database configured, readings are kept in memory")
	}

	var (
		psClient  *pubsub.Client
		publisher *worker.ReadingPublisher
	)
	if cfg.PubSub.ProjectID != "" {
		psClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub client")
		}
		defer psClient.Close()

		publisher = worker.NewReadingPublisher(psClient, cfg.PubSub.Topic)
		defer publisher.Stop()

		log.Info().
			Str("project", cfg.PubSub.ProjectID).
			Str("topic", cfg.PubSub.Topic).
			Msg("publishing readings")
	}

	// Points share one session for the life of the process.
	httpClient := &http.Client{}
	defer httpClient.CloseIdleConnections()

	registry := resilience.NewRegistry()
	jobCfg := worker.PollJobConfig{
		Config: worker.PollConfig{
			Points:      points,
			Concurrency: cfg.Poll.Concurrency,
			Interval:    cfg.Poll.Interval,
		},
		Ambee:          cfg.Ambee,
		HTTPClient:     httpClient,
		Repository:     repo,
		Registry:       registry,
		Logger:         log,
		TracerProvider: tp.TracerProvider(),
		MeterProvider:  tp.MeterProvider(),
	}
	if publisher != nil {
		jobCfg.Publisher = publisher
	}
	job := worker.NewPollJob(jobCfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      healthRouter(log, job, registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		if err := job.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("poller stopped")
		}
	}()

	if psClient != nil {
		triggers := worker.NewTriggerHandler(job, log)
		go func() {
			log.Info().Str("subscription", cfg.PubSub.Subscription).Msg("waiting for poll triggers")
			if err := triggers.Receive(ctx, psClient, cfg.PubSub.Subscription); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("trigger subscription stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// loadConfig reads the environment and resolves the points to poll.
func loadConfig() (config.Config, []worker.Point, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := cfg.Ambee.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	if cfg.Poll.Points == "" {
		return cfg, worker.DefaultPoints(), nil
	}
	points, err := worker.ParsePoints(cfg.Poll.Points)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("POLL_POINTS: %w", err)
	}
	return cfg, points, nil
}

func healthRouter(log zerolog.Logger, job *worker.PollJob, registry *resilience.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		breakers := make(map[string]string, registry.Len())
		for _, h := range registry.AllHealth() {
			breakers[h.Name] = h.CircuitState.String()
		}
		response.JSON(w, r, http.StatusOK, map[string]any{
			"status":   "healthy",
			"version":  Version,
			"breakers": breakers,
			"metrics":  job.MetricsSnapshot(),
		})
	})

	return r
}
