// Package main provides the entrypoint for the Ambee API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/ambee/internal/api"
	"github.com/breatheroute/ambee/internal/api/handler"
	"github.com/breatheroute/ambee/internal/api/middleware"
	"github.com/breatheroute/ambee/internal/auth"
	"github.com/breatheroute/ambee/internal/config"
	"github.com/breatheroute/ambee/internal/database"
	"github.com/breatheroute/ambee/internal/provider/resilience"
	"github.com/breatheroute/ambee/internal/readings"
	"github.com/breatheroute/ambee/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "ambee-api"

	cfg, err := loadConfig()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := cfg.Logger(serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Ambee API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFrom(cfg, serviceName, Version))
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

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.Endpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(tp.MeterProvider())
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	var (
		repo     readings.Repository = readings.NewInMemoryRepository()
		dbPinger handler.Pinger
	)
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
		dbPinger = pool

		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		log.Warn().Msg("no database configured, readings are kept in memory")
	}

	if cfg.JWT.SigningKey == config.DevSigningKey {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	// One session for every live request.
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer httpClient.CloseIdleConnections()

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		Metrics:        metrics,
		TracerProvider: tp.TracerProvider(),
		MeterProvider:  tp.MeterProvider(),
		Tokens:         auth.NewJWTService(cfg.JWT),
		Ambee:          cfg.Ambee,
		HTTPClient:     httpClient,
		Repository:     repo,
		Registry:       resilience.NewRegistry(),
		Database:       dbPinger,
		RequireTLS:     os.Getenv("REQUIRE_TLS") == "true",
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.Ambee.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// loadConfig reads the environment and checks the Ambee key is present.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Ambee.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
