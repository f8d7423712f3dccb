// Package api provides the HTTP API of the Ambee service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/breatheroute/ambee/internal/api/handler"
	"github.com/breatheroute/ambee/internal/api/middleware"
	"github.com/breatheroute/ambee/internal/api/response"
	"github.com/breatheroute/ambee/internal/config"
	"github.com/breatheroute/ambee/internal/provider/resilience"
	"github.com/breatheroute/ambee/internal/readings"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger

	Metrics        *middleware.Metrics
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Tokens validates bearer tokens on the live and readings routes.
	Tokens middleware.TokenValidator

	Ambee      config.AmbeeConfig
	HTTPClient *http.Client
	Repository readings.Repository
	Registry   *resilience.Registry

	// Database is pinged by the readiness check when set.
	Database handler.Pinger

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if cfg.Registry == nil {
		cfg.Registry = resilience.NewRegistry()
	}
	if cfg.Repository == nil {
		cfg.Repository = readings.NewInMemoryRepository()
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(cfg.TracerProvider))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Database)
	liveHandler := handler.NewLiveHandler(handler.LiveHandlerConfig{
		Ambee:          cfg.Ambee,
		HTTPClient:     cfg.HTTPClient,
		Registry:       cfg.Registry,
		Logger:         cfg.Logger,
		TracerProvider: cfg.TracerProvider,
		MeterProvider:  cfg.MeterProvider,
	})
	readingsHandler := handler.NewReadingsHandler(cfg.Repository)

	authMiddleware := middleware.Auth(cfg.Tokens)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Each call costs Ambee quota.
		r.Route("/live", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitBySubject(middleware.LiveRateLimit))
			r.Get("/{resource}", liveHandler.GetLive)
		})

		r.Route("/readings", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitBySubject(middleware.StandardRateLimit))
			r.Get("/{resource}", readingsHandler.ListReadings)
			r.Get("/{resource}/latest", readingsHandler.GetLatest)
		})
	})

	return r
}
