package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/breatheroute/ambee/internal/api/models"
	"github.com/breatheroute/ambee/internal/api/response"
	"github.com/breatheroute/ambee/internal/config"
	"github.com/breatheroute/ambee/internal/provider/resilience"
	"github.com/breatheroute/ambee/pkg/ambee"
)

// LiveHandlerConfig configures a LiveHandler.
type LiveHandlerConfig struct {
	Ambee config.AmbeeConfig

	// HTTPClient is shared by every request and never closed by the handler.
	HTTPClient *http.Client

	Registry       *resilience.Registry
	Logger         zerolog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// LiveHandler fetches records from Ambee on behalf of the caller.
type LiveHandler struct {
	cfg      LiveHandlerConfig
	breakers map[ambee.Resource]*resilience.Breaker
	now      func() time.Time
}

// NewLiveHandler creates a LiveHandler with one breaker per resource.
func NewLiveHandler(cfg LiveHandlerConfig) *LiveHandler {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	breakers := make(map[ambee.Resource]*resilience.Breaker)
	for _, r := range ambee.AllResources() {
		bc := resilience.DefaultBreakerConfig(string(r))
		logger := cfg.Logger
		bc.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		}
		breakers[r] = resilience.NewBreaker(bc, cfg.Registry)
	}

	return &LiveHandler{cfg: cfg, breakers: breakers, now: time.Now}
}

// GetLive handles GET /v1/live/{resource} - fetch the latest record for a coordinate.
func (h *LiveHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	resource, err := ambee.ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		response.NotFound(w, r, err.Error())
		return
	}

	lat, lng, fieldErrors := parseCoordinates(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinates", fieldErrors)
		return
	}

	clientCfg := h.cfg.Ambee.ClientConfig(lat, lng)
	clientCfg.HTTPClient = h.cfg.HTTPClient
	clientCfg.Logger = h.cfg.Logger
	clientCfg.TracerProvider = h.cfg.TracerProvider
	clientCfg.MeterProvider = h.cfg.MeterProvider

	var record any
	err = ambee.With(r.Context(), clientCfg, func(ctx context.Context, c *ambee.Client) error {
		var fetchErr error
		record, fetchErr = h.breakers[resource].Execute(ctx, func(ctx context.Context) (any, error) {
			return c.Fetch(ctx, resource)
		})
		return fetchErr
	})
	if err != nil {
		h.cfg.Logger.Warn().
			Err(err).
			Str("resource", string(resource)).
			Msg("live fetch failed")
		response.UpstreamError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewLiveReading(string(resource), lat, lng, record, h.now()))
}

func parseCoordinates(r *http.Request) (float64, float64, []models.FieldError) {
	var fieldErrors []models.FieldError

	lat, err := parseCoordinate(r.URL.Query().Get("lat"), 90)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: err.Error(), Code: "invalid"})
	}
	lng, err := parseCoordinate(r.URL.Query().Get("lng"), 180)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lng", Message: err.Error(), Code: "invalid"})
	}

	return lat, lng, fieldErrors
}

func parseCoordinate(s string, bound float64) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a number")
	}
	if v < -bound || v > bound {
		return 0, fmt.Errorf("must be between %g and %g", -bound, bound)
	}
	return v, nil
}
