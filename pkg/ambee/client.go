package ambee

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the Ambee API base URL.
	DefaultBaseURL = "https://api.ambeedata.com:443"

	// DefaultRequestTimeout bounds a single request when none is configured.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "breatheroute-ambee/1.0"
)

// ClientConfig holds configuration for the Ambee client.
type ClientConfig struct {
	// APIKey is the Ambee API key. It is sent as is; the API rejects bad keys.
	APIKey string

	// Latitude and Longitude of the location every request is made for.
	Latitude  float64
	Longitude float64

	// RequestTimeout bounds each request, body included.
	// Default: 10 seconds
	RequestTimeout time.Duration

	// HTTPClient is an optional caller-owned session. The client never
	// closes it. If nil, the client creates its own on first use and
	// releases it on Close.
	HTTPClient *http.Client

	// BaseURL is the API base URL (optional, defaults to the Ambee API).
	BaseURL string

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// Logger for client operations.
	Logger zerolog.Logger

	// TracerProvider and MeterProvider default to the otel globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client is an Ambee API client for a single coordinate.
//
// A Client is safe for concurrent use, but each call performs exactly one
// request: there is no retrying, caching or rate limiting.
type Client struct {
	apiKey    string
	latitude  float64
	longitude float64
	timeout   time.Duration
	baseURL   string
	userAgent string
	logger    zerolog.Logger
	inst      *instruments

	mu          sync.Mutex
	httpClient  *http.Client
	transport   *http.Transport
	ownsSession bool
	closed      bool
}

// NewClient creates a new Ambee client. No connection is opened until the
// first request.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		apiKey:     cfg.APIKey,
		latitude:   cfg.Latitude,
		longitude:  cfg.Longitude,
		timeout:    timeout,
		baseURL:    baseURL,
		userAgent:  userAgent,
		logger:     cfg.Logger,
		inst:       newInstruments(cfg.TracerProvider, cfg.MeterProvider),
		httpClient: cfg.HTTPClient,
	}
}

// With creates a client, passes it to fn and closes it however fn returns,
// panics included. A session supplied in cfg.HTTPClient is left open.
func With(ctx context.Context, cfg ClientConfig, fn func(context.Context, *Client) error) (err error) {
	c := NewClient(cfg)
	defer func() {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, c)
}

// Latitude returns the configured latitude.
func (c *Client) Latitude() float64 { return c.latitude }

// Longitude returns the configured longitude.
func (c *Client) Longitude() float64 { return c.longitude }

// AirQuality gets the latest air quality data for the configured coordinate.
func (c *Client) AirQuality(ctx context.Context) (*AirQuality, error) {
	env, err := c.Request(ctx, ResourceAirQuality.Path())
	if err != nil {
		return nil, err
	}
	return ParseAirQuality(env)
}

// Pollen gets the latest pollen count for the configured coordinate.
func (c *Client) Pollen(ctx context.Context) (*Pollen, error) {
	env, err := c.Request(ctx, ResourcePollen.Path())
	if err != nil {
		return nil, err
	}
	return ParsePollen(env)
}

// Weather gets the latest weather conditions for the configured coordinate.
func (c *Client) Weather(ctx context.Context) (*Weather, error) {
	env, err := c.Request(ctx, ResourceWeather.Path())
	if err != nil {
		return nil, err
	}
	return ParseWeather(env)
}

// Close releases the session if the client created it. A caller-supplied
// session is never touched. Close is idempotent; requests made after Close
// fail with a connection error.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.ownsSession && c.transport != nil {
		c.transport.CloseIdleConnections()
		c.logger.Debug().Msg("released ambee session")
	}
	return nil
}

// OwnsSession reports whether the client created its own session.
func (c *Client) OwnsSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ownsSession
}

// session returns the HTTP client, creating an owned one on first use.
func (c *Client) session() (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errClosed
	}

	if c.httpClient == nil {
		c.transport = http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default
		c.httpClient = &http.Client{Transport: c.transport}
		c.ownsSession = true
	}
	return c.httpClient, nil
}
