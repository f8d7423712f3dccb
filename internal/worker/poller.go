package worker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/breatheroute/ambee/internal/config"
	"github.com/breatheroute/ambee/internal/provider/resilience"
	"github.com/breatheroute/ambee/internal/readings"
	"github.com/breatheroute/ambee/pkg/ambee"
)

// Publisher announces stored readings.
type Publisher interface {
	Publish(ctx context.Context, reading *readings.Reading) error
}

// PollJob fetches every configured resource for every point and stores the
// readings.
type PollJob struct {
	config     PollConfig
	ambee      config.AmbeeConfig
	httpClient *http.Client
	repo       readings.Repository
	publisher  Publisher
	breakers   map[ambee.Resource]*resilience.Breaker
	logger     zerolog.Logger
	now        func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	metrics *PollMetrics
}

// PollJobConfig holds configuration for creating a PollJob.
type PollJobConfig struct {
	Config PollConfig
	Ambee  config.AmbeeConfig

	// HTTPClient is shared by the clients of all points. When nil every
	// point gets a client with its own session, closed after the point.
	HTTPClient *http.Client

	// Repository defaults to an in-memory store.
	Repository readings.Repository

	// Publisher is optional.
	Publisher Publisher

	// Registry receives one breaker per resource when non-nil.
	Registry *resilience.Registry

	Logger         zerolog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Now defaults to time.Now.
	Now func() time.Time
}

// PollMetrics tracks poll job statistics.
type PollMetrics struct {
	mu sync.RWMutex

	TotalCycles  int64
	Fetched      int64
	Failed       int64
	Skipped      int64
	Published    int64
	PublishFails int64

	LastCycleAt       time.Time
	LastCycleDuration time.Duration
}

// NewPollJob creates a new poll job.
func NewPollJob(cfg PollJobConfig) *PollJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	pollCfg := cfg.Config.withDefaults()

	repo := cfg.Repository
	if repo == nil {
		repo = readings.NewInMemoryRepository()
	}

	breakers := make(map[ambee.Resource]*resilience.Breaker, len(pollCfg.Resources))
	for _, r := range pollCfg.Resources {
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

	return &PollJob{
		config:         pollCfg,
		ambee:          cfg.Ambee,
		httpClient:     cfg.HTTPClient,
		repo:           repo,
		publisher:      cfg.Publisher,
		breakers:       breakers,
		logger:         cfg.Logger,
		now:            now,
		tracerProvider: cfg.TracerProvider,
		meterProvider:  cfg.MeterProvider,
		metrics:        &PollMetrics{},
	}
}

// PollResult contains the result of one poll cycle.
type PollResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Fetched     int
	Failed      int
	Skipped     int
	Errors      []PollError
}

// AllFailed reports whether the cycle attempted fetches and none succeeded.
func (r *PollResult) AllFailed() bool {
	return r.Fetched == 0 && r.Failed+r.Skipped > 0
}

// PollError represents a failed fetch.
type PollError struct {
	Resource ambee.Resource `json:"resource"`
	Point    string         `json:"point"`
	Error    string         `json:"error"`
}

// Run polls all configured points once.
func (j *PollJob) Run(ctx context.Context) *PollResult {
	return j.RunPoints(ctx, j.config.Points)
}

// RunPoints polls the given points once.
func (j *PollJob) RunPoints(ctx context.Context, points []Point) *PollResult {
	startTime := j.now()
	result := &PollResult{
		StartTime:   startTime,
		TotalPoints: len(points),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting poll cycle")

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.pollWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		result.Fetched += pr.fetched
		result.Failed += pr.failed
		result.Skipped += pr.skipped
		result.Errors = append(result.Errors, pr.errors...)
	}

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("fetched", result.Fetched).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("poll cycle completed")

	return result
}

// Start runs poll cycles until ctx is done. After a cycle in which every
// fetch failed the next cycle is delayed with exponential backoff.
func (j *PollJob) Start(ctx context.Context) error {
	bo := resilience.NewCycleBackoff(j.config.Interval, j.config.MaxBackoff)

	for {
		result := j.Run(ctx)

		delay := bo.Next(result.AllFailed())
		if delay != j.config.Interval {
			j.logger.Warn().
				Dur("delay", delay).
				Msg("all fetches failed, backing off")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

type pointResult struct {
	fetched int
	failed  int
	skipped int
	errors  []PollError
}

func (j *PollJob) pollWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			results <- j.skipPoint(point, ctx.Err())
		default:
			results <- j.pollPoint(ctx, point)
		}
	}
}

func (j *PollJob) skipPoint(point Point, err error) pointResult {
	result := pointResult{}
	for _, r := range j.config.Resources {
		result.skipped++
		result.errors = append(result.errors, PollError{Resource: r, Point: point.Name, Error: err.Error()})
	}
	return result
}

func (j *PollJob) pollPoint(ctx context.Context, point Point) pointResult {
	result := pointResult{}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	clientCfg := j.ambee.ClientConfig(point.Lat, point.Lng)
	clientCfg.HTTPClient = j.httpClient
	clientCfg.Logger = j.logger.With().Str("point", point.Name).Logger()
	clientCfg.TracerProvider = j.tracerProvider
	clientCfg.MeterProvider = j.meterProvider

	client := ambee.NewClient(clientCfg)
	defer func() {
		if err := client.Close(); err != nil {
			j.logger.Warn().Err(err).Str("point", point.Name).Msg("failed to close ambee client")
		}
	}()

	for _, r := range j.config.Resources {
		err := j.pollResource(pointCtx, client, point, r)
		switch {
		case err == nil:
			result.fetched++
			continue
		case errors.Is(err, resilience.ErrCircuitOpen):
			result.skipped++
		default:
			result.failed++
		}

		j.logger.Warn().
			Err(err).
			Str("point", point.Name).
			Str("resource", string(r)).
			Msg("poll failed")
		result.errors = append(result.errors, PollError{Resource: r, Point: point.Name, Error: err.Error()})
	}

	return result
}

func (j *PollJob) pollResource(ctx context.Context, client *ambee.Client, point Point, r ambee.Resource) error {
	record, err := j.breakers[r].Execute(ctx, func(ctx context.Context) (any, error) {
		return client.Fetch(ctx, r)
	})
	if err != nil {
		return err
	}

	reading, err := readings.NewReading(r, point.Name, point.Lat, point.Lng, record, j.now())
	if err != nil {
		return err
	}

	if err := j.repo.Save(ctx, reading); err != nil {
		return err
	}

	if j.publisher != nil {
		j.publish(ctx, reading)
	}
	return nil
}

func (j *PollJob) publish(ctx context.Context, reading *readings.Reading) {
	err := j.publisher.Publish(ctx, reading)

	j.metrics.mu.Lock()
	if err != nil {
		j.metrics.PublishFails++
	} else {
		j.metrics.Published++
	}
	j.metrics.mu.Unlock()

	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("reading_id", reading.ID).
			Msg("failed to publish reading")
	}
}

func (j *PollJob) updateMetrics(result *PollResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalCycles++
	j.metrics.Fetched += int64(result.Fetched)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.Skipped += int64(result.Skipped)
	j.metrics.LastCycleAt = result.EndTime
	j.metrics.LastCycleDuration = result.Duration
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *PollJob) MetricsSnapshot() map[string]any {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return map[string]any{
		"total_cycles":        j.metrics.TotalCycles,
		"fetched":             j.metrics.Fetched,
		"failed":              j.metrics.Failed,
		"skipped":             j.metrics.Skipped,
		"published":           j.metrics.Published,
		"publish_failures":    j.metrics.PublishFails,
		"last_cycle_at":       j.metrics.LastCycleAt,
		"last_cycle_duration": j.metrics.LastCycleDuration.String(),
	}
}
