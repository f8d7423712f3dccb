package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/breatheroute/ambee/internal/readings"
)

// Job types accepted on the trigger subscription.
const (
	JobPollNow     = "poll_now"
	JobHealthCheck = "health_check"
)

// ReadingPublisher publishes stored readings to a Pub/Sub topic.
type ReadingPublisher struct {
	publisher *pubsub.Publisher
}

// NewReadingPublisher creates a publisher for a topic of client.
func NewReadingPublisher(client *pubsub.Client, topic string) *ReadingPublisher {
	return &ReadingPublisher{publisher: client.Publisher(topic)}
}

// Publish sends a reading and waits for the server to acknowledge it.
func (p *ReadingPublisher) Publish(ctx context.Context, reading *readings.Reading) error {
	msg, err := ReadingMessage(reading)
	if err != nil {
		return err
	}

	if _, err := p.publisher.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publishing reading %s: %w", reading.ID, err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *ReadingPublisher) Stop() {
	p.publisher.Stop()
}

// ReadingMessage encodes a reading as a Pub/Sub message.
func ReadingMessage(reading *readings.Reading) (*pubsub.Message, error) {
	data, err := json.Marshal(reading)
	if err != nil {
		return nil, fmt.Errorf("encoding reading: %w", err)
	}

	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"resource": string(reading.Resource),
			"point":    reading.Point,
		},
	}, nil
}

// TriggerMessage asks the worker to run a job outside its schedule.
type TriggerMessage struct {
	JobType string `json:"job_type"`

	// Points limits a poll_now job to the named points.
	Points []string `json:"points,omitempty"`
}

// TriggerHandler runs jobs requested through Pub/Sub trigger messages.
type TriggerHandler struct {
	job    *PollJob
	logger zerolog.Logger
}

// NewTriggerHandler creates a trigger handler for job.
func NewTriggerHandler(job *PollJob, logger zerolog.Logger) *TriggerHandler {
	return &TriggerHandler{job: job, logger: logger}
}

// Receive processes messages from a subscription of client and blocks
// until ctx is done.
func (h *TriggerHandler) Receive(ctx context.Context, client *pubsub.Client, subscription string) error {
	subscriber := client.Subscriber(subscription)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	h.logger.Info().
		Str("subscription", subscription).
		Msg("starting trigger handler")

	return subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.Handle(ctx, msg.ID, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Handle runs the job described by data and reports whether the message
// should be acknowledged.
func (h *TriggerHandler) Handle(ctx context.Context, id string, data []byte) bool {
	startTime := time.Now()
	logger := h.logger.With().Str("message_id", id).Logger()

	var trigger TriggerMessage
	if err := json.Unmarshal(data, &trigger); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return false
	}

	var err error
	switch trigger.JobType {
	case JobPollNow:
		err = h.pollNow(ctx, trigger.Points)
	case JobHealthCheck:
		err = h.healthCheck(ctx)
	default:
		logger.Warn().Str("job_type", trigger.JobType).Msg("unknown job type")
		return true
	}

	if err != nil {
		logger.Error().Err(err).Str("job_type", trigger.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", trigger.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}

func (h *TriggerHandler) pollNow(ctx context.Context, names []string) error {
	points := h.job.config.Points
	if len(names) > 0 {
		points = selectPoints(points, names)
		if len(points) == 0 {
			return fmt.Errorf("no configured points match %v", names)
		}
	}

	result := h.job.RunPoints(ctx, points)
	if result.Failed > result.Fetched {
		return fmt.Errorf("too many poll failures: %d/%d", result.Failed, result.Failed+result.Fetched)
	}
	return nil
}

func (h *TriggerHandler) healthCheck(ctx context.Context) error {
	if len(h.job.config.Points) == 0 {
		return nil
	}

	result := h.job.RunPoints(ctx, h.job.config.Points[:1])
	if result.AllFailed() {
		return fmt.Errorf("health check failed: %d errors", len(result.Errors))
	}
	return nil
}

func selectPoints(points []Point, names []string) []Point {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var out []Point
	for _, p := range points {
		if want[p.Name] {
			out = append(out, p)
		}
	}
	return out
}
