// Package worker polls the Ambee API for a set of named points and stores
// the readings.
package worker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/breatheroute/ambee/pkg/ambee"
)

var errInvalidPoint = errors.New("invalid point")

// Point is a named coordinate to poll.
type Point struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// PollConfig holds configuration for the poll job.
type PollConfig struct {
	// Points are the coordinates to poll.
	// If empty, uses DefaultPoints.
	Points []Point

	// Resources are the records fetched for every point.
	// Default: all resources
	Resources []ambee.Resource

	// Concurrency is the number of points polled at once.
	// Default: 3
	Concurrency int

	// Timeout bounds all fetches of one point.
	// Default: 30 seconds
	Timeout time.Duration

	// Interval is the delay between healthy cycles.
	// Default: 15 minutes
	Interval time.Duration

	// MaxBackoff caps the delay after consecutive failed cycles.
	// Default: 4 times Interval
	MaxBackoff time.Duration
}

// DefaultPollConfig returns the default poll configuration.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Points:      DefaultPoints(),
		Resources:   ambee.AllResources(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
		Interval:    15 * time.Minute,
		MaxBackoff:  time.Hour,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	d := DefaultPollConfig()
	if len(c.Points) == 0 {
		c.Points = d.Points
	}
	if len(c.Resources) == 0 {
		c.Resources = d.Resources
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 4 * c.Interval
	}
	return c
}

// DefaultPoints returns the city centres polled when none are configured.
func DefaultPoints() []Point {
	return []Point{
		{Name: "amsterdam", Lat: 52.3676, Lng: 4.9041},
		{Name: "rotterdam", Lat: 51.9244, Lng: 4.4777},
		{Name: "den-haag", Lat: 52.0705, Lng: 4.3007},
		{Name: "utrecht", Lat: 52.0894, Lng: 5.1102},
		{Name: "eindhoven", Lat: 51.4416, Lng: 5.4697},
	}
}

// ParsePoints parses "name:lat:lng" entries separated by semicolons.
// An empty string yields no points.
func ParsePoints(s string) ([]Point, error) {
	var points []Point
	seen := make(map[string]bool)

	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("%w: %q, want name:lat:lng", errInvalidPoint, entry)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("%w: %q has invalid latitude", errInvalidPoint, entry)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || lng < -180 || lng > 180 {
			return nil, fmt.Errorf("%w: %q has invalid longitude", errInvalidPoint, entry)
		}

		name := strings.TrimSpace(parts[0])
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate name %q", errInvalidPoint, name)
		}
		seen[name] = true

		points = append(points, Point{Name: name, Lat: lat, Lng: lng})
	}

	return points, nil
}
