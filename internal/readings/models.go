// Package readings stores the records fetched from the Ambee API.
package readings

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/breatheroute/ambee/pkg/ambee"
)

// Reading errors.
var (
	ErrNotFound     = errors.New("reading not found")
	ErrInvalidPoint = errors.New("point name is required")
)

// Reading is one record fetched for a named point.
type Reading struct {
	ID        string         `json:"id"`
	Resource  ambee.Resource `json:"resource"`
	Point     string         `json:"point"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	FetchedAt time.Time      `json:"fetched_at"`

	// Payload is the JSON encoding of the *ambee.AirQuality, *ambee.Pollen
	// or *ambee.Weather record.
	Payload json.RawMessage `json:"payload"`
}

// NewReading wraps a fetched record.
func NewReading(resource ambee.Resource, point string, lat, lng float64, record any, fetchedAt time.Time) (*Reading, error) {
	if point == "" {
		return nil, ErrInvalidPoint
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", resource, err)
	}

	return &Reading{
		ID:        "rdg_" + uuid.NewString(),
		Resource:  resource,
		Point:     point,
		Lat:       lat,
		Lng:       lng,
		FetchedAt: fetchedAt.UTC(),
		Payload:   payload,
	}, nil
}

// Decode returns the typed record held in the payload.
func (r *Reading) Decode() (any, error) {
	var record any
	switch r.Resource {
	case ambee.ResourceAirQuality:
		record = &ambee.AirQuality{}
	case ambee.ResourcePollen:
		record = &ambee.Pollen{}
	case ambee.ResourceWeather:
		record = &ambee.Weather{}
	default:
		return nil, fmt.Errorf("unknown resource %q", r.Resource)
	}

	if err := json.Unmarshal(r.Payload, record); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", r.Resource, err)
	}
	return record, nil
}
