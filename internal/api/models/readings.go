package models

import (
	"encoding/json"
	"time"

	"github.com/breatheroute/ambee/internal/readings"
)

// Reading is a stored reading as returned by the API.
type Reading struct {
	ID        string          `json:"id"`
	Resource  string          `json:"resource"`
	Point     string          `json:"point"`
	Lat       float64         `json:"lat"`
	Lng       float64         `json:"lng"`
	FetchedAt Timestamp       `json:"fetchedAt"`
	Data      json.RawMessage `json:"data"`
}

// NewReading converts a stored reading.
func NewReading(r *readings.Reading) Reading {
	return Reading{
		ID:        r.ID,
		Resource:  string(r.Resource),
		Point:     r.Point,
		Lat:       r.Lat,
		Lng:       r.Lng,
		FetchedAt: Timestamp(r.FetchedAt),
		Data:      r.Payload,
	}
}

// ReadingList is a page of stored readings, newest first.
type ReadingList struct {
	Items []Reading `json:"items"`
	Limit int       `json:"limit"`
}

// LiveReading is a record fetched from Ambee for the request.
type LiveReading struct {
	Resource  string    `json:"resource"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	FetchedAt Timestamp `json:"fetchedAt"`
	Data      any       `json:"data"`
}

// NewLiveReading wraps a fetched record.
func NewLiveReading(resource string, lat, lng float64, record any, fetchedAt time.Time) LiveReading {
	return LiveReading{
		Resource:  resource,
		Lat:       lat,
		Lng:       lng,
		FetchedAt: Timestamp(fetchedAt),
		Data:      record,
	}
}
