// Package ambeetest provides a fake Ambee API for tests.
package ambeetest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// APIKey is the key the fake server accepts.
const APIKey = "test-key"

// Payloads served for each endpoint.
const (
	AirQualityBody = `{"message":"success","stations":[{"PM25":12.5,"PM10":24.1,"AQI":52}]}`
	PollenBody     = `{"message":"success","data":[{"Count":{"grass_pollen":190},"Risk":{"grass_pollen":"High"}}]}`
	WeatherBody    = `{"message":"success","data":{"temperature":68.3,"time":1623153600}}`
)

// Server is a fake Ambee API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	statuses map[string]int
	requests atomic.Int64
}

// NewServer starts a fake Ambee API that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{statuses: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/latest/by-lat-lng", s.handle("/latest/by-lat-lng", AirQualityBody))
	mux.HandleFunc("/latest/pollen/by-lat-lng", s.handle("/latest/pollen/by-lat-lng", PollenBody))
	mux.HandleFunc("/weather/latest/by-lat-lng", s.handle("/weather/latest/by-lat-lng", WeatherBody))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Fail makes path answer with status until Fail is called with 0.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.statuses, path)
		return
	}
	s.statuses[path] = status
}

// Requests returns the number of requests served.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

func (s *Server) handle(path, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)

		if r.Header.Get("x-api-key") != APIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		s.mu.Lock()
		status := s.statuses[path]
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"failure"}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}
}
