package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/ambee/internal/provider/resilience"
	"github.com/breatheroute/ambee/internal/worker"
)

func TestLoadConfig_Points(t *testing.T) {
	t.Setenv("AMBEE_API_KEY", "key")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("POLL_POINTS", "")
		_, points, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, worker.DefaultPoints(), points)
	})

	t.Run("configured", func(t *testing.T) {
		t.Setenv("POLL_POINTS", "home:52.1:5.1;office:52.3:4.9")
		_, points, err := loadConfig()
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, "office", points[1].Name)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("POLL_POINTS", "home:200:5.1")
		_, _, err := loadConfig()
		assert.ErrorContains(t, err, "POLL_POINTS")
	})
}

func TestLoadConfig_MissingKey(t *testing.T) {
	t.Setenv("AMBEE_API_KEY", "")
	_, _, err := loadConfig()
	assert.Error(t, err)
}

func TestHealthRouter(t *testing.T) {
	registry := resilience.NewRegistry()
	job := worker.NewPollJob(worker.PollJobConfig{Registry: registry, Logger: zerolog.Nop()})

	rec := httptest.NewRecorder()
	healthRouter(zerolog.Nop(), job, registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string            `json:"status"`
		Breakers map[string]string `json:"breakers"`
		Metrics  map[string]any    `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "closed", body.Breakers["pollen"])
	assert.Contains(t, body.Metrics, "total_cycles")
}
