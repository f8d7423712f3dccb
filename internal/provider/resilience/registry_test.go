package resilience_test

import (
	"context"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/ambee/internal/provider/resilience"
	"github.com/breatheroute/ambee/pkg/ambee"
)

func TestRegistry_RegisterAndHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	b := resilience.NewBreaker(resilience.DefaultBreakerConfig("air_quality"), registry)

	assert.Equal(t, 1, registry.Len())

	health := registry.Health("air_quality")
	require.NotNil(t, health)
	assert.Equal(t, "air_quality", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.False(t, health.IsDegraded())
	assert.False(t, health.IsUnhealthy())
	assert.Nil(t, health.LastSuccessAt)
	assert.Equal(t, "air_quality", b.Name())
}

func TestRegistry_RecordsOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	b := resilience.NewBreaker(resilience.DefaultBreakerConfig("weather"), registry)

	_, err := b.Execute(context.Background(), func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)

	health := registry.Health("weather")
	require.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	_, err = b.Execute(context.Background(), func(context.Context) (any, error) {
		return nil, &ambee.Error{Kind: ambee.KindAPI, StatusCode: 500, Message: "error response from Ambee API"}
	})
	require.Error(t, err)

	health = registry.Health("weather")
	require.NotNil(t, health.LastFailureAt)
	assert.Equal(t, "error response from Ambee API (status 500)", health.LastError)
	assert.Equal(t, uint32(1), health.Counts.TotalFailures)
}

func TestRegistry_AllHealthSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, r := range []ambee.Resource{ambee.ResourceWeather, ambee.ResourceAirQuality, ambee.ResourcePollen} {
		_ = resilience.NewBreaker(resilience.DefaultBreakerConfig(string(r)), registry)
	}

	all := registry.AllHealth()
	require.Len(t, all, 3)
	assert.Equal(t, "air_quality", all[0].Name)
	assert.Equal(t, "pollen", all[1].Name)
	assert.Equal(t, "weather", all[2].Name)
}
