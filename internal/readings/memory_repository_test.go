package readings_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/ambee/internal/readings"
	"github.com/breatheroute/ambee/pkg/ambee"
)

func aqi(v int) *ambee.AirQuality {
	return &ambee.AirQuality{AirQualityIndex: &v}
}

func TestNewReading(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	r, err := readings.NewReading(ambee.ResourceAirQuality, "amsterdam", 52.37, 4.9, aqi(42), now)
	require.NoError(t, err)

	assert.Contains(t, r.ID, "rdg_")
	assert.Equal(t, time.UTC, r.FetchedAt.Location())
	assert.JSONEq(t, `{
		"particulate_matter_2_5": null,
		"particulate_matter_10": null,
		"sulphur_dioxide": null,
		"nitrogen_dioxide": null,
		"ozone": null,
		"carbon_monoxide": null,
		"air_quality_index": 42
	}`, string(r.Payload))

	record, err := r.Decode()
	require.NoError(t, err)
	aq, ok := record.(*ambee.AirQuality)
	require.True(t, ok)
	assert.Equal(t, 42, *aq.AirQualityIndex)
}

func TestNewReading_RequiresPoint(t *testing.T) {
	_, err := readings.NewReading(ambee.ResourceWeather, "", 0, 0, &ambee.Weather{}, time.Now())
	assert.ErrorIs(t, err, readings.ErrInvalidPoint)
}

func TestInMemoryRepository_LatestAndList(t *testing.T) {
	repo := readings.NewInMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		r, err := readings.NewReading(ambee.ResourceAirQuality, "amsterdam", 52.37, 4.9, aqi(i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, r))
	}
	other, err := readings.NewReading(ambee.ResourceWeather, "amsterdam", 52.37, 4.9, &ambee.Weather{}, base.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	latest, err := repo.Latest(ctx, ambee.ResourceAirQuality, "amsterdam")
	require.NoError(t, err)
	record, err := latest.Decode()
	require.NoError(t, err)
	assert.Equal(t, 2, *record.(*ambee.AirQuality).AirQualityIndex)

	list, err := repo.List(ctx, readings.ListOptions{Resource: ambee.ResourceAirQuality, Point: "amsterdam", Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].FetchedAt.After(list[1].FetchedAt))

	all, err := repo.List(ctx, readings.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, ambee.ResourceWeather, all[0].Resource)

	_, err = repo.Latest(ctx, ambee.ResourcePollen, "amsterdam")
	assert.ErrorIs(t, err, readings.ErrNotFound)
}
