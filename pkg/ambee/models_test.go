package ambee_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/ambee/pkg/ambee"
)

func decodeEnvelope(t *testing.T, body string) ambee.Envelope {
	t.Helper()
	var env ambee.Envelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	return env
}

func ptr[T any](v T) *T { return &v }

func TestParseAirQuality_PartialStation(t *testing.T) {
	env := decodeEnvelope(t, `{"message":"success","stations":[{"PM25":12.3,"AQI":42}]}`)

	aq, err := ambee.ParseAirQuality(env)
	require.NoError(t, err)

	require.NotNil(t, aq.ParticulateMatter2_5)
	assert.Equal(t, 12.3, *aq.ParticulateMatter2_5)
	require.NotNil(t, aq.AirQualityIndex)
	assert.Equal(t, 42, *aq.AirQualityIndex)

	assert.Nil(t, aq.ParticulateMatter10)
	assert.Nil(t, aq.SulphurDioxide)
	assert.Nil(t, aq.NitrogenDioxide)
	assert.Nil(t, aq.Ozone)
	assert.Nil(t, aq.CarbonMonoxide)
}

func TestParseAirQuality_FullStation(t *testing.T) {
	env := decodeEnvelope(t, `{
		"message": "success",
		"stations": [
			{"CO": 0.39, "NO2": 20.9, "OZONE": 29.3, "PM10": 24.1, "PM25": 12.5, "SO2": 2.3, "AQI": 52},
			{"CO": 9, "AQI": 1}
		]
	}`)

	aq, err := ambee.ParseAirQuality(env)
	require.NoError(t, err)

	assert.Equal(t, 12.5, *aq.ParticulateMatter2_5)
	assert.Equal(t, 24.1, *aq.ParticulateMatter10)
	assert.Equal(t, 2.3, *aq.SulphurDioxide)
	assert.Equal(t, 20.9, *aq.NitrogenDioxide)
	assert.Equal(t, 29.3, *aq.Ozone)
	assert.Equal(t, 0.39, *aq.CarbonMonoxide)
	assert.Equal(t, 52, *aq.AirQualityIndex)
}

func TestParseAirQuality_BadShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing stations", `{"message":"success"}`},
		{"empty stations", `{"message":"success","stations":[]}`},
		{"stations not an array", `{"message":"success","stations":{"PM25":1}}`},
		{"station not an object", `{"message":"success","stations":[1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ambee.ParseAirQuality(decodeEnvelope(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ambee.ErrUnexpectedShape)

			var apiErr *ambee.Error
			assert.False(t, errors.As(err, &apiErr), "shape errors are not API errors")
		})
	}
}

func TestParseAirQuality_NonIntegralIndexIsAbsent(t *testing.T) {
	env := decodeEnvelope(t, `{"message":"success","stations":[{"AQI":42.5,"PM10":"n/a"}]}`)

	aq, err := ambee.ParseAirQuality(env)
	require.NoError(t, err)
	assert.Nil(t, aq.AirQualityIndex)
	assert.Nil(t, aq.ParticulateMatter10)
}

const pollenFixture = `{
	"message": "success",
	"lat": 52.42,
	"lng": 6.42,
	"data": [
		{
			"Count": {"grass_pollen": 190, "tree_pollen": 127, "weed_pollen": 95},
			"Risk": {"grass_pollen": "High", "tree_pollen": "Moderate", "weed_pollen": "High"},
			"Species": {
				"Grass": {"Grass / Poaceae": 190},
				"Others": 3,
				"Tree": {
					"Alder": 1, "Birch": 35, "Cypress": 3, "Elm": 2, "Hazel": 0,
					"Oak": 60, "Pine": 12, "Plane": 7, "Poplar / Cottonwood": 7
				},
				"Weed": {"Chenopod": 4, "Mugwort": 1, "Nettle": 88, "Ragweed": 2}
			},
			"updatedAt": "2021-06-08T09:00:00.000Z"
		}
	]
}`

func TestParsePollen_Full(t *testing.T) {
	p, err := ambee.ParsePollen(decodeEnvelope(t, pollenFixture))
	require.NoError(t, err)

	assert.Equal(t, "High", *p.GrassRisk)
	assert.Equal(t, "Moderate", *p.TreeRisk)
	assert.Equal(t, "High", *p.WeedRisk)

	assert.Equal(t, 190, *p.GrassCount)
	assert.Equal(t, 127, *p.TreeCount)
	assert.Equal(t, 95, *p.WeedCount)

	assert.Equal(t, 190, *p.GrassPoaceae)

	assert.Equal(t, 1, *p.TreeAlder)
	assert.Equal(t, 35, *p.TreeBirch)
	assert.Equal(t, 3, *p.TreeCypress)
	assert.Equal(t, 2, *p.TreeElm)
	assert.Equal(t, 0, *p.TreeHazel)
	assert.Equal(t, 60, *p.TreeOak)
	assert.Equal(t, 12, *p.TreePine)
	assert.Equal(t, 7, *p.TreePlane)
	assert.Equal(t, 7, *p.TreePoplar)

	assert.Equal(t, 4, *p.WeedChenopod)
	assert.Equal(t, 1, *p.WeedMugwort)
	assert.Equal(t, 88, *p.WeedNettle)
	assert.Equal(t, 2, *p.WeedRagweed)
}

func TestParsePollen_MissingSubObjects(t *testing.T) {
	p, err := ambee.ParsePollen(decodeEnvelope(t, `{"message":"success","data":[{"Risk":{"tree_pollen":"Low"}}]}`))
	require.NoError(t, err)

	require.NotNil(t, p.TreeRisk)
	assert.Equal(t, "Low", *p.TreeRisk)

	assert.Equal(t, ambee.Pollen{TreeRisk: p.TreeRisk}, *p)
}

func TestParsePollen_BadShape(t *testing.T) {
	_, err := ambee.ParsePollen(decodeEnvelope(t, `{"message":"success","data":{}}`))
	assert.ErrorIs(t, err, ambee.ErrUnexpectedShape)

	_, err = ambee.ParsePollen(decodeEnvelope(t, `{"message":"success","data":[]}`))
	assert.ErrorIs(t, err, ambee.ErrUnexpectedShape)
}

const weatherFixture = `{
	"message": "success",
	"data": {
		"time": 1623153600,
		"lat": 12,
		"lng": 77,
		"apparentTemperature": 68.5,
		"cloudCover": 0.92,
		"dewPoint": 63.18,
		"humidity": 0.83,
		"ozone": 266.3,
		"pressure": 1010.1,
		"temperature": 68.3,
		"visibility": 6.0,
		"windBearing": 270,
		"windGust": 18.39,
		"windSpeed": 10.5
	}
}`

func TestParseWeather_Full(t *testing.T) {
	w, err := ambee.ParseWeather(decodeEnvelope(t, weatherFixture))
	require.NoError(t, err)

	assert.Equal(t, 68.3, *w.Temperature)
	assert.Equal(t, 68.5, *w.ApparentTemperature)
	assert.Equal(t, 0.83, *w.Humidity)
	assert.Equal(t, 1010.1, *w.Pressure)
	assert.Equal(t, 63.18, *w.DewPoint)
	assert.Equal(t, 266.3, *w.Ozone)
	assert.Equal(t, 0.92, *w.CloudCover)
	assert.Equal(t, 6.0, *w.Visibility)
	assert.Equal(t, 270.0, *w.WindBearing)
	assert.Equal(t, 18.39, *w.WindGust)
	assert.Equal(t, 10.5, *w.WindSpeed)
	assert.Equal(t, int64(1623153600), *w.Time)
}

func TestParseWeather_MissingKeys(t *testing.T) {
	w, err := ambee.ParseWeather(decodeEnvelope(t, `{"message":"success","data":{"temperature":null}}`))
	require.NoError(t, err)
	assert.Equal(t, ambee.Weather{}, *w)
}

func TestParseWeather_Time(t *testing.T) {
	tests := []struct {
		name     string
		time     string
		expected *int64
	}{
		{"past 2038", "4102444800", ptr(int64(4102444800))},
		{"largest exact", "9007199254740992", ptr(int64(1 << 53))},
		{"beyond exact range", "1152921504606846976", nil},
		{"fractional", "1623153600.5", nil},
		{"string", `"1623153600"`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ambee.ParseWeather(decodeEnvelope(t, `{"message":"success","data":{"time":`+tt.time+`}}`))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, w.Time)
		})
	}
}

func TestParseAirQuality_HugeIndexIsAbsent(t *testing.T) {
	env := decodeEnvelope(t, `{"message":"success","stations":[{"AQI":1152921504606846976}]}`)

	aq, err := ambee.ParseAirQuality(env)
	require.NoError(t, err)
	assert.Nil(t, aq.AirQualityIndex)
}

func TestParseWeather_DataIsArray(t *testing.T) {
	_, err := ambee.ParseWeather(decodeEnvelope(t, `{"message":"success","data":[{"temperature":1}]}`))
	assert.ErrorIs(t, err, ambee.ErrUnexpectedShape)
}

func TestParseResource(t *testing.T) {
	tests := []struct {
		in       string
		expected ambee.Resource
		path     string
	}{
		{"air-quality", ambee.ResourceAirQuality, "latest"},
		{"air_quality", ambee.ResourceAirQuality, "latest"},
		{"pollen", ambee.ResourcePollen, "latest/pollen"},
		{"weather", ambee.ResourceWeather, "weather/latest"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ambee.ParseResource(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, r)
			assert.Equal(t, tt.path, r.Path())
		})
	}

	_, err := ambee.ParseResource("uv")
	assert.Error(t, err)
}
