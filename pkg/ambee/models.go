package ambee

import (
	"encoding/json"
	"fmt"
	"math"
)

// Envelope is a decoded Ambee response body. Every response carries a
// "message" field; the rest of its shape depends on the resource.
type Envelope map[string]any

// Message returns the envelope's message field and whether it is a string.
func (e Envelope) Message() (string, bool) {
	msg, ok := e["message"].(string)
	return msg, ok
}

// AirQuality is the latest air quality reading for a coordinate.
type AirQuality struct {
	ParticulateMatter2_5 *float64 `json:"particulate_matter_2_5"` //nolint:revive // mirrors the PM2.5 name
	ParticulateMatter10  *float64 `json:"particulate_matter_10"`
	SulphurDioxide       *float64 `json:"sulphur_dioxide"`
	NitrogenDioxide      *float64 `json:"nitrogen_dioxide"`
	Ozone                *float64 `json:"ozone"`
	CarbonMonoxide       *float64 `json:"carbon_monoxide"`
	AirQualityIndex      *int     `json:"air_quality_index"`
}

// Pollen is the latest pollen count and risk for a coordinate.
type Pollen struct {
	GrassRisk *string `json:"grass_risk"`
	TreeRisk  *string `json:"tree_risk"`
	WeedRisk  *string `json:"weed_risk"`

	GrassCount *int `json:"grass_count"`
	TreeCount  *int `json:"tree_count"`
	WeedCount  *int `json:"weed_count"`

	GrassPoaceae *int `json:"grass_poaceae"`

	TreeAlder   *int `json:"tree_alder"`
	TreeBirch   *int `json:"tree_birch"`
	TreeCypress *int `json:"tree_cypress"`
	TreeElm     *int `json:"tree_elm"`
	TreeHazel   *int `json:"tree_hazel"`
	TreeOak     *int `json:"tree_oak"`
	TreePine    *int `json:"tree_pine"`
	TreePlane   *int `json:"tree_plane"`
	TreePoplar  *int `json:"tree_poplar"`

	WeedChenopod *int `json:"weed_chenopod"`
	WeedMugwort  *int `json:"weed_mugwort"`
	WeedNettle   *int `json:"weed_nettle"`
	WeedRagweed  *int `json:"weed_ragweed"`
}

// Weather is the latest weather observation for a coordinate.
type Weather struct {
	Temperature         *float64 `json:"temperature"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	Humidity            *float64 `json:"humidity"`
	Pressure            *float64 `json:"pressure"`
	DewPoint            *float64 `json:"dew_point"`
	Ozone               *float64 `json:"ozone"`
	CloudCover          *float64 `json:"cloud_cover"`
	Visibility          *float64 `json:"visibility"`
	WindBearing         *float64 `json:"wind_bearing"`
	WindGust            *float64 `json:"wind_gust"`
	WindSpeed           *float64 `json:"wind_speed"`
	Time                *int64   `json:"time"`
}

// ParseAirQuality builds an AirQuality from the first station in env.
func ParseAirQuality(env Envelope) (*AirQuality, error) {
	station, err := firstObject(env, "stations")
	if err != nil {
		return nil, err
	}

	return &AirQuality{
		ParticulateMatter2_5: floatField(station, "PM25"),
		ParticulateMatter10:  floatField(station, "PM10"),
		SulphurDioxide:       floatField(station, "SO2"),
		NitrogenDioxide:      floatField(station, "NO2"),
		Ozone:                floatField(station, "OZONE"),
		CarbonMonoxide:       floatField(station, "CO"),
		AirQualityIndex:      intField(station, "AQI"),
	}, nil
}

// ParsePollen builds a Pollen from the first entry of env's data array.
func ParsePollen(env Envelope) (*Pollen, error) {
	data, err := firstObject(env, "data")
	if err != nil {
		return nil, err
	}

	count := objectField(data, "Count")
	risk := objectField(data, "Risk")
	species := objectField(data, "Species")
	grass := objectField(species, "Grass")
	tree := objectField(species, "Tree")
	weed := objectField(species, "Weed")

	return &Pollen{
		GrassRisk: stringField(risk, "grass_pollen"),
		TreeRisk:  stringField(risk, "tree_pollen"),
		WeedRisk:  stringField(risk, "weed_pollen"),

		GrassCount: intField(count, "grass_pollen"),
		TreeCount:  intField(count, "tree_pollen"),
		WeedCount:  intField(count, "weed_pollen"),

		GrassPoaceae: intField(grass, "Grass / Poaceae"),

		TreeAlder:   intField(tree, "Alder"),
		TreeBirch:   intField(tree, "Birch"),
		TreeCypress: intField(tree, "Cypress"),
		TreeElm:     intField(tree, "Elm"),
		TreeHazel:   intField(tree, "Hazel"),
		TreeOak:     intField(tree, "Oak"),
		TreePine:    intField(tree, "Pine"),
		TreePlane:   intField(tree, "Plane"),
		TreePoplar:  intField(tree, "Poplar / Cottonwood"),

		WeedChenopod: intField(weed, "Chenopod"),
		WeedMugwort:  intField(weed, "Mugwort"),
		WeedNettle:   intField(weed, "Nettle"),
		WeedRagweed:  intField(weed, "Ragweed"),
	}, nil
}

// ParseWeather builds a Weather from env's data object.
func ParseWeather(env Envelope) (*Weather, error) {
	data, ok := asObject(env["data"])
	if !ok {
		return nil, fmt.Errorf("data: expected object: %w", ErrUnexpectedShape)
	}

	return &Weather{
		Temperature:         floatField(data, "temperature"),
		ApparentTemperature: floatField(data, "apparentTemperature"),
		Humidity:            floatField(data, "humidity"),
		Pressure:            floatField(data, "pressure"),
		DewPoint:            floatField(data, "dewPoint"),
		Ozone:               floatField(data, "ozone"),
		CloudCover:          floatField(data, "cloudCover"),
		Visibility:          floatField(data, "visibility"),
		WindBearing:         floatField(data, "windBearing"),
		WindGust:            floatField(data, "windGust"),
		WindSpeed:           floatField(data, "windSpeed"),
		Time:                int64Field(data, "time"),
	}, nil
}

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

// firstObject returns env[key][0], which must be a JSON object.
func firstObject(env Envelope, key string) (map[string]any, error) {
	list, ok := env[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected array: %w", key, ErrUnexpectedShape)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: empty array: %w", key, ErrUnexpectedShape)
	}
	obj, ok := asObject(list[0])
	if !ok {
		return nil, fmt.Errorf("%s[0]: expected object: %w", key, ErrUnexpectedShape)
	}
	return obj, nil
}

// objectField returns m[key] as an object, or an empty one.
func objectField(m map[string]any, key string) map[string]any {
	if obj, ok := asObject(m[key]); ok {
		return obj
	}
	return map[string]any{}
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case Envelope:
		return o, true
	default:
		return nil, false
	}
}

func floatField(m map[string]any, key string) *float64 {
	f, ok := number(m[key])
	if !ok {
		return nil
	}
	return &f
}

// intField accepts integral numbers only; 42.5 is treated as absent, as is
// anything outside the platform int range.
func intField(m map[string]any, key string) *int {
	f, ok := integral(m[key])
	if !ok || f > math.MaxInt || f < math.MinInt {
		return nil
	}
	i := int(f)
	return &i
}

func int64Field(m map[string]any, key string) *int64 {
	f, ok := integral(m[key])
	if !ok {
		return nil
	}
	i := int64(f)
	return &i
}

func integral(v any) (float64, bool) {
	f, ok := number(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > maxExactInt {
		return 0, false
	}
	return f, true
}

func stringField(m map[string]any, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
