package ambee

import (
	"context"
	"fmt"
)

// Resource names one of the data types the API serves.
type Resource string

const (
	ResourceAirQuality Resource = "air_quality"
	ResourcePollen     Resource = "pollen"
	ResourceWeather    Resource = "weather"
)

// AllResources returns every supported resource.
func AllResources() []Resource {
	return []Resource{ResourceAirQuality, ResourcePollen, ResourceWeather}
}

// Path returns the request path prefix for the resource.
func (r Resource) Path() string {
	switch r {
	case ResourceAirQuality:
		return "latest"
	case ResourcePollen:
		return "latest/pollen"
	case ResourceWeather:
		return "weather/latest"
	default:
		return ""
	}
}

// ParseResource accepts the resource names plus the dashed variants used in URLs.
func ParseResource(s string) (Resource, error) {
	switch s {
	case "air_quality", "air-quality", "airquality":
		return ResourceAirQuality, nil
	case "pollen":
		return ResourcePollen, nil
	case "weather":
		return ResourceWeather, nil
	default:
		return "", fmt.Errorf("unknown resource %q", s)
	}
}

// Fetch gets the latest record for r. The result is *AirQuality, *Pollen or *Weather.
func (c *Client) Fetch(ctx context.Context, r Resource) (any, error) {
	switch r {
	case ResourceAirQuality:
		return c.AirQuality(ctx)
	case ResourcePollen:
		return c.Pollen(ctx)
	case ResourceWeather:
		return c.Weather(ctx)
	default:
		return nil, fmt.Errorf("unknown resource %q", string(r))
	}
}
