package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// OpenMeteoProvider is the keyless fallback source.
type OpenMeteoProvider struct {
	HTTP     *http.Client
	Endpoint string
	Label    string
}

func (p *OpenMeteoProvider) Name() string {
	if strings.TrimSpace(p.Label) != "" {
		return p.Label
	}
	return "open-meteo"
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, lat, lon float64) (Measurement, error) {
	endpoint := strings.TrimSpace(p.Endpoint)
	if endpoint == "" {
		endpoint = "https://api.open-meteo.com/v1/forecast"
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,precipitation")
	q.Set("wind_speed_unit", "kmh")
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+sep+q.Encode(), nil)
	if err != nil {
		return Measurement{}, err
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return Measurement{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Measurement{}, fmt.Errorf("http %d", resp.StatusCode)
	}

	var parsed struct {
		Current struct {
			Temperature   float64 `json:"temperature_2m"`
			Humidity      float64 `json:"relative_humidity_2m"`
			WindSpeed     float64 `json:"wind_speed_10m"`
			Precipitation float64 `json:"precipitation"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Measurement{}, err
	}

	return Measurement{
		TemperatureC:    parsed.Current.Temperature,
		HumidityPct:     parsed.Current.Humidity,
		WindSpeedKmh:    parsed.Current.WindSpeed,
		PrecipitationMm: parsed.Current.Precipitation,
	}, nil
}
