package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// OpenWeatherProvider reads current conditions from an OpenWeather
// compatible endpoint (/data/2.5/weather or similar), metric units.
type OpenWeatherProvider struct {
	HTTP     *http.Client
	Endpoint string
	APIKey   string
	Label    string
}

func (p *OpenWeatherProvider) Name() string {
	if strings.TrimSpace(p.Label) != "" {
		return p.Label
	}
	return "openweather"
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, lat, lon float64) (Measurement, error) {
	endpoint := strings.TrimSpace(p.Endpoint)
	if endpoint == "" {
		return Measurement{}, fmt.Errorf("empty endpoint")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return Measurement{}, fmt.Errorf("missing api key")
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("units", "metric")
	q.Set("appid", p.APIKey)
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
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"` // m/s in metric mode
		} `json:"wind"`
		Rain struct {
			OneHour float64 `json:"1h"`
		} `json:"rain"`
		Dt int64 `json:"dt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Measurement{}, err
	}

	m := Measurement{
		TemperatureC:    parsed.Main.Temp,
		HumidityPct:     parsed.Main.Humidity,
		WindSpeedKmh:    parsed.Wind.Speed * 3.6,
		PrecipitationMm: parsed.Rain.OneHour,
	}
	if parsed.Dt > 0 {
		m.ObservedAt = time.Unix(parsed.Dt, 0).UTC()
	}
	return m, nil
}
