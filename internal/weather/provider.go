package weather

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"harvestcast/internal/config"
	"harvestcast/internal/models"
)

// ErrUnavailable is returned when every configured provider failed. Weather
// absence is an expected operating mode for resolution, not a fatal error.
var ErrUnavailable = errors.New("weather unavailable")

// Measurement is one normalized reading for the selected location.
type Measurement struct {
	TemperatureC    float64   `json:"temperature_c"`
	HumidityPct     float64   `json:"humidity_pct"`
	WindSpeedKmh    float64   `json:"wind_speed_kmh"`
	PrecipitationMm float64   `json:"precipitation_mm"`
	Source          string    `json:"source"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Provider abstracts one upstream weather API. Providers are attempted in
// order; additional providers slot in without touching resolution logic.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) (Measurement, error)
}

// Service walks the ordered provider list with a bounded per-call timeout
// and a fixed backoff between attempts.
type Service struct {
	Providers []Provider
	Logger    *zap.Logger

	FetchTimeout   time.Duration
	AttemptBackoff time.Duration
}

func NewService(cfg config.WeatherConfig, httpClient *http.Client, logger *zap.Logger) *Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.FetchTimeout}
	}
	providers := make([]Provider, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		switch strings.ToLower(strings.TrimSpace(src.Kind)) {
		case "openweather":
			key := ""
			if strings.TrimSpace(src.APIKeyEnv) != "" {
				key = strings.TrimSpace(os.Getenv(strings.TrimSpace(src.APIKeyEnv)))
			}
			providers = append(providers, &OpenWeatherProvider{
				HTTP:     httpClient,
				Endpoint: src.Endpoint,
				APIKey:   key,
				Label:    src.Name,
			})
		case "openmeteo":
			providers = append(providers, &OpenMeteoProvider{
				HTTP:     httpClient,
				Endpoint: src.Endpoint,
				Label:    src.Name,
			})
		}
	}
	return &Service{
		Providers:      providers,
		Logger:         logger,
		FetchTimeout:   cfg.FetchTimeout,
		AttemptBackoff: cfg.AttemptBackoff,
	}
}

// Fetch tries each provider in order and returns the first measurement.
// On exhaustion it returns ErrUnavailable rather than the last raw error.
func (s *Service) Fetch(ctx context.Context, loc models.Location) (Measurement, error) {
	if s == nil || len(s.Providers) == 0 {
		return Measurement{}, ErrUnavailable
	}
	timeout := s.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backoff := s.AttemptBackoff
	if backoff < 0 {
		backoff = 0
	}

	for i, p := range s.Providers {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		m, err := p.Fetch(callCtx, loc.Latitude, loc.Longitude)
		cancel()
		if err == nil {
			m.Source = p.Name()
			if m.ObservedAt.IsZero() {
				m.ObservedAt = time.Now().UTC()
			}
			return m, nil
		}
		if s.Logger != nil {
			s.Logger.Warn("weather provider attempt failed",
				zap.String("provider", p.Name()),
				zap.String("location", loc.ID),
				zap.Error(err),
			)
		}
		if ctx.Err() != nil {
			return Measurement{}, ErrUnavailable
		}
		if i < len(s.Providers)-1 && backoff > 0 {
			select {
			case <-ctx.Done():
				return Measurement{}, ErrUnavailable
			case <-time.After(backoff):
			}
		}
	}
	return Measurement{}, ErrUnavailable
}
