package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"harvestcast/internal/config"
	"harvestcast/internal/models"
)

// Votes is the raw signal set emitted by the governance source for a cycle.
// All scores are scaled 0-100; Confidence is the source's own trust in them.
type Votes struct {
	BullishPercentage float64  `json:"bullish_percentage"`
	TechnicalScore    float64  `json:"technical_score"`
	SentimentScore    float64  `json:"sentiment_score"`
	Confidence        *float64 `json:"confidence"`
}

// Aggregator converts governance votes into one weighted component. Source
// unavailability degrades to the configured neutral fallback instead of
// failing resolution.
type Aggregator struct {
	HTTP   *http.Client
	Config config.ConsensusConfig
	Logger *zap.Logger
}

func New(cfg config.ConsensusConfig, httpClient *http.Client, logger *zap.Logger) *Aggregator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Aggregator{HTTP: httpClient, Config: cfg, Logger: logger}
}

// Consensus builds the DAO component for a cycle. The fusion weight is
// assigned later by the resolver.
func (a *Aggregator) Consensus(ctx context.Context, cycleID uint64) models.WeatherComponent {
	votes, err := a.fetchVotes(ctx, cycleID)
	if err != nil {
		if a.Logger != nil {
			a.Logger.Warn("governance source unavailable, using neutral fallback",
				zap.Uint64("cycle_id", cycleID),
				zap.Error(err),
			)
		}
		return models.WeatherComponent{
			Score:      a.Config.NeutralScore,
			Confidence: a.Config.NeutralConfidence,
			Source:     "consensus_fallback",
			Details:    map[string]any{"error": err.Error()},
		}
	}
	return a.Compose(votes)
}

// Compose applies the configured weights to the four signals. The bearish
// signal is derived by inversion to represent the opposing viewpoint.
func (a *Aggregator) Compose(votes Votes) models.WeatherComponent {
	bull := clampScore(votes.BullishPercentage)
	bear := 100 - bull
	technical := clampScore(votes.TechnicalScore)
	sentiment := clampScore(votes.SentimentScore)

	cfg := a.Config
	score := bull*cfg.BullWeight +
		bear*cfg.BearWeight +
		technical*cfg.TechnicalWeight +
		sentiment*cfg.SentimentWeight

	// Per-signal confidence: bull and bear carry the source's confidence,
	// technical and sentiment are derived server-side and default higher.
	sourceConf := cfg.DefaultConfidence
	if votes.Confidence != nil {
		sourceConf = clampUnit(*votes.Confidence)
	}
	confidence := sourceConf*cfg.BullWeight +
		sourceConf*cfg.BearWeight +
		cfg.DerivedConfidence*cfg.TechnicalWeight +
		cfg.DerivedConfidence*cfg.SentimentWeight

	return models.WeatherComponent{
		Score:      score,
		Confidence: clampUnit(confidence),
		Source:     "dao_consensus",
		Details: map[string]any{
			"bullish":   bull,
			"bearish":   bear,
			"technical": technical,
			"sentiment": sentiment,
			"weights": map[string]float64{
				"bull":      cfg.BullWeight,
				"bear":      cfg.BearWeight,
				"technical": cfg.TechnicalWeight,
				"sentiment": cfg.SentimentWeight,
			},
		},
	}
}

func (a *Aggregator) fetchVotes(ctx context.Context, cycleID uint64) (Votes, error) {
	endpoint := strings.TrimSpace(a.Config.Endpoint)
	if endpoint == "" {
		return Votes{}, fmt.Errorf("no governance endpoint configured")
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	url := endpoint + sep + "cycle_id=" + strconv.FormatUint(cycleID, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Votes{}, err
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return Votes{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Votes{}, fmt.Errorf("http %d", resp.StatusCode)
	}

	var votes Votes
	if err := json.NewDecoder(resp.Body).Decode(&votes); err != nil {
		return Votes{}, err
	}
	return votes, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
