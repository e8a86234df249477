package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"harvestcast/internal/models"
	"harvestcast/internal/repository"
	"harvestcast/internal/wager"
)

var (
	// ErrCycleNotFound is fatal: no retry is meaningful.
	ErrCycleNotFound = errors.New("cycle not found")
	// ErrAlreadyResolved is what a losing racer observes; the resolution
	// record already exists and nothing was double-written.
	ErrAlreadyResolved = errors.New("cycle already resolved")
)

// Fusion weights. Two formulas: with a real weather measurement the DAO
// yields some weight to it; without one the wager pool absorbs it.
const (
	daoWeightWithWeather   = 0.5
	weatherFusionWeight    = 0.3
	wagerWeightWithWeather = 0.2

	daoWeightNoWeather   = 0.6
	wagerWeightNoWeather = 0.4
)

// Wager-component confidence saturation points: ten participants or a
// thousand staked tokens each max out their half of the trust term.
const (
	fullConfidenceParticipants = 10
	fullConfidenceStake        = 1000
)

// Repository is the slice of persistence the resolver needs.
type Repository interface {
	GetCycle(ctx context.Context, id uint64) (*models.Cycle, error)
	GetLocation(ctx context.Context, id string) (*models.Location, error)
	MarkCycleResolving(ctx context.Context, id uint64) (bool, error)
	FinalizeCycleResolution(ctx context.Context, id uint64, update repository.CycleResolutionUpdate, record *models.ResolutionRecord) (bool, error)
}

// ConsensusSource yields the governance component for a cycle. It never
// fails; unavailability degrades to a neutral component.
type ConsensusSource interface {
	Consensus(ctx context.Context, cycleID uint64) models.WeatherComponent
}

// PoolSource yields the aggregate stake summary for a cycle.
type PoolSource interface {
	PoolSummary(ctx context.Context, cycleID uint64) (wager.Summary, error)
}

// Resolver fuses the governance, weather, and wager signals into one final
// outcome and persists it exactly once per cycle.
type Resolver struct {
	Repo      Repository
	Consensus ConsensusSource
	Pool      PoolSource
	Logger    *zap.Logger

	// Confidence assigned to a real weather measurement; a real reading is
	// trusted more than derived estimates.
	WeatherConfidence float64
}

// Resolve runs the full resolution procedure for a cycle. Safe to retry:
// the resolved transition is guarded at the persistence layer, so exactly
// one caller wins and the rest observe ErrAlreadyResolved.
func (r *Resolver) Resolve(ctx context.Context, cycleID uint64) (*models.ResolutionRecord, error) {
	if r == nil || r.Repo == nil {
		return nil, errors.New("resolver not initialized")
	}

	cycle, err := r.Repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrCycleNotFound
	}
	if cycle.Phase == models.PhaseResolved {
		return nil, ErrAlreadyResolved
	}

	ok, err := r.Repo.MarkCycleResolving(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyResolved
	}

	dao := r.Consensus.Consensus(ctx, cycleID)

	weatherComp, hasRealWeather := r.weatherComponent(cycle)
	if !hasRealWeather && r.Logger != nil {
		r.Logger.Warn("resolving without real weather, wager weight increased",
			zap.Uint64("cycle_id", cycleID),
		)
	}

	wagerComp, err := r.wagerComponent(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	if hasRealWeather {
		dao.Weight = daoWeightWithWeather
		weatherComp.Weight = weatherFusionWeight
		wagerComp.Weight = wagerWeightWithWeather
	} else {
		dao.Weight = daoWeightNoWeather
		weatherComp.Weight = 0
		wagerComp.Weight = wagerWeightNoWeather
	}

	finalScore, confidence := Fuse(dao, weatherComp, wagerComp)

	outcome := models.OutcomeBad
	if finalScore > 50 {
		outcome = models.OutcomeGood
	}

	formula := models.FormulaWithoutWeather
	if hasRealWeather {
		formula = models.FormulaWithWeather
	}

	locationName := ""
	if cycle.LocationID != nil {
		if loc, err := r.Repo.GetLocation(ctx, *cycle.LocationID); err == nil && loc != nil {
			locationName = loc.Name
		}
	}

	componentsJSON, err := json.Marshal([]models.WeatherComponent{dao, weatherComp, wagerComp})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.ResolutionRecord{
		CycleID:      cycleID,
		Outcome:      string(outcome),
		FinalScore:   finalScore,
		Confidence:   confidence,
		Formula:      formula,
		Components:   datatypes.JSON(componentsJSON),
		LocationName: locationName,
		CyclePhase:   cycle.Phase,
		ResolvedAt:   now,
	}

	// One transaction covers the phase transition and the record insert:
	// either the cycle is resolved and its record exists, or neither, so a
	// failed write stays retryable.
	won, err := r.Repo.FinalizeCycleResolution(ctx, cycleID, repository.CycleResolutionUpdate{
		Outcome:    outcome,
		FinalScore: finalScore,
		Confidence: confidence,
		ResolvedAt: now,
	}, record)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrAlreadyResolved
	}

	if r.Logger != nil {
		r.Logger.Info("cycle resolved",
			zap.Uint64("cycle_id", cycleID),
			zap.String("outcome", string(outcome)),
			zap.Float64("final_score", finalScore),
			zap.Float64("confidence", confidence),
			zap.String("formula", formula),
		)
	}
	return record, nil
}

// weatherComponent normalizes the stored suitability snapshot. A recorded
// fetch error or a missing snapshot degrades to a zero component.
func (r *Resolver) weatherComponent(cycle *models.Cycle) (models.WeatherComponent, bool) {
	if cycle.LocationID == nil || cycle.WeatherScore == nil || cycle.WeatherFetchError != nil {
		return models.WeatherComponent{
			Score:      0,
			Confidence: 0,
			Source:     "unavailable",
		}, false
	}
	score := *cycle.WeatherScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	details := map[string]any{}
	if cycle.WeatherOutlook != nil {
		details["outlook"] = *cycle.WeatherOutlook
	}
	return models.WeatherComponent{
		Score:      score,
		Confidence: r.WeatherConfidence,
		Source:     "real_weather",
		Details:    details,
	}, true
}

// wagerComponent maps betInfluence from [-2,2] onto [0,100] and derives
// confidence from participation and staked volume independently.
func (r *Resolver) wagerComponent(ctx context.Context, cycleID uint64) (models.WeatherComponent, error) {
	summary, err := r.Pool.PoolSummary(ctx, cycleID)
	if err != nil {
		return models.WeatherComponent{}, err
	}

	score := math.Round(((summary.Influence.BetInfluence + 2.0) / 4.0) * 100)

	participationTerm := math.Min(1, float64(summary.Participants)/fullConfidenceParticipants)
	stakeTerm := math.Min(1, summary.TotalStake.InexactFloat64()/fullConfidenceStake)
	confidence := (participationTerm + stakeTerm) / 2

	return models.WeatherComponent{
		Score:      score,
		Confidence: confidence,
		Source:     "wager_pool",
		Details: map[string]any{
			"bet_influence": summary.Influence.BetInfluence,
			"dominant_side": summary.Influence.DominantSide,
			"participants":  summary.Participants,
			"total_stake":   summary.TotalStake.String(),
		},
	}, nil
}

// Fuse computes the weighted final score (rounded to 2 decimals) and the
// overall confidence, normalized by the sum of active weights.
func Fuse(components ...models.WeatherComponent) (finalScore, confidence float64) {
	weightSum := 0.0
	for _, c := range components {
		finalScore += c.Score * c.Weight
		confidence += c.Confidence * c.Weight
		weightSum += c.Weight
	}
	if weightSum > 0 {
		confidence /= weightSum
	}
	finalScore = math.Round(finalScore*100) / 100
	return finalScore, confidence
}
