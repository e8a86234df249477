package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"harvestcast/internal/config"
	"harvestcast/internal/location"
	"harvestcast/internal/models"
	"harvestcast/internal/repository"
	"harvestcast/internal/resolver"
	"harvestcast/internal/settlement"
	"harvestcast/internal/weather"
)

// Event types published to the live feed.
const (
	EventLocationRevealed = "location_revealed"
	EventCycleResolved    = "cycle_resolved"
	EventCycleSettled     = "cycle_settled"
)

type Event struct {
	Type    string    `json:"type"`
	CycleID uint64    `json:"cycle_id"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// EventSink receives lifecycle events; the websocket hub implements it.
type EventSink interface {
	Publish(event Event)
}

// Repository is the slice of persistence the controller needs.
type Repository interface {
	GetCurrentCycle(ctx context.Context) (*models.Cycle, error)
	CreateCycle(ctx context.Context, item *models.Cycle) error
	AdvanceCycleBlock(ctx context.Context, id uint64, currentBlock int64) error
	SetCycleLocation(ctx context.Context, id uint64, sel repository.CycleLocationUpdate) (bool, error)
	SetCycleWeather(ctx context.Context, id uint64, upd repository.CycleWeatherUpdate) (bool, error)
	GetResolutionRecordByCycle(ctx context.Context, cycleID uint64) (*models.ResolutionRecord, error)
}

// OutcomeResolver resolves a cycle's outcome exactly once.
type OutcomeResolver interface {
	Resolve(ctx context.Context, cycleID uint64) (*models.ResolutionRecord, error)
}

// Settler pays out a resolved cycle exactly once.
type Settler interface {
	Settle(ctx context.Context, cycleID uint64, outcome models.Outcome) ([]settlement.Payout, error)
}

// Controller advances cycles through their phases on each cron tick:
// block advance, mid-cycle location reveal + weather snapshot, and at the
// end of the cycle resolve, settle and open the next cycle.
type Controller struct {
	Repo       Repository
	Selector   *location.Selector
	Weather    *weather.Service
	Resolver   OutcomeResolver
	Settlement Settler
	Entropy    EntropySource
	Fallback   EntropySource
	Events     EventSink
	Logger     *zap.Logger
	Config     config.CycleConfig
}

// Tick performs one lifecycle step. Safe to call concurrently across
// controller instances: every state transition it triggers is guarded at
// the persistence layer.
func (c *Controller) Tick(ctx context.Context) error {
	if c == nil || c.Repo == nil {
		return nil
	}

	cycle, err := c.Repo.GetCurrentCycle(ctx)
	if err != nil {
		return err
	}
	if cycle == nil {
		return c.openCycle(ctx)
	}

	next := cycle.CurrentBlock + 1
	if err := c.Repo.AdvanceCycleBlock(ctx, cycle.ID, next); err != nil {
		return err
	}
	elapsed := next - cycle.StartBlock

	if elapsed >= c.Config.RevealBlock && cycle.LocationID == nil {
		if err := c.reveal(ctx, cycle); err != nil {
			c.logWarn("location reveal failed", cycle.ID, err)
		}
	}

	if elapsed >= c.Config.BlocksPerCycle {
		if err := c.close(ctx, cycle.ID); err != nil {
			return err
		}
		return c.openCycle(ctx)
	}
	return nil
}

func (c *Controller) openCycle(ctx context.Context) error {
	cycle := &models.Cycle{
		Phase:        models.PhaseBetting,
		StartBlock:   0,
		CurrentBlock: 0,
	}
	if err := c.Repo.CreateCycle(ctx, cycle); err != nil {
		return err
	}
	if c.Logger != nil {
		c.Logger.Info("cycle opened", zap.Uint64("cycle_id", cycle.ID))
	}
	return nil
}

func (c *Controller) reveal(ctx context.Context, cycle *models.Cycle) error {
	entropy, err := c.Entropy.Entropy(ctx, cycle.ID)
	if err != nil {
		if c.Fallback == nil {
			return err
		}
		c.logWarn("entropy beacon unavailable, using clock fallback", cycle.ID, err)
		entropy, err = c.Fallback.Entropy(ctx, cycle.ID)
		if err != nil {
			return err
		}
	}

	sel, err := c.Selector.Select(cycle.ID, entropy)
	if err != nil {
		return err
	}

	ok, err := c.Repo.SetCycleLocation(ctx, cycle.ID, repository.CycleLocationUpdate{
		LocationID:    sel.Location.ID,
		SelectionHash: sel.SelectionHash,
		GridIndex:     int64(sel.GridIndex),
		BlockEntropy:  entropy,
	})
	if err != nil {
		return err
	}
	if !ok {
		// Another instance revealed first.
		return nil
	}

	if c.Logger != nil {
		c.Logger.Info("location revealed",
			zap.Uint64("cycle_id", cycle.ID),
			zap.String("location_id", sel.Location.ID),
			zap.String("selection_hash", sel.SelectionHash),
			zap.Uint64("grid_index", sel.GridIndex),
		)
	}
	c.publish(Event{
		Type:    EventLocationRevealed,
		CycleID: cycle.ID,
		Payload: map[string]any{
			"location_id":    sel.Location.ID,
			"location_name":  sel.Location.Name,
			"selection_hash": sel.SelectionHash,
		},
		At: time.Now().UTC(),
	})

	c.snapshotWeather(ctx, cycle.ID, sel.Location)
	return nil
}

// snapshotWeather records either the scored measurement or the fetch error.
// Weather absence must never block the cycle.
func (c *Controller) snapshotWeather(ctx context.Context, cycleID uint64, loc models.Location) {
	measurement, err := c.Weather.Fetch(ctx, loc)
	if err != nil {
		c.logWarn("weather unavailable, cycle will resolve without it", cycleID, err)
		msg := err.Error()
		if _, werr := c.Repo.SetCycleWeather(ctx, cycleID, repository.CycleWeatherUpdate{
			FetchError: &msg,
		}); werr != nil {
			c.logWarn("recording weather fetch error failed", cycleID, werr)
		}
		return
	}

	score := weather.ScoreMeasurement(measurement)
	payload, _ := json.Marshal(map[string]any{
		"measurement": measurement,
		"score":       score,
	})
	if _, err := c.Repo.SetCycleWeather(ctx, cycleID, repository.CycleWeatherUpdate{
		Score:   &score.Overall,
		Outlook: &score.Outlook,
		Payload: datatypes.JSON(payload),
	}); err != nil {
		c.logWarn("storing weather snapshot failed", cycleID, err)
	}
}

func (c *Controller) close(ctx context.Context, cycleID uint64) error {
	record, err := c.Resolver.Resolve(ctx, cycleID)
	if errors.Is(err, resolver.ErrAlreadyResolved) {
		record, err = c.Repo.GetResolutionRecordByCycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if record == nil {
			// Resolution and its record commit together, so this points at
			// a read failure; keep the cycle open and retry next tick.
			return fmt.Errorf("cycle %d resolved but record not readable", cycleID)
		}
	} else if err != nil {
		return err
	} else {
		c.publish(Event{
			Type:    EventCycleResolved,
			CycleID: cycleID,
			Payload: record,
			At:      time.Now().UTC(),
		})
	}

	outcome, err := models.ParseOutcome(record.Outcome)
	if err != nil {
		return err
	}

	payouts, err := c.Settlement.Settle(ctx, cycleID, outcome)
	if errors.Is(err, settlement.ErrAlreadySettled) {
		return nil
	}
	if err != nil {
		return err
	}

	c.publish(Event{
		Type:    EventCycleSettled,
		CycleID: cycleID,
		Payload: map[string]any{
			"outcome": record.Outcome,
			"payouts": payouts,
		},
		At: time.Now().UTC(),
	})
	return nil
}

func (c *Controller) publish(event Event) {
	if c.Events != nil {
		c.Events.Publish(event)
	}
}

func (c *Controller) logWarn(msg string, cycleID uint64, err error) {
	if c.Logger != nil {
		c.Logger.Warn(msg, zap.Uint64("cycle_id", cycleID), zap.Error(err))
	}
}
