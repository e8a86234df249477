package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"harvestcast/internal/models"
)

var (
	// ErrCycleNotFound is fatal: no retry is meaningful.
	ErrCycleNotFound = errors.New("cycle not found")
	// ErrAlreadySettled is what a re-settlement attempt observes.
	ErrAlreadySettled = errors.New("cycle already settled")
	// ErrNotResolved rejects settling a cycle with no resolved outcome.
	ErrNotResolved = errors.New("cycle is not resolved yet")
)

// Payout is the settlement result for one wager.
type Payout struct {
	WagerID    uint64          `json:"wager_id"`
	UserID     string          `json:"user_id"`
	Direction  string          `json:"direction"`
	Stake      decimal.Decimal `json:"stake"`
	Payout     decimal.Decimal `json:"payout"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
	Winner     bool            `json:"winner"`
}

// Repository is the slice of persistence the processor needs.
type Repository interface {
	GetCycle(ctx context.Context, id uint64) (*models.Cycle, error)
	ListWagersByCycle(ctx context.Context, cycleID uint64, includeCancelled bool) ([]models.Wager, error)
	SettleWager(ctx context.Context, id uint64, payout decimal.Decimal, winner bool, at time.Time) (bool, error)
	MarkCycleSettled(ctx context.Context, id uint64, at time.Time) (bool, error)
}

// Processor computes pari-mutuel payouts for a resolved cycle. Each wager
// is written exactly once: the status guard on the wager update makes a
// retried settlement skip rows that were already paid.
type Processor struct {
	Repo   Repository
	Logger *zap.Logger

	// HouseTake is the fixed fraction withheld from the pool before the
	// winners split it.
	HouseTake decimal.Decimal
}

// Settle pays out every wager in the cycle against the given outcome.
// A winnerless pool settles with an empty payout list; that is not an error.
func (p *Processor) Settle(ctx context.Context, cycleID uint64, outcome models.Outcome) ([]Payout, error) {
	if p == nil || p.Repo == nil {
		return nil, errors.New("settlement processor not initialized")
	}
	if !outcome.Valid() {
		return nil, errors.New("invalid outcome: " + string(outcome))
	}

	cycle, err := p.Repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrCycleNotFound
	}
	if cycle.Settled {
		return nil, ErrAlreadySettled
	}
	if cycle.Phase != models.PhaseResolved {
		return nil, ErrNotResolved
	}

	wagers, err := p.Repo.ListWagersByCycle(ctx, cycleID, false)
	if err != nil {
		return nil, err
	}

	winnerPool := decimal.Zero
	totalPool := decimal.Zero
	for _, w := range wagers {
		if w.Status == models.WagerCancelled {
			continue
		}
		totalPool = totalPool.Add(w.Amount)
		if models.Outcome(w.Direction) == outcome {
			winnerPool = winnerPool.Add(w.Amount)
		}
	}

	now := time.Now().UTC()

	// No one backed the winning side: no winners, no payouts.
	if winnerPool.IsZero() {
		if _, err := p.Repo.MarkCycleSettled(ctx, cycleID, now); err != nil {
			return nil, err
		}
		if p.Logger != nil {
			p.Logger.Info("cycle settled with no winners",
				zap.Uint64("cycle_id", cycleID),
				zap.String("outcome", string(outcome)),
				zap.String("total_pool", totalPool.String()),
			)
		}
		return []Payout{}, nil
	}

	distributable := totalPool.Mul(decimal.NewFromInt(1).Sub(p.HouseTake))
	multiplier := distributable.Div(winnerPool)

	payouts := make([]Payout, 0, len(wagers))
	for _, w := range wagers {
		if w.Status != models.WagerActive {
			// Already settled by an earlier attempt, or cancelled.
			continue
		}
		winner := models.Outcome(w.Direction) == outcome
		payout := decimal.Zero
		if winner {
			payout = w.Amount.Mul(multiplier).Round(2)
		}

		updated, err := p.Repo.SettleWager(ctx, w.ID, payout, winner, now)
		if err != nil {
			return nil, err
		}
		if !updated {
			// Lost the per-wager race; another settler paid this one.
			continue
		}
		payouts = append(payouts, Payout{
			WagerID:    w.ID,
			UserID:     w.UserID,
			Direction:  w.Direction,
			Stake:      w.Amount,
			Payout:     payout,
			ProfitLoss: payout.Sub(w.Amount),
			Winner:     winner,
		})
	}

	if _, err := p.Repo.MarkCycleSettled(ctx, cycleID, now); err != nil {
		return nil, err
	}

	if p.Logger != nil {
		p.Logger.Info("cycle settled",
			zap.Uint64("cycle_id", cycleID),
			zap.String("outcome", string(outcome)),
			zap.String("winner_pool", winnerPool.String()),
			zap.String("total_pool", totalPool.String()),
			zap.String("multiplier", multiplier.Round(6).String()),
			zap.Int("payouts", len(payouts)),
		)
	}
	return payouts, nil
}
