package wager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"harvestcast/internal/models"
)

// Validation errors are caller-correctable: no partial state is written.
var (
	ErrCycleNotFound    = errors.New("cycle not found")
	ErrInvalidUser      = errors.New("user id must not be empty")
	ErrBettingClosed    = errors.New("betting is closed for this cycle")
	ErrDuplicateWager   = errors.New("user already has an active wager for this cycle")
	ErrInvalidAmount    = errors.New("stake amount must be positive")
	ErrStakeTooLarge    = errors.New("stake amount exceeds the allowed ceiling")
	ErrUnknownDirection = errors.New("unknown wager direction")
)

// Repository is the slice of persistence the pool needs.
type Repository interface {
	GetCycle(ctx context.Context, id uint64) (*models.Cycle, error)
	GetActiveWager(ctx context.Context, userID string, cycleID uint64) (*models.Wager, error)
	InsertWager(ctx context.Context, item *models.Wager) error
	ListWagersByCycle(ctx context.Context, cycleID uint64, includeCancelled bool) ([]models.Wager, error)
}

// Pool tracks per-cycle stake positions and computes aggregate stake
// pressure. The betting-phase gate here is what keeps placement and
// resolution mutually exclusive in time.
type Pool struct {
	Repo   Repository
	Logger *zap.Logger

	MaxStake      decimal.Decimal
	BettingBlocks int64
}

// Place validates and records a wager. Exactly one active wager per
// (user, cycle); only while the cycle's betting window is open.
func (p *Pool) Place(ctx context.Context, userID string, cycleID uint64, direction string, amount decimal.Decimal) (*models.Wager, error) {
	if p == nil || p.Repo == nil {
		return nil, errors.New("wager pool not initialized")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	dir, err := models.ParseOutcome(direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if p.MaxStake.IsPositive() && amount.GreaterThan(p.MaxStake) {
		return nil, fmt.Errorf("%w: max %s", ErrStakeTooLarge, p.MaxStake.String())
	}

	cycle, err := p.Repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrCycleNotFound
	}
	if !cycle.BettingOpen(p.BettingBlocks) {
		return nil, ErrBettingClosed
	}

	existing, err := p.Repo.GetActiveWager(ctx, userID, cycleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateWager
	}

	item := &models.Wager{
		UserID:    userID,
		CycleID:   cycleID,
		Direction: string(dir),
		Amount:    amount,
		Status:    models.WagerActive,
		PlacedAt:  time.Now().UTC(),
	}
	if err := p.Repo.InsertWager(ctx, item); err != nil {
		return nil, err
	}
	if p.Logger != nil {
		p.Logger.Info("wager placed",
			zap.Uint64("cycle_id", cycleID),
			zap.String("user_id", userID),
			zap.String("direction", string(dir)),
			zap.String("amount", amount.String()),
		)
	}
	return item, nil
}

// PoolSummary aggregates all non-cancelled wagers for a cycle and applies
// the influence formula to the totals.
func (p *Pool) PoolSummary(ctx context.Context, cycleID uint64) (Summary, error) {
	if p == nil || p.Repo == nil {
		return Summary{}, errors.New("wager pool not initialized")
	}
	wagers, err := p.Repo.ListWagersByCycle(ctx, cycleID, false)
	if err != nil {
		return Summary{}, err
	}

	good := decimal.Zero
	bad := decimal.Zero
	users := map[string]struct{}{}
	for _, w := range wagers {
		users[w.UserID] = struct{}{}
		switch models.Outcome(w.Direction) {
		case models.OutcomeGood:
			good = good.Add(w.Amount)
		case models.OutcomeBad:
			bad = bad.Add(w.Amount)
		}
	}

	return Summary{
		CycleID:      cycleID,
		GoodStake:    good,
		BadStake:     bad,
		TotalStake:   good.Add(bad),
		Participants: len(users),
		Influence:    Influence(good.InexactFloat64(), bad.InexactFloat64()),
	}, nil
}

type Summary struct {
	CycleID      uint64          `json:"cycle_id"`
	GoodStake    decimal.Decimal `json:"good_stake"`
	BadStake     decimal.Decimal `json:"bad_stake"`
	TotalStake   decimal.Decimal `json:"total_stake"`
	Participants int             `json:"participants"`
	Influence    InfluenceResult `json:"influence"`
}
