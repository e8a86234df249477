package wager

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"harvestcast/internal/models"
)

type stubRepo struct {
	cycles map[uint64]*models.Cycle
	wagers []models.Wager
	nextID uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{cycles: map[uint64]*models.Cycle{}, nextID: 1}
}

func (s *stubRepo) GetCycle(ctx context.Context, id uint64) (*models.Cycle, error) {
	return s.cycles[id], nil
}

func (s *stubRepo) GetActiveWager(ctx context.Context, userID string, cycleID uint64) (*models.Wager, error) {
	for i := range s.wagers {
		w := &s.wagers[i]
		if w.UserID == userID && w.CycleID == cycleID && w.Status == models.WagerActive {
			return w, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) InsertWager(ctx context.Context, item *models.Wager) error {
	item.ID = s.nextID
	s.nextID++
	s.wagers = append(s.wagers, *item)
	return nil
}

func (s *stubRepo) ListWagersByCycle(ctx context.Context, cycleID uint64, includeCancelled bool) ([]models.Wager, error) {
	out := []models.Wager{}
	for _, w := range s.wagers {
		if w.CycleID != cycleID {
			continue
		}
		if !includeCancelled && w.Status == models.WagerCancelled {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func testPool(repo Repository) *Pool {
	return &Pool{
		Repo:          repo,
		MaxStake:      decimal.NewFromInt(10000),
		BettingBlocks: 60,
	}
}

func openCycle(repo *stubRepo, id uint64) {
	repo.cycles[id] = &models.Cycle{ID: id, Phase: models.PhaseBetting, StartBlock: 0, CurrentBlock: 10}
}

func TestPlace_Succeeds(t *testing.T) {
	repo := newStubRepo()
	openCycle(repo, 1)
	p := testPool(repo)

	w, err := p.Place(context.Background(), "alice", 1, "good", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if w.Status != models.WagerActive {
		t.Fatalf("status=%s want=%s", w.Status, models.WagerActive)
	}
	if w.Direction != string(models.OutcomeGood) {
		t.Fatalf("direction=%s want=good", w.Direction)
	}
}

func TestPlace_Validations(t *testing.T) {
	repo := newStubRepo()
	openCycle(repo, 1)
	p := testPool(repo)
	ctx := context.Background()

	if _, err := p.Place(ctx, "  ", 1, "good", decimal.NewFromInt(10)); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("err=%v want ErrInvalidUser", err)
	}
	if _, err := p.Place(ctx, "alice", 1, "sideways", decimal.NewFromInt(10)); !errors.Is(err, ErrUnknownDirection) {
		t.Fatalf("err=%v want ErrUnknownDirection", err)
	}
	if _, err := p.Place(ctx, "alice", 1, "good", decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err=%v want ErrInvalidAmount", err)
	}
	if _, err := p.Place(ctx, "alice", 1, "good", decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err=%v want ErrInvalidAmount", err)
	}
	if _, err := p.Place(ctx, "alice", 1, "good", decimal.NewFromInt(10001)); !errors.Is(err, ErrStakeTooLarge) {
		t.Fatalf("err=%v want ErrStakeTooLarge", err)
	}
	if _, err := p.Place(ctx, "alice", 99, "good", decimal.NewFromInt(10)); !errors.Is(err, ErrCycleNotFound) {
		t.Fatalf("err=%v want ErrCycleNotFound", err)
	}
}

func TestPlace_DuplicateRejected(t *testing.T) {
	repo := newStubRepo()
	openCycle(repo, 1)
	p := testPool(repo)
	ctx := context.Background()

	if _, err := p.Place(ctx, "alice", 1, "good", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("first Place: %v", err)
	}
	if _, err := p.Place(ctx, "alice", 1, "bad", decimal.NewFromInt(50)); !errors.Is(err, ErrDuplicateWager) {
		t.Fatalf("err=%v want ErrDuplicateWager", err)
	}
	// A different user on the same cycle is fine.
	if _, err := p.Place(ctx, "bob", 1, "bad", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Place for second user: %v", err)
	}
}

func TestPlace_BettingWindowClosed(t *testing.T) {
	repo := newStubRepo()
	repo.cycles[1] = &models.Cycle{ID: 1, Phase: models.PhaseBetting, StartBlock: 0, CurrentBlock: 60}
	repo.cycles[2] = &models.Cycle{ID: 2, Phase: models.PhaseResolving, StartBlock: 0, CurrentBlock: 5}
	p := testPool(repo)
	ctx := context.Background()

	if _, err := p.Place(ctx, "alice", 1, "good", decimal.NewFromInt(10)); !errors.Is(err, ErrBettingClosed) {
		t.Fatalf("err=%v want ErrBettingClosed (window elapsed)", err)
	}
	if _, err := p.Place(ctx, "alice", 2, "good", decimal.NewFromInt(10)); !errors.Is(err, ErrBettingClosed) {
		t.Fatalf("err=%v want ErrBettingClosed (resolving phase)", err)
	}
}

func TestPoolSummary(t *testing.T) {
	repo := newStubRepo()
	openCycle(repo, 1)
	p := testPool(repo)
	ctx := context.Background()

	stakes := []struct {
		user      string
		direction string
		amount    int64
	}{
		{"alice", "good", 100},
		{"bob", "good", 200},
		{"carol", "bad", 150},
		{"dave", "bad", 50},
	}
	for _, s := range stakes {
		if _, err := p.Place(ctx, s.user, 1, s.direction, decimal.NewFromInt(s.amount)); err != nil {
			t.Fatalf("Place(%s): %v", s.user, err)
		}
	}

	sum, err := p.PoolSummary(ctx, 1)
	if err != nil {
		t.Fatalf("PoolSummary: %v", err)
	}
	if sum.GoodStake.Cmp(decimal.NewFromInt(300)) != 0 {
		t.Fatalf("goodStake=%s want=300", sum.GoodStake.String())
	}
	if sum.BadStake.Cmp(decimal.NewFromInt(200)) != 0 {
		t.Fatalf("badStake=%s want=200", sum.BadStake.String())
	}
	if sum.Participants != 4 {
		t.Fatalf("participants=%d want=4", sum.Participants)
	}
	// ((300-200)/500)*2 = 0.4
	if sum.Influence.BetInfluence != 0.4 {
		t.Fatalf("betInfluence=%v want=0.4", sum.Influence.BetInfluence)
	}
	if sum.Influence.DominantSide != SideGood {
		t.Fatalf("dominantSide=%s want=%s", sum.Influence.DominantSide, SideGood)
	}
}
