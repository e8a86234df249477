package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"harvestcast/internal/config"
	"harvestcast/internal/location"
	"harvestcast/internal/models"
	"harvestcast/internal/repository"
	"harvestcast/internal/resolver"
	"harvestcast/internal/settlement"
	"harvestcast/internal/weather"
)

type stubRepo struct {
	current *models.Cycle
	created []*models.Cycle
	records map[uint64]*models.ResolutionRecord

	locationSet *repository.CycleLocationUpdate
	weatherSet  *repository.CycleWeatherUpdate
}

func newStubRepo() *stubRepo {
	return &stubRepo{records: map[uint64]*models.ResolutionRecord{}}
}

func (s *stubRepo) GetCurrentCycle(ctx context.Context) (*models.Cycle, error) {
	return s.current, nil
}

func (s *stubRepo) CreateCycle(ctx context.Context, item *models.Cycle) error {
	item.ID = uint64(len(s.created) + 100)
	s.created = append(s.created, item)
	return nil
}

func (s *stubRepo) AdvanceCycleBlock(ctx context.Context, id uint64, currentBlock int64) error {
	if s.current != nil && s.current.ID == id {
		s.current.CurrentBlock = currentBlock
	}
	return nil
}

func (s *stubRepo) SetCycleLocation(ctx context.Context, id uint64, sel repository.CycleLocationUpdate) (bool, error) {
	if s.locationSet != nil {
		return false, nil
	}
	s.locationSet = &sel
	if s.current != nil && s.current.ID == id {
		s.current.LocationID = &sel.LocationID
		s.current.Phase = models.PhaseRevealed
	}
	return true, nil
}

func (s *stubRepo) SetCycleWeather(ctx context.Context, id uint64, upd repository.CycleWeatherUpdate) (bool, error) {
	if s.weatherSet != nil {
		return false, nil
	}
	s.weatherSet = &upd
	return true, nil
}

func (s *stubRepo) GetResolutionRecordByCycle(ctx context.Context, cycleID uint64) (*models.ResolutionRecord, error) {
	return s.records[cycleID], nil
}

type stubResolver struct {
	record *models.ResolutionRecord
	err    error
	calls  int
}

func (s *stubResolver) Resolve(ctx context.Context, cycleID uint64) (*models.ResolutionRecord, error) {
	s.calls++
	return s.record, s.err
}

type stubSettler struct {
	payouts []settlement.Payout
	err     error
	calls   int
}

func (s *stubSettler) Settle(ctx context.Context, cycleID uint64, outcome models.Outcome) ([]settlement.Payout, error) {
	s.calls++
	return s.payouts, s.err
}

type fixedEntropy struct{ value string }

func (f fixedEntropy) Entropy(ctx context.Context, cycleID uint64) (string, error) {
	return f.value, nil
}

type failingEntropy struct{}

func (failingEntropy) Entropy(ctx context.Context, cycleID uint64) (string, error) {
	return "", errors.New("beacon down")
}

type recordingSink struct{ events []Event }

func (r *recordingSink) Publish(event Event) {
	r.events = append(r.events, event)
}

func testController(t *testing.T, repo Repository, res OutcomeResolver, set Settler, sink EventSink) *Controller {
	t.Helper()
	sel, err := location.NewSelector(location.DefaultCatalog())
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	return &Controller{
		Repo:       repo,
		Selector:   sel,
		Weather:    &weather.Service{},
		Resolver:   res,
		Settlement: set,
		Entropy:    fixedEntropy{value: "0xseed"},
		Fallback:   ClockEntropySource{},
		Events:     sink,
		Config: config.CycleConfig{
			BlocksPerCycle: 10,
			RevealBlock:    5,
			BettingBlocks:  5,
		},
	}
}

func TestTick_OpensCycleWhenNoneActive(t *testing.T) {
	repo := newStubRepo()
	c := testController(t, repo, &stubResolver{}, &stubSettler{}, nil)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("created=%d want=1", len(repo.created))
	}
	if repo.created[0].Phase != models.PhaseBetting {
		t.Fatalf("phase=%s want=%s", repo.created[0].Phase, models.PhaseBetting)
	}
}

func TestTick_RevealsLocationAtRevealBlock(t *testing.T) {
	repo := newStubRepo()
	repo.current = &models.Cycle{ID: 1, Phase: models.PhaseBetting, StartBlock: 0, CurrentBlock: 4}
	sink := &recordingSink{}
	c := testController(t, repo, &stubResolver{}, &stubSettler{}, sink)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if repo.locationSet == nil {
		t.Fatalf("location must be set at the reveal block")
	}
	if repo.locationSet.BlockEntropy != "0xseed" {
		t.Fatalf("entropy=%s want=0xseed", repo.locationSet.BlockEntropy)
	}
	if len(repo.locationSet.SelectionHash) != 64 {
		t.Fatalf("selection hash length=%d want=64", len(repo.locationSet.SelectionHash))
	}
	// No weather providers configured: the fetch error is recorded instead.
	if repo.weatherSet == nil || repo.weatherSet.FetchError == nil {
		t.Fatalf("weather fetch error must be recorded, got %+v", repo.weatherSet)
	}
	if len(sink.events) != 1 || sink.events[0].Type != EventLocationRevealed {
		t.Fatalf("events=%+v want one %s", sink.events, EventLocationRevealed)
	}
}

func TestTick_FallsBackWhenBeaconDown(t *testing.T) {
	repo := newStubRepo()
	repo.current = &models.Cycle{ID: 1, Phase: models.PhaseBetting, StartBlock: 0, CurrentBlock: 4}
	c := testController(t, repo, &stubResolver{}, &stubSettler{}, nil)
	c.Entropy = failingEntropy{}

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if repo.locationSet == nil {
		t.Fatalf("fallback entropy must still reveal a location")
	}
	if repo.locationSet.BlockEntropy == "" {
		t.Fatalf("fallback entropy must be recorded")
	}
}

func TestTick_ClosesCycleAtEnd(t *testing.T) {
	repo := newStubRepo()
	locID := "fresno-us"
	repo.current = &models.Cycle{
		ID: 1, Phase: models.PhaseRevealed,
		StartBlock: 0, CurrentBlock: 9,
		LocationID: &locID,
	}
	res := &stubResolver{record: &models.ResolutionRecord{
		CycleID: 1, Outcome: string(models.OutcomeGood), FinalScore: 72.5, ResolvedAt: time.Now().UTC(),
	}}
	set := &stubSettler{payouts: []settlement.Payout{}}
	sink := &recordingSink{}
	c := testController(t, repo, res, set, sink)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.calls != 1 || set.calls != 1 {
		t.Fatalf("resolver calls=%d settler calls=%d want 1 each", res.calls, set.calls)
	}
	// The next cycle opens right after the close.
	if len(repo.created) != 1 {
		t.Fatalf("created=%d want=1 (next cycle)", len(repo.created))
	}
	var types []string
	for _, e := range sink.events {
		types = append(types, e.Type)
	}
	if len(types) != 2 || types[0] != EventCycleResolved || types[1] != EventCycleSettled {
		t.Fatalf("event types=%v want [%s %s]", types, EventCycleResolved, EventCycleSettled)
	}
}

func TestTick_CloseRecoversFromPriorResolution(t *testing.T) {
	repo := newStubRepo()
	repo.current = &models.Cycle{ID: 1, Phase: models.PhaseResolved, StartBlock: 0, CurrentBlock: 9}
	repo.records[1] = &models.ResolutionRecord{CycleID: 1, Outcome: string(models.OutcomeBad)}
	res := &stubResolver{err: resolver.ErrAlreadyResolved}
	set := &stubSettler{}
	c := testController(t, repo, res, set, nil)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	// Settlement runs against the stored record after a crashed resolve.
	if set.calls != 1 {
		t.Fatalf("settler calls=%d want=1", set.calls)
	}
}

func TestTick_CloseToleratesDoubleSettle(t *testing.T) {
	repo := newStubRepo()
	repo.current = &models.Cycle{ID: 1, Phase: models.PhaseResolved, StartBlock: 0, CurrentBlock: 9}
	res := &stubResolver{record: &models.ResolutionRecord{CycleID: 1, Outcome: string(models.OutcomeGood)}}
	set := &stubSettler{err: settlement.ErrAlreadySettled}
	c := testController(t, repo, res, set, nil)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("an already-settled close must still open the next cycle, created=%d", len(repo.created))
	}
}
