package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"harvestcast/internal/models"
)

// Repository is the persistence boundary for the resolution and settlement
// engine. Conditional updates return a bool reporting whether the guarded
// transition actually happened; a false result means another caller already
// won the race (see the state-guard methods on cycles and wagers).
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Locations (static reference data).
	UpsertLocations(ctx context.Context, items []models.Location) error
	ListLocations(ctx context.Context) ([]models.Location, error)
	GetLocation(ctx context.Context, id string) (*models.Location, error)

	// Cycles.
	CreateCycle(ctx context.Context, item *models.Cycle) error
	GetCycle(ctx context.Context, id uint64) (*models.Cycle, error)
	GetCurrentCycle(ctx context.Context) (*models.Cycle, error)
	ListCycles(ctx context.Context, params ListCyclesParams) ([]models.Cycle, error)
	CountCycles(ctx context.Context, params ListCyclesParams) (int64, error)
	AdvanceCycleBlock(ctx context.Context, id uint64, currentBlock int64) error

	// SetCycleLocation records the selection and moves the cycle to the
	// location_revealed phase. Guarded: only succeeds while no location is
	// set, so the reveal happens exactly once.
	SetCycleLocation(ctx context.Context, id uint64, sel CycleLocationUpdate) (bool, error)

	// SetCycleWeather stores the weather snapshot (or the fetch error when
	// the measurement is unavailable). Guarded against double writes.
	SetCycleWeather(ctx context.Context, id uint64, upd CycleWeatherUpdate) (bool, error)

	// MarkCycleResolving moves the cycle into the resolving phase; false
	// when the cycle is already resolving or resolved.
	MarkCycleResolving(ctx context.Context, id uint64) (bool, error)

	// FinalizeCycleResolution writes the resolution fields, transitions to
	// resolved, and inserts the resolution record in one transaction. The
	// WHERE phase != resolved guard makes exactly one resolver win; the
	// loser observes false with nothing written. Because the record rides
	// the same transaction, a resolved cycle always has its record.
	FinalizeCycleResolution(ctx context.Context, id uint64, res CycleResolutionUpdate, record *models.ResolutionRecord) (bool, error)

	// MarkCycleSettled flips the settled flag; false when already settled.
	MarkCycleSettled(ctx context.Context, id uint64, at time.Time) (bool, error)

	// Wagers.
	InsertWager(ctx context.Context, item *models.Wager) error
	GetWager(ctx context.Context, id uint64) (*models.Wager, error)
	GetActiveWager(ctx context.Context, userID string, cycleID uint64) (*models.Wager, error)
	ListWagersByCycle(ctx context.Context, cycleID uint64, includeCancelled bool) ([]models.Wager, error)
	ListWagers(ctx context.Context, params ListWagersParams) ([]models.Wager, error)
	CountWagers(ctx context.Context, params ListWagersParams) (int64, error)

	// SettleWager writes payout and winner flag exactly once per wager:
	// the WHERE status = active guard makes a retried settlement skip
	// already-settled rows.
	SettleWager(ctx context.Context, id uint64, payout decimal.Decimal, winner bool, at time.Time) (bool, error)

	// Resolution records. Inserted only through FinalizeCycleResolution.
	GetResolutionRecordByCycle(ctx context.Context, cycleID uint64) (*models.ResolutionRecord, error)
	ListResolutionRecords(ctx context.Context, params ListResolutionRecordsParams) ([]models.ResolutionRecord, error)
}

type CycleLocationUpdate struct {
	LocationID    string
	SelectionHash string
	GridIndex     int64
	BlockEntropy  string
}

type CycleWeatherUpdate struct {
	Score      *float64
	Outlook    *string
	Payload    datatypes.JSON
	FetchError *string
}

type CycleResolutionUpdate struct {
	Outcome    models.Outcome
	FinalScore float64
	Confidence float64
	ResolvedAt time.Time
}

type ListCyclesParams struct {
	Limit   int
	Offset  int
	Phase   *string
	Settled *bool
	OrderBy string
	Asc     *bool
}

type ListWagersParams struct {
	Limit   int
	Offset  int
	UserID  *string
	CycleID *uint64
	Status  *string
	OrderBy string
	Asc     *bool
}

type ListResolutionRecordsParams struct {
	Limit   int
	Offset  int
	Outcome *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}
