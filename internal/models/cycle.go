package models

import (
	"time"

	"gorm.io/datatypes"
)

// Cycle lifecycle phases. Resolved is terminal; the transition into it is
// guarded at the persistence layer so exactly one resolver wins.
const (
	PhaseBetting   = "betting"
	PhaseRevealed  = "location_revealed"
	PhaseResolving = "resolving"
	PhaseResolved  = "resolved"
)

type Cycle struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	Phase string `gorm:"type:varchar(30);not null;index;default:betting"`

	StartBlock   int64 `gorm:"not null"`
	CurrentBlock int64 `gorm:"not null"`

	// Location selection, set once at the reveal block. Entropy, hash and
	// grid index are stored so the selection stays reproducible and
	// independently verifiable.
	LocationID    *string `gorm:"type:varchar(50);index"`
	SelectionHash *string `gorm:"type:char(64)"`
	GridIndex     *int64
	BlockEntropy  *string `gorm:"type:text"`

	// Weather snapshot taken after the reveal. Score is the normalized
	// farming-suitability score; FetchError records why it is missing.
	WeatherScore      *float64
	WeatherOutlook    *string        `gorm:"type:varchar(20)"`
	WeatherPayload    datatypes.JSON `gorm:"type:jsonb"`
	WeatherFetchError *string        `gorm:"type:text"`

	// Resolution fields, written exactly once.
	WeatherOutcome *string  `gorm:"type:varchar(10)"`
	FinalScore     *float64 // always in [0,100] once set
	Confidence     *float64
	ResolvedAt     *time.Time `gorm:"type:timestamptz"`

	Settled   bool       `gorm:"not null;default:false"`
	SettledAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Cycle) TableName() string {
	return "cycles"
}

// BettingOpen reports whether wagers are still accepted for this cycle.
func (c *Cycle) BettingOpen(bettingBlocks int64) bool {
	if c == nil || c.Phase == PhaseResolving || c.Phase == PhaseResolved {
		return false
	}
	return c.CurrentBlock-c.StartBlock < bettingBlocks
}
