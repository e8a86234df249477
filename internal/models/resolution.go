package models

import (
	"time"

	"gorm.io/datatypes"
)

// Fusion formula identifiers recorded on each resolution.
const (
	FormulaWithWeather    = "dao_weather_wager"
	FormulaWithoutWeather = "dao_wager_only"
)

// ResolutionRecord is the persisted result of outcome resolution: the three
// fused components, the final score/outcome/confidence, and enough metadata
// to reconstruct which formula and fallbacks were used. Created exactly once
// per cycle, never mutated.
type ResolutionRecord struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	CycleID uint64 `gorm:"not null;uniqueIndex"`

	Outcome    string  `gorm:"type:varchar(10);not null;index"`
	FinalScore float64 `gorm:"not null"`
	Confidence float64 `gorm:"not null"`
	Formula    string  `gorm:"type:varchar(30);not null"`

	Components datatypes.JSON `gorm:"type:jsonb;not null"`

	LocationName string    `gorm:"type:text"`
	CyclePhase   string    `gorm:"type:varchar(30)"`
	ResolvedAt   time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt    time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ResolutionRecord) TableName() string {
	return "resolution_records"
}

// WeatherComponent is the uniform signal envelope shared by the three fused
// sources (governance consensus, real weather, wager influence). It is not
// persisted standalone; the three components are embedded as JSON in the
// resolution record.
type WeatherComponent struct {
	Score      float64        `json:"score"`      // [0,100]
	Weight     float64        `json:"weight"`     // [0,1]
	Confidence float64        `json:"confidence"` // [0,1]
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
}
