package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wager statuses. A wager is mutated exactly once, at settlement; it is
// never deleted.
const (
	WagerActive    = "active"
	WagerSettled   = "settled"
	WagerCancelled = "cancelled"
)

type Wager struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	UserID  string `gorm:"type:varchar(100);not null;index:idx_wagers_user_cycle"`
	CycleID uint64 `gorm:"not null;index;index:idx_wagers_user_cycle"`

	Direction string          `gorm:"type:varchar(10);not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Status    string          `gorm:"type:varchar(20);not null;index;default:active"`

	Payout *decimal.Decimal `gorm:"type:numeric(30,10)"`
	Winner *bool

	PlacedAt  time.Time  `gorm:"type:timestamptz;not null"`
	SettledAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Wager) TableName() string {
	return "wagers"
}
