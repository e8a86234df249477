package models

// Location is static reference data: the closed set of candidate locations
// a cycle can land on. Loaded once at startup and upserted, never mutated
// at runtime.
type Location struct {
	ID               string  `gorm:"primaryKey;type:varchar(50)"`
	Name             string  `gorm:"type:text;not null"`
	Country          string  `gorm:"type:varchar(100);not null"`
	Latitude         float64 `gorm:"not null"`
	Longitude        float64 `gorm:"not null"`
	PopulationWeight float64 `gorm:"not null"`
	Timezone         string  `gorm:"type:varchar(64)"`
}

func (Location) TableName() string {
	return "locations"
}
