package db

import (
	"harvestcast/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Location{},
		&models.Cycle{},
		&models.Wager{},
		&models.ResolutionRecord{},
	)
}
