package db

import (
	"yieldhunter/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.YieldOpportunity{},
		&models.Position{},
		&models.Transaction{},
		&models.UserPreference{},
		&models.Subscription{},
		&models.PortfolioSnapshot{},
	)
}
