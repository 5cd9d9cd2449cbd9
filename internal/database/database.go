package database

import (
	"fmt"

	"github.com/ksred/corporate-actions-api/internal/database/migrations"
	"github.com/ksred/corporate-actions-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&types.CorporateAction{}); err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.BackfillFinalDates(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
