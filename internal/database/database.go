package database

import (
	"fmt"

	"github.com/ksred/nrm-api/internal/batch"
	"github.com/ksred/nrm-api/internal/clearing"
	"github.com/ksred/nrm-api/internal/database/migrations"
	"github.com/ksred/nrm-api/internal/nrm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddOfferIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&clearing.ClearingRun{},
		&nrm.NRMRun{},
		&batch.BatchRun{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// NewInMemory opens a throwaway in-memory database, used by the
// simulation and tests.
func NewInMemory() (*gorm.DB, error) {
	return NewDatabase("file::memory:?cache=shared")
}
