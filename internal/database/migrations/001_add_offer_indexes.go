package migrations

import (
	"github.com/ksred/nrm-api/internal/types"
	"gorm.io/gorm"
)

// AddOfferIndexes creates the offers table and the indexes backing the
// book queries.
func AddOfferIndexes(db *gorm.DB) error {
	// Create the offers table
	if err := db.AutoMigrate(&types.Offer{}); err != nil {
		return err
	}

	// Add indexes for better query performance
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Composite index for the interval/reserve sub-book lookup, the
		// hot path for every clearing call
		`CREATE INDEX IF NOT EXISTS idx_offers_interval
		 ON offers(trading_date, trading_period, reserve_type)`,

		// Index for participant lookups
		`CREATE INDEX IF NOT EXISTS idx_offers_participant
		 ON offers(participant_id)`,

		// Index for regional filtering
		`CREATE INDEX IF NOT EXISTS idx_offers_region
		 ON offers(region)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
