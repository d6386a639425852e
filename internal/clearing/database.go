package clearing

import (
	"fmt"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// CreateRun creates a new clearing run record
func (d *Database) CreateRun(run *ClearingRun) error {
	return d.db.Create(run).Error
}

func (d *Database) GetRun(runID string) (*ClearingRun, error) {
	var run ClearingRun
	if err := d.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *Database) UpdateRun(run *ClearingRun) error {
	return d.db.Save(run).Error
}

// GetRunsByInterval retrieves all clearing runs recorded for one
// interval and reserve type, most recent first.
func (d *Database) GetRunsByInterval(tradingDate string, tradingPeriod int, reserveType string) ([]ClearingRun, error) {
	var runs []ClearingRun
	if err := d.db.Where(
		"trading_date = ? AND trading_period = ? AND reserve_type = ?",
		tradingDate, tradingPeriod, reserveType,
	).Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch clearing runs for interval: %w", err)
	}
	return runs, nil
}
