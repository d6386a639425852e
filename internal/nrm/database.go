package nrm

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

func (d *Database) CreateRun(run *NRMRun) error {
	return d.db.Create(run).Error
}

func (d *Database) GetRun(runID string) (*NRMRun, error) {
	var run NRMRun
	if err := d.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// GetLatestRunByInterval retrieves the most recent NRM run for one
// interval and reserve type.
func (d *Database) GetLatestRunByInterval(tradingDate string, tradingPeriod int, reserveType string) (*NRMRun, error) {
	var run NRMRun
	if err := d.db.Where(
		"trading_date = ? AND trading_period = ? AND reserve_type = ?",
		tradingDate, tradingPeriod, reserveType,
	).Order("created_at DESC").First(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch latest NRM run for interval: %w", err)
	}
	return &run, nil
}
