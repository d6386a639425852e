package nrm

import (
	"time"

	"gorm.io/gorm"
)

type NRMRun struct {
	gorm.Model      `json:"-"`
	RunID           string    `gorm:"uniqueIndex" json:"run_id"`
	TradingDate     string    `json:"trading_date"`
	TradingPeriod   int       `json:"trading_period"`
	ReserveType     string    `json:"reserve_type"`
	NationalPrice   float64   `json:"national_price"`
	NorthPrice      float64   `json:"north_price"`
	SouthPrice      float64   `json:"south_price"`
	ClearedQuantity float64   `json:"cleared_quantity"`
	Status          string    `json:"status"` // PENDING, CLEARED, FAILED
	FailureReason   string    `json:"failure_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type NRMResponse struct {
	RunID  string  `json:"run_id"`
	Status string  `json:"status"`
	Result *Result `json:"result,omitempty"`
}
