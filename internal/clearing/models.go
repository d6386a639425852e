package clearing

import (
	"time"

	"gorm.io/gorm"
)

type ClearingRun struct {
	gorm.Model      `json:"-"`
	RunID           string    `gorm:"uniqueIndex" json:"run_id"`
	TradingDate     string    `json:"trading_date"`
	TradingPeriod   int       `json:"trading_period"`
	ReserveType     string    `json:"reserve_type"`
	Requirement     float64   `json:"requirement"`
	OfferCount      int       `json:"offer_count"`
	ClearedQuantity float64   `json:"cleared_quantity"`
	MarginalPrice   float64   `json:"marginal_price"`
	Status          string    `json:"status"` // PENDING, CLEARED, FAILED
	FailureReason   string    `json:"failure_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ClearingResponse struct {
	RunID  string  `json:"run_id"`
	Status string  `json:"status"`
	Result *Result `json:"result,omitempty"`
}
