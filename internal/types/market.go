package types

import (
	"time"

	"gorm.io/gorm"
)

// Region identifies which side of the inter-island link an offer sits on.
type Region string

const (
	RegionNorthIsland Region = "North Island"
	RegionSouthIsland Region = "South Island"
)

// ProductType identifies the physical product behind an offer band.
type ProductType string

const (
	ProductEnergy ProductType = "Energy"
	ProductIL     ProductType = "IL"    // Interruptible load
	ProductPLSR   ProductType = "PLSR"  // Partially loaded spinning reserve
	ProductTWDSR  ProductType = "TWDSR" // Two-way dispatchable storage reserve
)

// ReserveType identifies the market an offer band is cleared in.
type ReserveType string

const (
	ReserveEnergy ReserveType = "Energy"
	ReserveFIR    ReserveType = "FIR" // Fast instantaneous reserve (6 second)
	ReserveSIR    ReserveType = "SIR" // Sustained instantaneous reserve (60 second)
)

// DateFormat is the canonical trading date layout used in interval keys
// and API payloads.
const DateFormat = "2006-01-02"

// Offer is one normalized price/quantity band of one participant's
// submission for one trading interval. Offers are immutable once
// normalized; clearing produces derived allocations and never writes
// back into an Offer.
type Offer struct {
	gorm.Model      `json:"-"`
	TradingDate     time.Time   `json:"trading_date"`
	TradingPeriod   int         `json:"trading_period"`
	TradingDatetime time.Time   `json:"trading_datetime"`
	ParticipantID   string      `json:"participant_id"`
	LocationID      string      `json:"location_id"`
	Region          Region      `json:"region"`
	ProductType     ProductType `json:"product_type"`
	ReserveType     ReserveType `json:"reserve_type"`
	BandNumber      int         `json:"band_number"`
	Price           float64     `json:"price"`    // $/MW
	Quantity        float64     `json:"quantity"` // MW
}

// Key returns the interval/reserve combination this offer belongs to.
func (o Offer) Key() IntervalKey {
	return IntervalKey{
		TradingDate:   o.TradingDate.Format(DateFormat),
		TradingPeriod: o.TradingPeriod,
		ReserveType:   o.ReserveType,
	}
}

// IntervalKey identifies one clearable combination of trading interval
// and reserve type. Trading dates are held as formatted strings so the
// key is usable as a map key without timezone or monotonic clock noise.
type IntervalKey struct {
	TradingDate   string      `json:"trading_date"`
	TradingPeriod int         `json:"trading_period"`
	ReserveType   ReserveType `json:"reserve_type"`
}

// ClearingRequirement holds the procurement targets for one interval and
// reserve type: a shared national requirement plus per-island minimums.
type ClearingRequirement struct {
	NationalRequirement float64 `json:"national_requirement"`
	NorthMinimum        float64 `json:"north_minimum"`
	SouthMinimum        float64 `json:"south_minimum"`
}

// Valid reports whether all three requirement components are non-negative.
func (r ClearingRequirement) Valid() bool {
	return r.NationalRequirement >= 0 && r.NorthMinimum >= 0 && r.SouthMinimum >= 0
}
