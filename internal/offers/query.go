package offers

import "github.com/ksred/nrm-api/internal/types"

// Query selects a subset of offers. Zero-valued fields are not applied,
// so an empty Query matches everything. Queries are plain values; they
// hold no reference to any book.
type Query struct {
	TradingDate   string // formatted as types.DateFormat
	TradingPeriod int
	ProductType   types.ProductType
	ReserveType   types.ReserveType
	Region        types.Region
	ParticipantID string
	LocationID    string
	NonZero       bool // keep only offers with quantity > 0
}

// Matches reports whether a single offer satisfies every populated
// criterion of the query.
func (q Query) Matches(o types.Offer) bool {
	if q.TradingDate != "" && o.TradingDate.Format(types.DateFormat) != q.TradingDate {
		return false
	}
	if q.TradingPeriod != 0 && o.TradingPeriod != q.TradingPeriod {
		return false
	}
	if q.ProductType != "" && o.ProductType != q.ProductType {
		return false
	}
	if q.ReserveType != "" && o.ReserveType != q.ReserveType {
		return false
	}
	if q.Region != "" && o.Region != q.Region {
		return false
	}
	if q.ParticipantID != "" && o.ParticipantID != q.ParticipantID {
		return false
	}
	if q.LocationID != "" && o.LocationID != q.LocationID {
		return false
	}
	if q.NonZero && o.Quantity <= 0 {
		return false
	}
	return true
}

// Filter returns the offers matching the query, preserving their
// relative order. The input book is never mutated; the result is a new
// slice. An empty result is valid.
func Filter(book []types.Offer, q Query) []types.Offer {
	out := make([]types.Offer, 0, len(book))
	for _, o := range book {
		if q.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// ByKey restricts a book to one (date, period, reserve type) combination.
func ByKey(book []types.Offer, key types.IntervalKey) []types.Offer {
	return Filter(book, Query{
		TradingDate:   key.TradingDate,
		TradingPeriod: key.TradingPeriod,
		ReserveType:   key.ReserveType,
	})
}

// Keys returns the distinct interval/reserve combinations present in a
// book, in first-seen order.
func Keys(book []types.Offer) []types.IntervalKey {
	seen := make(map[types.IntervalKey]bool)
	var keys []types.IntervalKey
	for _, o := range book {
		k := o.Key()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
