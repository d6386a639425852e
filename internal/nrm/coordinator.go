package nrm

import (
	"fmt"

	"github.com/ksred/nrm-api/internal/clearing"
	"github.com/ksred/nrm-api/internal/offers"
	"github.com/ksred/nrm-api/internal/types"
)

// Pass labels which of the three clearing passes produced a dispatch
// record.
const (
	PassNational = "national"
	PassNorth    = "north"
	PassSouth    = "south"
)

// DispatchRecord is one cleared allocation from any of the three passes,
// annotated with the pass that produced it and the regional price that
// applies to its offer's island.
type DispatchRecord struct {
	Offer       types.Offer         `json:"offer"`
	Allocation  clearing.Allocation `json:"allocation"`
	Pass        string              `json:"pass"`
	RegionPrice float64             `json:"region_price"`
}

// Result combines the cleared allocations of the national pass and both
// regional passes with the three resulting prices. Regional prices are
// floored at the national price.
type Result struct {
	Dispatch      []DispatchRecord `json:"dispatch"`
	NationalPrice float64          `json:"national_price"`
	NorthPrice    float64          `json:"north_price"`
	SouthPrice    float64          `json:"south_price"`
}

// TotalCleared returns the summed cleared quantity across all passes.
func (r *Result) TotalCleared() float64 {
	var total float64
	for _, d := range r.Dispatch {
		total += d.Allocation.ClearedQuantity
	}
	return total
}

// ClearNRM runs the three-stage national/regional clearing of one book.
//
// The shared national requirement, net of both island minimums, is
// cleared first across the whole book. The uncleared remainder is then
// partitioned by island and each island's minimum is cleared against its
// own residual stack. A split marginal offer from the national pass
// participates in its island's regional pass with its residual quantity.
//
// Regional prices never fall below the national price. An island whose
// minimum is zero needs no regional pass; its price is the national
// floor.
func ClearNRM(book []types.Offer, requirement types.ClearingRequirement) (*Result, error) {
	if !requirement.Valid() {
		return nil, fmt.Errorf("%w: %+v", clearing.ErrInvalidRequirement, requirement)
	}

	national := requirement.NationalRequirement - requirement.NorthMinimum - requirement.SouthMinimum
	if national < 0 {
		national = 0
	}

	nationalResult, err := clearing.Clear(book, national)
	if err != nil {
		return nil, fmt.Errorf("national pass: %w", err)
	}

	residual := nationalResult.UnclearedBook()
	northStack := offers.Filter(residual, offers.Query{Region: types.RegionNorthIsland})
	southStack := offers.Filter(residual, offers.Query{Region: types.RegionSouthIsland})

	northResult, err := clearRegional(northStack, requirement.NorthMinimum)
	if err != nil {
		return nil, fmt.Errorf("north pass: %w", err)
	}
	southResult, err := clearRegional(southStack, requirement.SouthMinimum)
	if err != nil {
		return nil, fmt.Errorf("south pass: %w", err)
	}

	nationalPrice := clearedPrice(nationalResult, 0)
	northPrice := clearedPrice(northResult, nationalPrice)
	southPrice := clearedPrice(southResult, nationalPrice)

	result := &Result{
		NationalPrice: nationalPrice,
		NorthPrice:    northPrice,
		SouthPrice:    southPrice,
	}
	result.appendPass(nationalResult, PassNational, northPrice, southPrice)
	result.appendPass(northResult, PassNorth, northPrice, southPrice)
	result.appendPass(southResult, PassSouth, northPrice, southPrice)

	return result, nil
}

// clearRegional clears one island's residual stack against its minimum.
// A zero minimum needs no pass at all, which also keeps an empty stack
// from being treated as unclearable when nothing is required of it.
func clearRegional(stack []types.Offer, minimum float64) (*clearing.Result, error) {
	if minimum == 0 {
		return nil, nil
	}
	return clearing.Clear(stack, minimum)
}

// clearedPrice extracts the marginal price of a pass, floored at the
// given price. A pass that cleared nothing contributes the floor itself.
func clearedPrice(result *clearing.Result, floor float64) float64 {
	if result == nil || result.MarginalPrice == nil || len(result.Cleared) == 0 {
		return floor
	}
	if *result.MarginalPrice < floor {
		return floor
	}
	return *result.MarginalPrice
}

// appendPass attaches one pass's cleared allocations to the combined
// dispatch, tagging each record with the price of its offer's island for
// reporting uniformity.
func (r *Result) appendPass(pass *clearing.Result, name string, northPrice, southPrice float64) {
	if pass == nil {
		return
	}
	for _, oa := range pass.Cleared {
		price := northPrice
		if oa.Offer.Region == types.RegionSouthIsland {
			price = southPrice
		}
		r.Dispatch = append(r.Dispatch, DispatchRecord{
			Offer:       oa.Offer,
			Allocation:  oa.Allocation,
			Pass:        name,
			RegionPrice: price,
		})
	}
}
