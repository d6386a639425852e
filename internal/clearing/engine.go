package clearing

import (
	"fmt"
	"math"
	"sort"

	"github.com/ksred/nrm-api/internal/types"
)

// Allocation is the derived dispatch outcome for one offer in one
// clearing result. ClearedQuantity is the portion of the offer carried
// on that side of the result: for a cleared entry it is the accepted
// quantity, for an uncleared entry it is the quantity still available.
// The marginal offer is the only one that can appear on both sides.
type Allocation struct {
	ClearedQuantity float64 `json:"cleared_quantity"`
	IsCleared       bool    `json:"is_cleared"`
}

// OfferAllocation pairs an offer with its allocation.
type OfferAllocation struct {
	Offer      types.Offer `json:"offer"`
	Allocation Allocation  `json:"allocation"`
}

// Result is the outcome of clearing one book against one requirement.
// MarginalPrice is nil when no clearing occurred (zero requirement).
type Result struct {
	Cleared       []OfferAllocation `json:"cleared"`
	Uncleared     []OfferAllocation `json:"uncleared"`
	MarginalPrice *float64          `json:"marginal_price,omitempty"`
}

// TotalCleared returns the summed cleared quantity.
func (r *Result) TotalCleared() float64 {
	var total float64
	for _, oa := range r.Cleared {
		total += oa.Allocation.ClearedQuantity
	}
	return total
}

// UnclearedBook returns the uncleared portions as a standalone book of
// offers, with each offer's quantity set to what remains available. The
// residual of a split marginal offer is a genuine, still-available
// offer, which is what allows a second clearing pass against the
// remainder.
func (r *Result) UnclearedBook() []types.Offer {
	book := make([]types.Offer, 0, len(r.Uncleared))
	for _, oa := range r.Uncleared {
		offer := oa.Offer
		offer.Quantity = oa.Allocation.ClearedQuantity
		book = append(book, offer)
	}
	return book
}

// Clear runs a single-pass merit-order clearing of a book against a
// scalar requirement.
//
// The book must already be restricted to one trading interval and one
// reserve type. Offers are accepted cheapest first, with price ties
// broken by insertion order; the marginal offer is split so the cleared
// quantities sum exactly to the requirement. If total capacity falls
// short of the requirement the whole book clears and the most expensive
// offer sets the price.
func Clear(book []types.Offer, requirement float64) (*Result, error) {
	if requirement < 0 || math.IsNaN(requirement) || math.IsInf(requirement, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRequirement, requirement)
	}
	if err := checkHomogeneous(book); err != nil {
		return nil, err
	}

	// Zero-quantity offers carry no capacity and are discarded up front.
	available := make([]types.Offer, 0, len(book))
	for _, o := range book {
		if o.Quantity > 0 {
			available = append(available, o)
		}
	}
	if len(available) == 0 {
		return nil, ErrEmptyBook
	}

	if requirement == 0 {
		result := &Result{Uncleared: make([]OfferAllocation, 0, len(available))}
		for _, o := range available {
			result.Uncleared = append(result.Uncleared, OfferAllocation{
				Offer:      o,
				Allocation: Allocation{ClearedQuantity: o.Quantity},
			})
		}
		return result, nil
	}

	// Merit order: cheapest first. The stable sort keeps equal-priced
	// offers in insertion order, which decides which of them is marginal.
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Price < available[j].Price
	})

	cumulative := make([]float64, len(available))
	var running float64
	for i, o := range available {
		running += o.Quantity
		cumulative[i] = running
	}

	marginal := -1
	for i, c := range cumulative {
		if c >= requirement {
			marginal = i
			break
		}
	}

	// Capacity-constrained case: the requirement cannot be met, so the
	// entire book clears with no residual.
	var remainder float64
	if marginal < 0 {
		marginal = len(available) - 1
		remainder = 0
	} else {
		remainder = cumulative[marginal] - requirement
	}

	result := &Result{}
	for i, o := range available {
		switch {
		case i < marginal:
			result.Cleared = append(result.Cleared, OfferAllocation{
				Offer:      o,
				Allocation: Allocation{ClearedQuantity: o.Quantity, IsCleared: true},
			})
		case i == marginal:
			result.Cleared = append(result.Cleared, OfferAllocation{
				Offer:      o,
				Allocation: Allocation{ClearedQuantity: o.Quantity - remainder, IsCleared: true},
			})
			if remainder > 0 {
				result.Uncleared = append(result.Uncleared, OfferAllocation{
					Offer:      o,
					Allocation: Allocation{ClearedQuantity: remainder},
				})
			}
		default:
			result.Uncleared = append(result.Uncleared, OfferAllocation{
				Offer:      o,
				Allocation: Allocation{ClearedQuantity: o.Quantity},
			})
		}
	}

	price := available[marginal].Price
	result.MarginalPrice = &price

	return result, nil
}

// checkHomogeneous verifies the precondition that every offer in the
// book shares one (trading date, trading period, reserve type) triple.
func checkHomogeneous(book []types.Offer) error {
	if len(book) == 0 {
		return nil
	}
	first := book[0].Key()
	for _, o := range book[1:] {
		if o.Key() != first {
			return fmt.Errorf("%w: %v and %v", ErrHeterogeneousBook, first, o.Key())
		}
	}
	return nil
}
