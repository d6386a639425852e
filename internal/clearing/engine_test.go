package clearing

import (
	"math"
	"testing"
	"time"

	"github.com/ksred/nrm-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 6, 18, 0, 0, 0, 0, time.UTC)

func testOffer(participant string, price, quantity float64) types.Offer {
	return types.Offer{
		TradingDate:   testDate,
		TradingPeriod: 10,
		ParticipantID: participant,
		LocationID:    "OTA2201",
		Region:        types.RegionNorthIsland,
		ProductType:   types.ProductIL,
		ReserveType:   types.ReserveFIR,
		BandNumber:    1,
		Price:         price,
		Quantity:      quantity,
	}
}

func TestClearExactBoundary(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 1.0, 50),
		testOffer("B", 2.0, 50),
		testOffer("C", 3.0, 50),
	}

	result, err := Clear(book, 100)
	require.NoError(t, err)

	require.Len(t, result.Cleared, 2)
	assert.Equal(t, "A", result.Cleared[0].Offer.ParticipantID)
	assert.Equal(t, "B", result.Cleared[1].Offer.ParticipantID)
	assert.Equal(t, 50.0, result.Cleared[0].Allocation.ClearedQuantity)
	assert.Equal(t, 50.0, result.Cleared[1].Allocation.ClearedQuantity)

	// Offer B lands exactly on the boundary, so it is not split.
	require.Len(t, result.Uncleared, 1)
	assert.Equal(t, "C", result.Uncleared[0].Offer.ParticipantID)
	assert.False(t, result.Uncleared[0].Allocation.IsCleared)

	require.NotNil(t, result.MarginalPrice)
	assert.Equal(t, 2.0, *result.MarginalPrice)
}

func TestClearMarginalSplit(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 10, 50),
		testOffer("B", 15, 30),
		testOffer("C", 20, 40),
	}

	result, err := Clear(book, 70)
	require.NoError(t, err)

	require.Len(t, result.Cleared, 2)
	assert.Equal(t, "A", result.Cleared[0].Offer.ParticipantID)
	assert.Equal(t, 50.0, result.Cleared[0].Allocation.ClearedQuantity)
	assert.Equal(t, "B", result.Cleared[1].Offer.ParticipantID)
	assert.Equal(t, 20.0, result.Cleared[1].Allocation.ClearedQuantity)

	// B's residual appears on the uncleared side ahead of C.
	require.Len(t, result.Uncleared, 2)
	assert.Equal(t, "B", result.Uncleared[0].Offer.ParticipantID)
	assert.Equal(t, 10.0, result.Uncleared[0].Allocation.ClearedQuantity)
	assert.Equal(t, "C", result.Uncleared[1].Offer.ParticipantID)
	assert.Equal(t, 40.0, result.Uncleared[1].Allocation.ClearedQuantity)

	require.NotNil(t, result.MarginalPrice)
	assert.Equal(t, 15.0, *result.MarginalPrice)
	assert.Equal(t, 70.0, result.TotalCleared())
}

func TestClearCapacityShortfall(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 10, 50),
		testOffer("B", 15, 30),
		testOffer("C", 20, 40),
	}

	result, err := Clear(book, 150)
	require.NoError(t, err)

	// The whole book clears and the most expensive offer sets the price.
	require.Len(t, result.Cleared, 3)
	assert.Empty(t, result.Uncleared)
	assert.Equal(t, 120.0, result.TotalCleared())
	require.NotNil(t, result.MarginalPrice)
	assert.Equal(t, 20.0, *result.MarginalPrice)
}

func TestClearZeroRequirement(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 10, 50),
		testOffer("B", 15, 30),
		testOffer("C", 20, 40),
	}

	result, err := Clear(book, 0)
	require.NoError(t, err)

	assert.Empty(t, result.Cleared)
	assert.Nil(t, result.MarginalPrice)

	require.Len(t, result.Uncleared, 3)
	for i, o := range book {
		assert.Equal(t, o.ParticipantID, result.Uncleared[i].Offer.ParticipantID)
		assert.Equal(t, o.Quantity, result.Uncleared[i].Allocation.ClearedQuantity)
	}
}

func TestClearZeroQuantityOffersDiscarded(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 1.0, 50),
		testOffer("B", 2.0, 0),
	}

	result, err := Clear(book, 0)
	require.NoError(t, err)

	require.Len(t, result.Uncleared, 1)
	assert.Equal(t, "A", result.Uncleared[0].Offer.ParticipantID)
}

func TestClearPriceTiesKeepInsertionOrder(t *testing.T) {
	x := testOffer("X", 10, 10)
	y := testOffer("Y", 10, 10)

	result, err := Clear([]types.Offer{x, y}, 10)
	require.NoError(t, err)

	require.Len(t, result.Cleared, 1)
	assert.Equal(t, "X", result.Cleared[0].Offer.ParticipantID)
	assert.Equal(t, 10.0, result.Cleared[0].Allocation.ClearedQuantity)
	require.Len(t, result.Uncleared, 1)
	assert.Equal(t, "Y", result.Uncleared[0].Offer.ParticipantID)
	require.NotNil(t, result.MarginalPrice)
	assert.Equal(t, 10.0, *result.MarginalPrice)

	// Reversing insertion order reverses which offer clears.
	reversed, err := Clear([]types.Offer{y, x}, 10)
	require.NoError(t, err)
	assert.Equal(t, "Y", reversed.Cleared[0].Offer.ParticipantID)
	assert.Equal(t, "X", reversed.Uncleared[0].Offer.ParticipantID)
}

func TestClearQuantityConservation(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 5.0, 12.5),
		testOffer("B", 1.5, 33),
		testOffer("C", 2.25, 7),
		testOffer("D", 0.5, 19),
	}

	var bookTotal float64
	for _, o := range book {
		bookTotal += o.Quantity
	}

	for _, requirement := range []float64{0, 10, 33.5, 50, 71.5, 200} {
		result, err := Clear(book, requirement)
		require.NoError(t, err)

		var total float64
		for _, oa := range result.Cleared {
			total += oa.Allocation.ClearedQuantity
		}
		for _, oa := range result.Uncleared {
			total += oa.Allocation.ClearedQuantity
		}
		assert.InDelta(t, bookTotal, total, 1e-9, "requirement %v", requirement)
		assert.Equal(t, math.Min(requirement, bookTotal), result.TotalCleared(),
			"requirement %v", requirement)
	}
}

func TestClearPriceMonotonicity(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 1.0, 20),
		testOffer("B", 3.0, 20),
		testOffer("C", 7.0, 20),
	}

	var lastPrice float64
	for _, requirement := range []float64{5, 20, 25, 45, 60, 100} {
		result, err := Clear(book, requirement)
		require.NoError(t, err)
		require.NotNil(t, result.MarginalPrice)
		assert.GreaterOrEqual(t, *result.MarginalPrice, lastPrice)
		lastPrice = *result.MarginalPrice
	}
}

func TestClearResidualIdempotence(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 1.0, 40),
		testOffer("B", 2.0, 40),
		testOffer("C", 3.0, 40),
	}

	first, err := Clear(book, 60)
	require.NoError(t, err)
	assert.Equal(t, 60.0, first.TotalCleared())

	// Clearing the residual book for a further amount behaves as if the
	// original had been cleared for the combined total.
	second, err := Clear(first.UnclearedBook(), 30)
	require.NoError(t, err)
	assert.Equal(t, 30.0, second.TotalCleared())

	combined, err := Clear(book, 90)
	require.NoError(t, err)
	assert.Equal(t, first.TotalCleared()+second.TotalCleared(), combined.TotalCleared())
	require.NotNil(t, second.MarginalPrice)
	require.NotNil(t, combined.MarginalPrice)
	assert.Equal(t, *combined.MarginalPrice, *second.MarginalPrice)
}

func TestClearInvalidRequirement(t *testing.T) {
	book := []types.Offer{testOffer("A", 1.0, 50)}

	for _, requirement := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Clear(book, requirement)
		assert.ErrorIs(t, err, ErrInvalidRequirement, "requirement %v", requirement)
	}
}

func TestClearEmptyBook(t *testing.T) {
	_, err := Clear(nil, 100)
	assert.ErrorIs(t, err, ErrEmptyBook)

	// A book of only zero-quantity offers is effectively empty.
	book := []types.Offer{
		testOffer("A", 1.0, 0),
		testOffer("B", 2.0, 0),
	}
	_, err = Clear(book, 100)
	assert.ErrorIs(t, err, ErrEmptyBook)
}

func TestClearHeterogeneousBook(t *testing.T) {
	other := testOffer("B", 2.0, 50)
	other.TradingPeriod = 11

	_, err := Clear([]types.Offer{testOffer("A", 1.0, 50), other}, 100)
	assert.ErrorIs(t, err, ErrHeterogeneousBook)

	mixed := testOffer("C", 2.0, 50)
	mixed.ReserveType = types.ReserveSIR
	_, err = Clear([]types.Offer{testOffer("A", 1.0, 50), mixed}, 100)
	assert.ErrorIs(t, err, ErrHeterogeneousBook)
}

func TestClearDeterminism(t *testing.T) {
	book := []types.Offer{
		testOffer("A", 2.0, 30),
		testOffer("B", 1.0, 30),
		testOffer("C", 2.0, 30),
	}

	first, err := Clear(book, 70)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Clear(book, 70)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
