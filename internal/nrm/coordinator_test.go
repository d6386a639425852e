package nrm

import (
	"testing"
	"time"

	"github.com/ksred/nrm-api/internal/clearing"
	"github.com/ksred/nrm-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 6, 18, 0, 0, 0, 0, time.UTC)

func islandOffer(participant, location string, region types.Region, price, quantity float64) types.Offer {
	return types.Offer{
		TradingDate:   testDate,
		TradingPeriod: 10,
		ParticipantID: participant,
		LocationID:    location,
		Region:        region,
		ProductType:   types.ProductIL,
		ReserveType:   types.ReserveFIR,
		BandNumber:    1,
		Price:         price,
		Quantity:      quantity,
	}
}

func northOffer(participant string, price, quantity float64) types.Offer {
	return islandOffer(participant, "OTA2201", types.RegionNorthIsland, price, quantity)
}

func southOffer(participant string, price, quantity float64) types.Offer {
	return islandOffer(participant, "BEN2201", types.RegionSouthIsland, price, quantity)
}

func dispatchByPass(result *Result) map[string][]DispatchRecord {
	byPass := make(map[string][]DispatchRecord)
	for _, d := range result.Dispatch {
		byPass[d.Pass] = append(byPass[d.Pass], d)
	}
	return byPass
}

func TestClearNRMThreePasses(t *testing.T) {
	book := []types.Offer{
		northOffer("N1", 1.0, 40),
		northOffer("N2", 3.0, 40),
		southOffer("S1", 2.0, 40),
		southOffer("S2", 4.0, 40),
	}
	requirement := types.ClearingRequirement{
		NationalRequirement: 100,
		NorthMinimum:        20,
		SouthMinimum:        20,
	}

	result, err := ClearNRM(book, requirement)
	require.NoError(t, err)

	// Net national amount is 100 - 20 - 20 = 60: N1 in full plus 20 of S1.
	byPass := dispatchByPass(result)
	require.Len(t, byPass[PassNational], 2)
	assert.Equal(t, "N1", byPass[PassNational][0].Offer.ParticipantID)
	assert.Equal(t, 40.0, byPass[PassNational][0].Allocation.ClearedQuantity)
	assert.Equal(t, "S1", byPass[PassNational][1].Offer.ParticipantID)
	assert.Equal(t, 20.0, byPass[PassNational][1].Allocation.ClearedQuantity)
	assert.Equal(t, 2.0, result.NationalPrice)

	// The north stack holds only N2, which is split for the minimum.
	require.Len(t, byPass[PassNorth], 1)
	assert.Equal(t, "N2", byPass[PassNorth][0].Offer.ParticipantID)
	assert.Equal(t, 20.0, byPass[PassNorth][0].Allocation.ClearedQuantity)
	assert.Equal(t, 3.0, result.NorthPrice)

	// S1's residual from the national split covers the south minimum
	// exactly, so the south price sits on the national price.
	require.Len(t, byPass[PassSouth], 1)
	assert.Equal(t, "S1", byPass[PassSouth][0].Offer.ParticipantID)
	assert.Equal(t, 20.0, byPass[PassSouth][0].Allocation.ClearedQuantity)
	assert.Equal(t, 2.0, result.SouthPrice)

	assert.Equal(t, 100.0, result.TotalCleared())
}

func TestClearNRMRegionalPriceFloor(t *testing.T) {
	book := []types.Offer{
		northOffer("N1", 5.0, 100),
		southOffer("S1", 1.0, 100),
	}
	requirement := types.ClearingRequirement{
		NationalRequirement: 100,
		SouthMinimum:        20,
	}

	result, err := ClearNRM(book, requirement)
	require.NoError(t, err)

	// The south minimum clears from S1's residual at S1's own price, and
	// the national price is the floor it cannot fall below.
	assert.Equal(t, 1.0, result.NationalPrice)
	assert.Equal(t, result.NationalPrice, result.SouthPrice)

	// No north pass ran, so the north price is the national floor.
	byPass := dispatchByPass(result)
	assert.Empty(t, byPass[PassNorth])
	assert.Equal(t, result.NationalPrice, result.NorthPrice)
}

func TestClearNRMRegionPriceOnDispatch(t *testing.T) {
	book := []types.Offer{
		northOffer("N1", 1.0, 40),
		northOffer("N2", 3.0, 40),
		southOffer("S1", 2.0, 40),
	}
	requirement := types.ClearingRequirement{
		NationalRequirement: 80,
		NorthMinimum:        10,
		SouthMinimum:        10,
	}

	result, err := ClearNRM(book, requirement)
	require.NoError(t, err)

	// Every dispatch record carries the price of its offer's island,
	// regardless of which pass cleared it.
	for _, d := range result.Dispatch {
		want := result.NorthPrice
		if d.Offer.Region == types.RegionSouthIsland {
			want = result.SouthPrice
		}
		assert.Equal(t, want, d.RegionPrice, "participant %s pass %s", d.Offer.ParticipantID, d.Pass)
	}
}

func TestClearNRMAllZeroRequirement(t *testing.T) {
	book := []types.Offer{
		northOffer("N1", 1.0, 40),
		southOffer("S1", 2.0, 40),
	}

	result, err := ClearNRM(book, types.ClearingRequirement{})
	require.NoError(t, err)

	assert.Empty(t, result.Dispatch)
	assert.Equal(t, 0.0, result.NationalPrice)
	assert.Equal(t, 0.0, result.NorthPrice)
	assert.Equal(t, 0.0, result.SouthPrice)
}

func TestClearNRMMinimumsConsumeNational(t *testing.T) {
	book := []types.Offer{
		northOffer("N1", 5, 20),
		southOffer("S1", 8, 15),
	}
	requirement := types.ClearingRequirement{
		NationalRequirement: 10,
		NorthMinimum:        5,
		SouthMinimum:        5,
	}

	result, err := ClearNRM(book, requirement)
	require.NoError(t, err)

	// The net national amount is max(10-5-5, 0) = 0, so the national pass
	// clears nothing and both minimums are procured regionally.
	byPass := dispatchByPass(result)
	assert.Empty(t, byPass[PassNational])
	assert.Equal(t, 0.0, result.NationalPrice)

	require.Len(t, byPass[PassNorth], 1)
	assert.Equal(t, "N1", byPass[PassNorth][0].Offer.ParticipantID)
	assert.Equal(t, 5.0, byPass[PassNorth][0].Allocation.ClearedQuantity)
	assert.Equal(t, 5.0, result.NorthPrice)

	require.Len(t, byPass[PassSouth], 1)
	assert.Equal(t, "S1", byPass[PassSouth][0].Offer.ParticipantID)
	assert.Equal(t, 5.0, byPass[PassSouth][0].Allocation.ClearedQuantity)
	assert.Equal(t, 8.0, result.SouthPrice)

	assert.Equal(t, 10.0, result.TotalCleared())
	assert.GreaterOrEqual(t, result.NorthPrice, result.NationalPrice)
	assert.GreaterOrEqual(t, result.SouthPrice, result.NationalPrice)
}

func TestClearNRMInvalidRequirement(t *testing.T) {
	book := []types.Offer{northOffer("N1", 1.0, 40)}

	for _, requirement := range []types.ClearingRequirement{
		{NationalRequirement: -1},
		{NationalRequirement: 10, NorthMinimum: -5},
		{NationalRequirement: 10, SouthMinimum: -5},
	} {
		_, err := ClearNRM(book, requirement)
		assert.ErrorIs(t, err, clearing.ErrInvalidRequirement, "%+v", requirement)
	}
}

func TestClearNRMEmptyBook(t *testing.T) {
	_, err := ClearNRM(nil, types.ClearingRequirement{NationalRequirement: 100})
	assert.ErrorIs(t, err, clearing.ErrEmptyBook)
}

func TestClearNRMEmptyIslandStack(t *testing.T) {
	book := []types.Offer{northOffer("N1", 1.0, 40)}

	// A south minimum with no south offers at all is unclearable.
	_, err := ClearNRM(book, types.ClearingRequirement{
		NationalRequirement: 30,
		SouthMinimum:        10,
	})
	assert.ErrorIs(t, err, clearing.ErrEmptyBook)

	// With the minimum at zero the same book clears fine.
	result, err := ClearNRM(book, types.ClearingRequirement{NationalRequirement: 30})
	require.NoError(t, err)
	assert.Equal(t, 30.0, result.TotalCleared())
}
