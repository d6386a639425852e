package offers

import (
	"testing"
	"time"

	"github.com/ksred/nrm-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLocations = map[string]types.Region{
	"OTA2201": types.RegionNorthIsland,
	"BEN2201": types.RegionSouthIsland,
}

func testRow(bands map[string]float64) WideOfferRow {
	return WideOfferRow{
		TradingDate:   "2024-06-18",
		TradingPeriod: 10,
		ParticipantID: "GENA",
		LocationID:    "OTA2201",
		Bands:         bands,
	}
}

func TestClassifyBandColumn(t *testing.T) {
	tests := []struct {
		column  string
		product types.ProductType
		reserve types.ReserveType
		band    int
		param   string
	}{
		{"Band1 Price", types.ProductEnergy, types.ReserveEnergy, 1, "Price"},
		{"Band3 Max", types.ProductEnergy, types.ReserveEnergy, 3, "Max"},
		{"Band1 6S Price", types.ProductIL, types.ReserveFIR, 1, "Price"},
		{"Band2 60S Max", types.ProductIL, types.ReserveSIR, 2, "Max"},
		{"Band1 Plsr 6S Price", types.ProductPLSR, types.ReserveFIR, 1, "Price"},
		{"Band2 Plsr 60S Max", types.ProductPLSR, types.ReserveSIR, 2, "Max"},
		{"Band1 Twdsr 6S Max", types.ProductTWDSR, types.ReserveFIR, 1, "Max"},
		{"Band10 Twdsr 60S Price", types.ProductTWDSR, types.ReserveSIR, 10, "Price"},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			class, param, err := classifyBandColumn(tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.product, class.Product)
			assert.Equal(t, tt.reserve, class.Reserve)
			assert.Equal(t, tt.band, class.Band)
			assert.Equal(t, tt.param, param)
		})
	}
}

func TestClassifyBandColumnRejectsUnknown(t *testing.T) {
	for _, column := range []string{
		"Band1",
		"Band1 Quantity",
		"BandX Price",
		"Band0 Price",
		"Band1 Ilrs 6S Price",
		"Band1 6S Plsr Price",
		"Trading Period",
		"band1 price",
	} {
		_, _, err := classifyBandColumn(column)
		assert.ErrorIs(t, err, ErrUnknownBandColumn, "column %q", column)
	}
}

func TestNormalizeExplodesBands(t *testing.T) {
	n := NewNormalizer(testLocations)

	offers, err := n.Normalize(testRow(map[string]float64{
		"Band1 6S Price":      1.5,
		"Band1 6S Max":        20,
		"Band1 60S Price":     2.5,
		"Band1 60S Max":       30,
		"Band1 Plsr 6S Price": 3.5,
		"Band1 Plsr 6S Max":   40,
	}))
	require.NoError(t, err)
	require.Len(t, offers, 3)

	// Output order is (product, reserve, band) ascending.
	assert.Equal(t, types.ProductIL, offers[0].ProductType)
	assert.Equal(t, types.ReserveFIR, offers[0].ReserveType)
	assert.Equal(t, 1.5, offers[0].Price)
	assert.Equal(t, 20.0, offers[0].Quantity)

	assert.Equal(t, types.ProductIL, offers[1].ProductType)
	assert.Equal(t, types.ReserveSIR, offers[1].ReserveType)

	assert.Equal(t, types.ProductPLSR, offers[2].ProductType)
	assert.Equal(t, types.ReserveFIR, offers[2].ReserveType)

	for _, o := range offers {
		assert.Equal(t, "GENA", o.ParticipantID)
		assert.Equal(t, "OTA2201", o.LocationID)
		assert.Equal(t, types.RegionNorthIsland, o.Region)
		assert.Equal(t, 10, o.TradingPeriod)
	}
}

func TestNormalizeLocationLookupCaseInsensitive(t *testing.T) {
	// Config loaders can hand over lowercased location keys; the lookup
	// must still match the upper-case grid exit point IDs in the rows.
	n := NewNormalizer(map[string]types.Region{
		"ota2201": types.RegionNorthIsland,
	})

	offers, err := n.Normalize(testRow(map[string]float64{
		"Band1 6S Price": 1.0,
		"Band1 6S Max":   10,
	}))
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, types.RegionNorthIsland, offers[0].Region)
	assert.Equal(t, "OTA2201", offers[0].LocationID)
}

func TestNormalizeTradingDatetime(t *testing.T) {
	n := NewNormalizer(testLocations)

	row := testRow(map[string]float64{
		"Band1 6S Price": 1.0,
		"Band1 6S Max":   10,
	})
	row.TradingPeriod = 1

	offers, err := n.Normalize(row)
	require.NoError(t, err)
	require.Len(t, offers, 1)

	// Period 1 covers 00:00 to 00:30; its midpoint is 00:15.
	want := time.Date(2024, 6, 18, 0, 15, 0, 0, time.UTC)
	assert.Equal(t, want, offers[0].TradingDatetime)

	row.TradingPeriod = 10
	offers, err = n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 18, 4, 45, 0, 0, time.UTC), offers[0].TradingDatetime)
}

func TestNormalizeZeroQuantityBandKept(t *testing.T) {
	n := NewNormalizer(testLocations)

	offers, err := n.Normalize(testRow(map[string]float64{
		"Band1 6S Price": 5.0,
		"Band1 6S Max":   0,
	}))
	require.NoError(t, err)

	// Zero-capacity bands survive normalization; the clearing engine is
	// what discards them.
	require.Len(t, offers, 1)
	assert.Equal(t, 0.0, offers[0].Quantity)
}

func TestNormalizeValidation(t *testing.T) {
	n := NewNormalizer(testLocations)
	validBands := map[string]float64{
		"Band1 6S Price": 1.0,
		"Band1 6S Max":   10,
	}

	tests := []struct {
		name    string
		mutate  func(*WideOfferRow)
		wantErr error
	}{
		{
			name:    "bad date",
			mutate:  func(r *WideOfferRow) { r.TradingDate = "18/06/2024" },
			wantErr: ErrInvalidTradingDate,
		},
		{
			name:    "period too low",
			mutate:  func(r *WideOfferRow) { r.TradingPeriod = 0 },
			wantErr: ErrInvalidTradingPeriod,
		},
		{
			name:    "period too high",
			mutate:  func(r *WideOfferRow) { r.TradingPeriod = 51 },
			wantErr: ErrInvalidTradingPeriod,
		},
		{
			name:    "unmapped location",
			mutate:  func(r *WideOfferRow) { r.LocationID = "XXX0001" },
			wantErr: ErrUnknownLocation,
		},
		{
			name:    "unknown band column",
			mutate:  func(r *WideOfferRow) { r.Bands["Band1 Mystery"] = 1 },
			wantErr: ErrUnknownBandColumn,
		},
		{
			name:    "price without max",
			mutate:  func(r *WideOfferRow) { delete(r.Bands, "Band1 6S Max") },
			wantErr: ErrIncompleteBand,
		},
		{
			name:    "max without price",
			mutate:  func(r *WideOfferRow) { delete(r.Bands, "Band1 6S Price") },
			wantErr: ErrIncompleteBand,
		},
		{
			name:    "negative value",
			mutate:  func(r *WideOfferRow) { r.Bands["Band1 6S Max"] = -5 },
			wantErr: ErrNegativeBandValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bands := make(map[string]float64, len(validBands))
			for k, v := range validBands {
				bands[k] = v
			}
			row := testRow(bands)
			tt.mutate(&row)

			_, err := n.Normalize(row)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeAllReportsRowIndex(t *testing.T) {
	n := NewNormalizer(testLocations)

	bad := testRow(map[string]float64{"Band1 6S Price": 1.0})
	rows := []WideOfferRow{
		testRow(map[string]float64{"Band1 6S Price": 1.0, "Band1 6S Max": 10}),
		bad,
	}

	_, err := n.NormalizeAll(rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteBand)
	assert.Contains(t, err.Error(), "row 1")
}
