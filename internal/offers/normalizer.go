package offers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ksred/nrm-api/internal/types"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownBandColumn    = errors.New("band column does not match the band naming convention")
	ErrIncompleteBand       = errors.New("band is missing its price or max column")
	ErrUnknownLocation      = errors.New("location has no region mapping")
	ErrInvalidTradingDate   = errors.New("invalid trading date")
	ErrInvalidTradingPeriod = errors.New("trading period must be between 1 and 50")
	ErrNegativeBandValue    = errors.New("band price and quantity must not be negative")
)

// Normalizer converts wide submission rows into normalized Offers. The
// location-to-region mapping is supplied at construction; there is no
// implicit configuration lookup.
type Normalizer struct {
	locations map[string]types.Region
}

// NewNormalizer creates a Normalizer with the given location-to-region
// mapping. Location IDs are matched case-insensitively; grid exit point
// IDs are upper case by convention but config loaders may lowercase
// their keys.
func NewNormalizer(locations map[string]types.Region) *Normalizer {
	canonical := make(map[string]types.Region, len(locations))
	for location, region := range locations {
		canonical[strings.ToUpper(location)] = region
	}
	return &Normalizer{locations: canonical}
}

// Normalize explodes one wide row into one Offer per distinct
// (product type, reserve type, band number) combination found among its
// band columns. The transform is pure: the input row is never modified
// and no state is kept between calls. Offers are returned in a
// deterministic order (product, reserve, band ascending).
func (n *Normalizer) Normalize(row WideOfferRow) ([]types.Offer, error) {
	date, err := time.Parse(types.DateFormat, row.TradingDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTradingDate, row.TradingDate)
	}
	if row.TradingPeriod < 1 || row.TradingPeriod > 50 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTradingPeriod, row.TradingPeriod)
	}

	region, ok := n.locations[strings.ToUpper(row.LocationID)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, row.LocationID)
	}

	// Group band cells by their classified (product, reserve, band) key.
	grouped := make(map[bandClass]map[string]float64)
	for column, value := range row.Bands {
		class, param, err := classifyBandColumn(column)
		if err != nil {
			return nil, err
		}
		if value < 0 {
			return nil, fmt.Errorf("%w: %s = %v", ErrNegativeBandValue, column, value)
		}
		if grouped[class] == nil {
			grouped[class] = make(map[string]float64)
		}
		grouped[class][param] = value
	}

	offers := make([]types.Offer, 0, len(grouped))
	for class, params := range grouped {
		price, hasPrice := params[paramPrice]
		quantity, hasMax := params[paramMax]
		if !hasPrice || !hasMax {
			return nil, fmt.Errorf("%w: %s %s band %d", ErrIncompleteBand,
				class.Product, class.Reserve, class.Band)
		}

		offers = append(offers, types.Offer{
			TradingDate:     date,
			TradingPeriod:   row.TradingPeriod,
			TradingDatetime: tradingDatetime(date, row.TradingPeriod),
			ParticipantID:   row.ParticipantID,
			LocationID:      row.LocationID,
			Region:          region,
			ProductType:     class.Product,
			ReserveType:     class.Reserve,
			BandNumber:      class.Band,
			Price:           price,
			Quantity:        quantity,
		})
	}

	sort.Slice(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if a.ProductType != b.ProductType {
			return a.ProductType < b.ProductType
		}
		if a.ReserveType != b.ReserveType {
			return a.ReserveType < b.ReserveType
		}
		return a.BandNumber < b.BandNumber
	})

	log.Debug().
		Str("participant_id", row.ParticipantID).
		Str("location_id", row.LocationID).
		Int("bands", len(offers)).
		Msg("normalized wide offer row")

	return offers, nil
}

// NormalizeAll normalizes a sequence of wide rows, concatenating the
// resulting offers in row order.
func (n *Normalizer) NormalizeAll(rows []WideOfferRow) ([]types.Offer, error) {
	var all []types.Offer
	for i, row := range rows {
		offers, err := n.Normalize(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		all = append(all, offers...)
	}
	return all, nil
}

// tradingDatetime derives the interval midpoint timestamp: trading
// periods are half-hourly, so period p ends at p*30 minutes past
// midnight and its midpoint sits 15 minutes earlier.
func tradingDatetime(date time.Time, period int) time.Time {
	return date.Add(time.Duration(period)*30*time.Minute - 15*time.Minute)
}
