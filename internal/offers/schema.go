package offers

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ksred/nrm-api/internal/types"
)

// Band column titles follow a fixed naming convention:
//
//	Band<N> [Plsr|Twdsr] [6S|60S] <Price|Max>
//
// The reserve marker (6S or 60S) selects fast or sustained reserve; its
// absence means an energy band. A Plsr or Twdsr product marker names the
// reserve product; a reserve marker with no product marker is an
// interruptible load band. Columns that do not match the convention are
// rejected rather than dropped, so a schema drift in the source files
// surfaces as an error instead of missing offers.
var bandColumnPattern = regexp.MustCompile(`^Band([0-9]+)(?: (Plsr|Twdsr))?(?: (6S|60S))? (Price|Max)$`)

const (
	paramPrice = "Price"
	paramMax   = "Max"
)

// bandClass identifies which normalized offer a band column contributes to.
type bandClass struct {
	Product types.ProductType
	Reserve types.ReserveType
	Band    int
}

// classifyBandColumn parses a band column title into its band class and
// parameter kind (Price or Max). It returns ErrUnknownBandColumn when the
// title does not follow the band naming convention.
func classifyBandColumn(name string) (bandClass, string, error) {
	m := bandColumnPattern.FindStringSubmatch(name)
	if m == nil {
		return bandClass{}, "", fmt.Errorf("%w: %q", ErrUnknownBandColumn, name)
	}

	band, err := strconv.Atoi(m[1])
	if err != nil || band < 1 {
		return bandClass{}, "", fmt.Errorf("%w: %q", ErrUnknownBandColumn, name)
	}

	reserve := types.ReserveEnergy
	switch m[3] {
	case "6S":
		reserve = types.ReserveFIR
	case "60S":
		reserve = types.ReserveSIR
	}

	product := types.ProductEnergy
	switch m[2] {
	case "Plsr":
		product = types.ProductPLSR
	case "Twdsr":
		product = types.ProductTWDSR
	default:
		if reserve != types.ReserveEnergy {
			product = types.ProductIL
		}
	}

	return bandClass{Product: product, Reserve: reserve, Band: band}, m[4], nil
}
