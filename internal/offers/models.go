package offers

// WideOfferRow is one raw submission row in the wide WITS layout: the
// general participant/interval columns plus a variable set of band
// columns keyed by their original column title, e.g. "Band1 Plsr 6S
// Price" or "Band2 Max". The Normalizer explodes each row into one
// Offer per (product, reserve, band) combination.
type WideOfferRow struct {
	TradingDate   string             `json:"trading_date"`
	TradingPeriod int                `json:"trading_period"`
	ParticipantID string             `json:"participant_id"`
	LocationID    string             `json:"location_id"`
	Bands         map[string]float64 `json:"bands"`
}
