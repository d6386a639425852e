package offers

import (
	"time"

	"github.com/ksred/nrm-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// CreateOffers stores a batch of normalized offers in a single
// transaction.
func (d *Database) CreateOffers(offers []types.Offer) error {
	if len(offers) == 0 {
		return nil
	}
	return d.db.Create(&offers).Error
}

// ListOffers returns stored offers matching the query, in insertion
// order. Band ordering within a row is preserved because offers are
// created in normalized order.
func (d *Database) ListOffers(q Query) ([]types.Offer, error) {
	tx := d.db.Order("id ASC")

	if q.TradingDate != "" {
		date, err := time.Parse(types.DateFormat, q.TradingDate)
		if err != nil {
			return nil, err
		}
		tx = tx.Where("trading_date = ?", date)
	}
	if q.TradingPeriod != 0 {
		tx = tx.Where("trading_period = ?", q.TradingPeriod)
	}
	if q.ProductType != "" {
		tx = tx.Where("product_type = ?", q.ProductType)
	}
	if q.ReserveType != "" {
		tx = tx.Where("reserve_type = ?", q.ReserveType)
	}
	if q.Region != "" {
		tx = tx.Where("region = ?", q.Region)
	}
	if q.ParticipantID != "" {
		tx = tx.Where("participant_id = ?", q.ParticipantID)
	}
	if q.LocationID != "" {
		tx = tx.Where("location_id = ?", q.LocationID)
	}
	if q.NonZero {
		tx = tx.Where("quantity > 0")
	}

	var offers []types.Offer
	if err := tx.Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// ListAll returns every stored offer in insertion order.
func (d *Database) ListAll() ([]types.Offer, error) {
	return d.ListOffers(Query{})
}
