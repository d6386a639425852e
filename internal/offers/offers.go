package offers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/nrm-api/internal/types"
	"github.com/ksred/nrm-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles offer submission and lookup. Raw wide rows are
// normalized on the way in; everything downstream only ever sees
// normalized Offers.
type Service struct {
	db         *Database
	normalizer *Normalizer
}

// NewService creates a new offer service with the given database
// connection and location-to-region mapping.
func NewService(gormDB *gorm.DB, locations map[string]types.Region) *Service {
	return &Service{
		db:         NewDatabase(gormDB),
		normalizer: NewNormalizer(locations),
	}
}

// UploadResult summarizes one submission of wide rows.
type UploadResult struct {
	RowsReceived  int `json:"rows_received"`
	OffersCreated int `json:"offers_created"`
}

// Upload normalizes a batch of wide rows and stores the resulting
// offers. The whole batch is rejected if any row fails to normalize, so
// a schema problem never produces a silently partial book.
func (s *Service) Upload(rows []WideOfferRow) (*UploadResult, error) {
	logger := log.With().
		Str("service", "offers").
		Int("rows", len(rows)).
		Logger()

	normalized, err := s.normalizer.NormalizeAll(rows)
	if err != nil {
		logger.Error().Err(err).Msg("failed to normalize offer rows")
		return nil, err
	}

	if err := s.db.CreateOffers(normalized); err != nil {
		logger.Error().Err(err).Msg("failed to store normalized offers")
		return nil, err
	}

	logger.Info().
		Int("offers_created", len(normalized)).
		Msg("stored normalized offers")

	return &UploadResult{
		RowsReceived:  len(rows),
		OffersCreated: len(normalized),
	}, nil
}

// List returns stored offers matching the query.
func (s *Service) List(q Query) ([]types.Offer, error) {
	return s.db.ListOffers(q)
}

// Book returns every stored offer, for whole-book operations such as
// batch clearing.
func (s *Service) Book() ([]types.Offer, error) {
	return s.db.ListAll()
}

// GinHandlers contains HTTP handlers for offer endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for offer endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// UploadOffersHandler handles POST requests submitting wide offer rows
func (h *GinHandlers) UploadOffersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []WideOfferRow
		if err := c.ShouldBindJSON(&rows); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.service.Upload(rows)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		response.Success(c, result)
	}
}

// ListOffersHandler handles GET requests querying stored offers.
// Supported query parameters: trading_date, trading_period,
// product_type, reserve_type, region, participant_id, location_id,
// non_zero.
func (h *GinHandlers) ListOffersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := Query{
			TradingDate:   c.Query("trading_date"),
			ProductType:   types.ProductType(c.Query("product_type")),
			ReserveType:   types.ReserveType(c.Query("reserve_type")),
			Region:        types.Region(c.Query("region")),
			ParticipantID: c.Query("participant_id"),
			LocationID:    c.Query("location_id"),
			NonZero:       c.Query("non_zero") == "true",
		}
		if p := c.Query("trading_period"); p != "" {
			period, err := strconv.Atoi(p)
			if err != nil {
				response.BadRequest(c, "Invalid trading_period")
				return
			}
			q.TradingPeriod = period
		}

		offers, err := h.service.List(q)
		response.Handle(c, offers, err)
	}
}
