package clearing

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/nrm-api/internal/offers"
	"github.com/ksred/nrm-api/internal/types"
	"github.com/ksred/nrm-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles single-pass merit-order clearing requests against the
// stored offer book.
type Service struct {
	db     *Database
	offers *offers.Service
}

// NewService creates a new clearing service with the given database
// connection and offer service.
func NewService(gormDB *gorm.DB, offerService *offers.Service) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		offers: offerService,
	}
}

const (
	StatusPending = "PENDING"
	StatusCleared = "CLEARED"
	StatusFailed  = "FAILED"
)

// ClearingRequest selects one interval/reserve combination from the
// stored book and the requirement to clear it against.
type ClearingRequest struct {
	TradingDate   string  `json:"trading_date" binding:"required"`
	TradingPeriod int     `json:"trading_period" binding:"required"`
	ReserveType   string  `json:"reserve_type" binding:"required"`
	Requirement   float64 `json:"requirement"`
}

// ClearInterval loads the sub-book for one interval and reserve type,
// clears it against the requirement, and records the run. Engine errors
// are recorded on the run and returned to the caller untouched.
func (s *Service) ClearInterval(req ClearingRequest) (*ClearingResponse, error) {
	logger := log.With().
		Str("service", "clearing").
		Str("trading_date", req.TradingDate).
		Int("trading_period", req.TradingPeriod).
		Str("reserve_type", req.ReserveType).
		Float64("requirement", req.Requirement).
		Logger()

	logger.Info().Msg("starting merit-order clearing")

	run := &ClearingRun{
		RunID:         "CLR_" + uuid.New().String(),
		TradingDate:   req.TradingDate,
		TradingPeriod: req.TradingPeriod,
		ReserveType:   req.ReserveType,
		Requirement:   req.Requirement,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	book, err := s.offers.List(offers.Query{
		TradingDate:   req.TradingDate,
		TradingPeriod: req.TradingPeriod,
		ReserveType:   types.ReserveType(req.ReserveType),
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to load offer book")
		return nil, err
	}
	run.OfferCount = len(book)

	logger.Debug().
		Str("run_id", run.RunID).
		Int("offers", len(book)).
		Msg("loaded offer book")

	result, err := Clear(book, req.Requirement)
	if err != nil {
		logger.Error().Err(err).Msg("clearing failed")
		run.Status = StatusFailed
		run.FailureReason = err.Error()
		if dbErr := s.db.CreateRun(run); dbErr != nil {
			logger.Error().Err(dbErr).Msg("failed to save failed clearing run")
			return nil, dbErr
		}
		return nil, err
	}

	run.Status = StatusCleared
	run.ClearedQuantity = result.TotalCleared()
	if result.MarginalPrice != nil {
		run.MarginalPrice = *result.MarginalPrice
	}

	if err := s.db.CreateRun(run); err != nil {
		logger.Error().Err(err).Msg("failed to save clearing run")
		return nil, err
	}

	logger.Info().
		Str("run_id", run.RunID).
		Float64("cleared_quantity", run.ClearedQuantity).
		Float64("marginal_price", run.MarginalPrice).
		Int("cleared_offers", len(result.Cleared)).
		Int("uncleared_offers", len(result.Uncleared)).
		Msg("clearing completed successfully")

	return &ClearingResponse{
		RunID:  run.RunID,
		Status: run.Status,
		Result: result,
	}, nil
}

// GetRunStatus retrieves a previously recorded clearing run.
func (s *Service) GetRunStatus(runID string) (*ClearingRun, error) {
	return s.db.GetRun(runID)
}

// GinHandlers contains HTTP handlers for clearing endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for clearing endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// ClearHandler handles POST requests to clear one interval against a
// requirement. An empty or mixed book and a negative requirement are
// client errors, not server failures.
func (h *GinHandlers) ClearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ClearingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.service.ClearInterval(req)
		switch {
		case errors.Is(err, ErrInvalidRequirement), errors.Is(err, ErrHeterogeneousBook):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrEmptyBook):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.Handle(c, result, err)
		}
	}
}

// GetRunStatusHandler handles GET requests for a clearing run record.
// URL parameter: run_id
func (h *GinHandlers) GetRunStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run_id")

		run, err := h.service.GetRunStatus(runID)
		response.Handle(c, run, err)
	}
}
