package nrm

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/nrm-api/internal/clearing"
	"github.com/ksred/nrm-api/internal/offers"
	"github.com/ksred/nrm-api/internal/types"
	"github.com/ksred/nrm-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles national/regional reserve clearing requests against
// the stored offer book.
type Service struct {
	db     *Database
	offers *offers.Service
}

// NewService creates a new NRM service with the given database
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

// NRMRequest selects one interval/reserve combination and the three
// requirement components to clear it against.
type NRMRequest struct {
	TradingDate         string  `json:"trading_date" binding:"required"`
	TradingPeriod       int     `json:"trading_period" binding:"required"`
	ReserveType         string  `json:"reserve_type" binding:"required"`
	NationalRequirement float64 `json:"national_requirement"`
	NorthMinimum        float64 `json:"north_minimum"`
	SouthMinimum        float64 `json:"south_minimum"`
}

// ClearInterval loads the sub-book for one interval and reserve type,
// runs the three-stage NRM clearing, and records the run.
func (s *Service) ClearInterval(req NRMRequest) (*NRMResponse, error) {
	logger := log.With().
		Str("service", "nrm").
		Str("trading_date", req.TradingDate).
		Int("trading_period", req.TradingPeriod).
		Str("reserve_type", req.ReserveType).
		Logger()

	logger.Info().
		Float64("national_requirement", req.NationalRequirement).
		Float64("north_minimum", req.NorthMinimum).
		Float64("south_minimum", req.SouthMinimum).
		Msg("starting NRM clearing")

	run := &NRMRun{
		RunID:         "NRM_" + uuid.New().String(),
		TradingDate:   req.TradingDate,
		TradingPeriod: req.TradingPeriod,
		ReserveType:   req.ReserveType,
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

	logger.Debug().
		Str("run_id", run.RunID).
		Int("offers", len(book)).
		Msg("loaded offer book")

	result, err := ClearNRM(book, types.ClearingRequirement{
		NationalRequirement: req.NationalRequirement,
		NorthMinimum:        req.NorthMinimum,
		SouthMinimum:        req.SouthMinimum,
	})
	if err != nil {
		logger.Error().Err(err).Msg("NRM clearing failed")
		run.Status = StatusFailed
		run.FailureReason = err.Error()
		if dbErr := s.db.CreateRun(run); dbErr != nil {
			logger.Error().Err(dbErr).Msg("failed to save failed NRM run")
			return nil, dbErr
		}
		return nil, err
	}

	run.Status = StatusCleared
	run.NationalPrice = result.NationalPrice
	run.NorthPrice = result.NorthPrice
	run.SouthPrice = result.SouthPrice
	run.ClearedQuantity = result.TotalCleared()

	if err := s.db.CreateRun(run); err != nil {
		logger.Error().Err(err).Msg("failed to save NRM run")
		return nil, err
	}

	logger.Info().
		Str("run_id", run.RunID).
		Float64("national_price", run.NationalPrice).
		Float64("north_price", run.NorthPrice).
		Float64("south_price", run.SouthPrice).
		Float64("cleared_quantity", run.ClearedQuantity).
		Msg("NRM clearing completed successfully")

	return &NRMResponse{
		RunID:  run.RunID,
		Status: run.Status,
		Result: result,
	}, nil
}

// GetRunStatus retrieves a previously recorded NRM run.
func (s *Service) GetRunStatus(runID string) (*NRMRun, error) {
	return s.db.GetRun(runID)
}

// GinHandlers contains HTTP handlers for NRM endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for NRM endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// ClearNRMHandler handles POST requests to run a national/regional
// clearing for one interval.
func (h *GinHandlers) ClearNRMHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NRMRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.service.ClearInterval(req)
		switch {
		case errors.Is(err, clearing.ErrInvalidRequirement), errors.Is(err, clearing.ErrHeterogeneousBook):
			response.BadRequest(c, err.Error())
		case errors.Is(err, clearing.ErrEmptyBook):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.Handle(c, result, err)
		}
	}
}

// GetRunStatusHandler handles GET requests for an NRM run record.
// URL parameter: run_id
func (h *GinHandlers) GetRunStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run_id")

		run, err := h.service.GetRunStatus(runID)
		response.Handle(c, run, err)
	}
}
