package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/nrm-api/internal/offers"
	"github.com/ksred/nrm-api/internal/types"
	"github.com/ksred/nrm-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service handles batch clearing of the stored offer book against a
// requirement table.
type Service struct {
	db     *Database
	offers *offers.Service
	runner *Runner
}

// NewService creates a new batch service with the given database
// connection, offer service, and worker count.
func NewService(gormDB *gorm.DB, offerService *offers.Service, workers int) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		offers: offerService,
		runner: NewRunner(workers),
	}
}

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// RequirementEntry is one row of the externally supplied requirement
// table, keyed by interval and reserve type.
type RequirementEntry struct {
	TradingDate         string  `json:"trading_date" binding:"required"`
	TradingPeriod       int     `json:"trading_period" binding:"required"`
	ReserveType         string  `json:"reserve_type" binding:"required"`
	NationalRequirement float64 `json:"national_requirement"`
	NorthMinimum        float64 `json:"north_minimum"`
	SouthMinimum        float64 `json:"south_minimum"`
}

// BatchRequest carries the full requirement table for one batch run.
type BatchRequest struct {
	Requirements []RequirementEntry `json:"requirements" binding:"required"`
}

// RequirementTable converts the request rows into the lookup map used by
// the runner.
func (r BatchRequest) RequirementTable() map[types.IntervalKey]types.ClearingRequirement {
	table := make(map[types.IntervalKey]types.ClearingRequirement, len(r.Requirements))
	for _, entry := range r.Requirements {
		key := types.IntervalKey{
			TradingDate:   entry.TradingDate,
			TradingPeriod: entry.TradingPeriod,
			ReserveType:   types.ReserveType(entry.ReserveType),
		}
		table[key] = types.ClearingRequirement{
			NationalRequirement: entry.NationalRequirement,
			NorthMinimum:        entry.NorthMinimum,
			SouthMinimum:        entry.SouthMinimum,
		}
	}
	return table
}

// ClearAll clears every combination in the stored book against the
// requirement table and records the run, including every skipped
// combination and its reason.
func (s *Service) ClearAll(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	logger := log.With().
		Str("service", "batch").
		Int("requirement_entries", len(req.Requirements)).
		Logger()

	logger.Info().Msg("starting batch clearing run")

	book, err := s.offers.Book()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load offer book")
		return nil, err
	}

	run := &BatchRun{
		BatchID:   "BATCH_" + uuid.New().String(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	report := s.runner.ClearAll(ctx, book, req.RequirementTable())

	run.Combinations = len(report.Results) + len(report.Skipped)
	run.Succeeded = len(report.Results)
	run.SkippedCount = len(report.Skipped)
	run.Status = StatusCompleted

	skippedJSON, err := json.Marshal(report.Skipped)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal skipped combinations")
		return nil, fmt.Errorf("failed to marshal skipped combinations: %w", err)
	}
	run.SkippedJSON = string(skippedJSON)

	if err := s.db.CreateBatchRun(run); err != nil {
		logger.Error().Err(err).Msg("failed to save batch run")
		return nil, err
	}

	logger.Info().
		Str("batch_id", run.BatchID).
		Int("combinations", run.Combinations).
		Int("succeeded", run.Succeeded).
		Int("skipped", run.SkippedCount).
		Msg("batch clearing run completed")

	return &BatchResponse{
		BatchID: run.BatchID,
		Status:  run.Status,
		Report:  report,
	}, nil
}

// GetBatchStatus retrieves a previously recorded batch run.
func (s *Service) GetBatchStatus(batchID string) (*BatchRun, error) {
	return s.db.GetBatchRun(batchID)
}

// GinHandlers contains HTTP handlers for batch endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for batch endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// ClearAllHandler handles POST requests to run a batch clearing of the
// whole stored book against a requirement table.
func (h *GinHandlers) ClearAllHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.service.ClearAll(c.Request.Context(), req)
		response.Handle(c, result, err)
	}
}

// GetBatchStatusHandler handles GET requests for a batch run record.
// URL parameter: batch_id
func (h *GinHandlers) GetBatchStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		batchID := c.Param("batch_id")

		run, err := h.service.GetBatchStatus(batchID)
		response.Handle(c, run, err)
	}
}
