package batch

import (
	"time"

	"github.com/ksred/nrm-api/internal/nrm"
	"github.com/ksred/nrm-api/internal/types"
	"gorm.io/gorm"
)

// CombinationResult is one successfully cleared combination.
type CombinationResult struct {
	Key    types.IntervalKey `json:"key"`
	Result *nrm.Result       `json:"result"`
}

// SkippedCombination records a combination that could not be cleared and
// why: a missing requirement entry or an unclearable book.
type SkippedCombination struct {
	Key    types.IntervalKey `json:"key"`
	Reason string            `json:"reason"`
}

// Report is the complete outcome of one batch run.
type Report struct {
	Results []CombinationResult  `json:"results"`
	Skipped []SkippedCombination `json:"skipped"`
}

type BatchRun struct {
	gorm.Model   `json:"-"`
	BatchID      string    `gorm:"uniqueIndex" json:"batch_id"`
	Combinations int       `json:"combinations"`
	Succeeded    int       `json:"succeeded"`
	SkippedCount int       `json:"skipped_count"`
	SkippedJSON  string    `json:"skipped_json"` // JSON array of skipped combinations
	Status       string    `json:"status"`       // PENDING, COMPLETED, FAILED
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type BatchResponse struct {
	BatchID string  `json:"batch_id"`
	Status  string  `json:"status"`
	Report  *Report `json:"report,omitempty"`
}
