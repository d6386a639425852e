package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ksred/nrm-api/internal/nrm"
	"github.com/ksred/nrm-api/internal/offers"
	"github.com/ksred/nrm-api/internal/types"
)

// ErrMissingRequirement indicates a combination present in the book with
// no matching requirement entry. The combination is skipped, not fatal.
var ErrMissingRequirement = errors.New("no requirement entry for combination")

// Outcome is the per-combination result of a batch run: either a
// clearing result or the error that prevented one. A failed combination
// never aborts the rest of the batch.
type Outcome struct {
	Key    types.IntervalKey `json:"key"`
	Result *nrm.Result       `json:"result,omitempty"`
	Err    error             `json:"-"`
}

// Runner clears every interval/reserve combination of a book against an
// externally supplied requirement table. Combinations are mutually
// independent, so they are fanned out over a fixed pool of workers; each
// worker reads its own sub-book and requirement entry and owns its
// result, so no locking is needed.
type Runner struct {
	workers int
}

// NewRunner creates a Runner with the given worker count.
func NewRunner(workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{workers: workers}
}

// Stream lazily clears every distinct (date, period, reserve type)
// combination found in the book, sending one Outcome per combination.
// The channel is closed once all combinations have been attempted or the
// context is cancelled. Each call starts a fresh traversal, so the
// sequence is restartable. Ordering across combinations is unspecified;
// each combination's own result is deterministic.
func (r *Runner) Stream(ctx context.Context, book []types.Offer, requirements map[types.IntervalKey]types.ClearingRequirement) <-chan Outcome {
	out := make(chan Outcome)
	jobs := make(chan types.IntervalKey)

	go func() {
		defer close(jobs)
		for _, key := range offers.Keys(book) {
			select {
			case jobs <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				select {
				case out <- r.clearOne(book, key, requirements):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// clearOne clears a single combination, converting a missing requirement
// entry into a recorded skip.
func (r *Runner) clearOne(book []types.Offer, key types.IntervalKey, requirements map[types.IntervalKey]types.ClearingRequirement) Outcome {
	requirement, ok := requirements[key]
	if !ok {
		return Outcome{Key: key, Err: fmt.Errorf("%w: %s period %d %s",
			ErrMissingRequirement, key.TradingDate, key.TradingPeriod, key.ReserveType)}
	}

	result, err := nrm.ClearNRM(offers.ByKey(book, key), requirement)
	return Outcome{Key: key, Result: result, Err: err}
}

// ClearAll runs the whole batch and collects the outcomes into a report.
// The report always carries both the result set and the list of skipped
// or failed combinations with their reasons; one never arrives without
// the other.
func (r *Runner) ClearAll(ctx context.Context, book []types.Offer, requirements map[types.IntervalKey]types.ClearingRequirement) *Report {
	report := &Report{}
	for outcome := range r.Stream(ctx, book, requirements) {
		if outcome.Err != nil {
			report.Skipped = append(report.Skipped, SkippedCombination{
				Key:    outcome.Key,
				Reason: outcome.Err.Error(),
			})
			continue
		}
		report.Results = append(report.Results, CombinationResult{
			Key:    outcome.Key,
			Result: outcome.Result,
		})
	}
	return report
}
