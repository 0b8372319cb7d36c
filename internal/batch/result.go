package batch

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/domain"
)

// Result is the outcome of one submitted item.
type Result struct {
	ItemID    uuid.UUID `json:"item_id"`
	ItemLabel string    `json:"item_label"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

func succeeded(t Target) Result {
	return Result{ItemID: t.ID, ItemLabel: t.Label, Success: true}
}

func failed(t Target, err error) Result {
	return Result{ItemID: t.ID, ItemLabel: t.Label, Error: err.Error()}
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// Report aggregates the results of one run. Results follow input order,
// one entry per distinct submitted id.
type Report struct {
	Operation string   `json:"operation"`
	Results   []Result `json:"results"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
}

func newReport(operation string, results []Result) *Report {
	r := &Report{Operation: operation, Results: results}
	for _, res := range results {
		if res.Success {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	return r
}

func (r *Report) Outcome() Outcome {
	switch {
	case r.Failed == 0:
		return OutcomeSuccess
	case r.Succeeded == 0:
		return OutcomeFailure
	default:
		return OutcomePartial
	}
}

// Summary is the user-facing one-line description of the run.
func (r *Report) Summary() string {
	switch r.Outcome() {
	case OutcomeSuccess:
		return fmt.Sprintf("%s: all %d succeeded", r.Operation, r.Succeeded)
	case OutcomeFailure:
		return fmt.Sprintf("%s: all %d failed", r.Operation, r.Failed)
	default:
		return fmt.Sprintf("%s: %d succeeded, %d failed", r.Operation, r.Succeeded, r.Failed)
	}
}

// Result returns the entry for id.
func (r *Report) Result(id uuid.UUID) (Result, bool) {
	for _, res := range r.Results {
		if res.ItemID == id {
			return res, true
		}
	}
	return Result{}, false
}

// FailedIDs lists the ids that did not succeed, in input order.
func (r *Report) FailedIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, r.Failed)
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res.ItemID)
		}
	}
	return out
}

// Record converts the report into a history entry.
func (r *Report) Record(tenantID, projectID, requestedBy uuid.UUID, started, finished time.Time) *domain.BatchRun {
	results := make([]domain.BatchItemResult, len(r.Results))
	for i, res := range r.Results {
		results[i] = domain.BatchItemResult(res)
	}
	return &domain.BatchRun{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ProjectID:   projectID,
		Operation:   r.Operation,
		RequestedBy: requestedBy,
		Succeeded:   r.Succeeded,
		Failed:      r.Failed,
		Results:     results,
		StartedAt:   started,
		FinishedAt:  finished,
	}
}
