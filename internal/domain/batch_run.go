package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BatchItemResult is the stored outcome of one item of a bulk operation.
type BatchItemResult struct {
	ItemID    uuid.UUID `json:"item_id"`
	ItemLabel string    `json:"item_label"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// BatchRun records a settled bulk operation for the project history view.
type BatchRun struct {
	ID          uuid.UUID         `json:"id"`
	TenantID    uuid.UUID         `json:"tenant_id"`
	ProjectID   uuid.UUID         `json:"project_id"`
	Operation   string            `json:"operation"`
	RequestedBy uuid.UUID         `json:"requested_by"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Results     []BatchItemResult `json:"results"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

type BatchRunRepository interface {
	Create(ctx context.Context, run *BatchRun) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*BatchRun, error)
	ListByProject(ctx context.Context, tenantID, projectID uuid.UUID, limit int) ([]*BatchRun, error)
}
