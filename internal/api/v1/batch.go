package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/batch"
	"github.com/gosuda/planboard/internal/domain"
	"github.com/gosuda/planboard/internal/notify"
)

// BatchOptions configures the bulk endpoints.
type BatchOptions struct {
	Notifier    notify.Sink
	Concurrency int
}

type BulkArchiveInput struct {
	ProjectID uuid.UUID `path:"projectID" doc:"Project ID"`
	Body      struct {
		TaskIDs []uuid.UUID `json:"task_ids,omitempty" doc:"Tasks to archive; empty archives every DONE task"`
	}
}

type BulkArchiveOutput struct {
	Body struct {
		RunID   *uuid.UUID    `json:"run_id,omitempty"`
		Outcome batch.Outcome `json:"outcome"`
		Summary string        `json:"summary"`
		Skipped []uuid.UUID   `json:"skipped"`
		Report  *batch.Report `json:"report"`
	}
}

type ListBatchRunsInput struct {
	ProjectID uuid.UUID `path:"projectID" doc:"Project ID"`
	Limit     int       `query:"limit" minimum:"0" maximum:"100" doc:"Maximum runs to return (default 20)"`
}

type ListBatchRunsOutput struct {
	Body []*domain.BatchRun
}

type GetBatchRunInput struct {
	ID uuid.UUID `path:"id" doc:"Batch run ID"`
}

type GetBatchRunOutput struct {
	Body *domain.BatchRun
}

type projectInvalidator struct {
	tasks     TaskReader
	tenantID  uuid.UUID
	projectID uuid.UUID
}

func (p projectInvalidator) Invalidate(ctx context.Context) error {
	return p.tasks.InvalidateProject(ctx, p.tenantID, p.projectID)
}

// RegisterBatchRoutes registers bulk operations and their history. store may
// be nil, in which case runs are not recorded and history is unavailable.
func RegisterBatchRoutes(api huma.API, be Backend, tasks TaskReader, store DataStore, opts BatchOptions) {
	huma.Register(api, huma.Operation{
		OperationID: "bulk-archive-tasks",
		Method:      http.MethodPost,
		Path:        "/projects/{projectID}/tasks/bulk-archive",
		Summary:     "Archive many DONE tasks at once",
		Tags:        []string{"Batch"},
	}, func(ctx context.Context, input *BulkArchiveInput) (*BulkArchiveOutput, error) {
		id, err := identity(ctx)
		if err != nil {
			return nil, err
		}
		if err := requirePermission(id, auth.PermTaskArchive); err != nil {
			return nil, err
		}

		items, err := tasks.Tasks(ctx, scope(id, input.ProjectID))
		if err != nil {
			return nil, backendError(err, "project", "failed to list tasks")
		}

		sel := batch.NewSelection(batch.StatusEligible(domain.TaskStatusDone))
		if len(input.Body.TaskIDs) == 0 {
			sel.SelectAll(items)
		} else {
			sel.Add(input.Body.TaskIDs...)
		}
		requested := sel.IDs()
		sel.Prune(items)

		skipped := make([]uuid.UUID, 0)
		for _, tid := range requested {
			if !sel.Contains(tid) {
				skipped = append(skipped, tid)
			}
		}

		runner := batch.NewRunner(batch.ArchiveTasks,
			batch.WithNotifier(opts.Notifier),
			batch.WithInvalidator(projectInvalidator{tasks: tasks, tenantID: id.TenantID, projectID: input.ProjectID}),
			batch.WithConcurrency(opts.Concurrency),
		)

		started := time.Now()
		report, err := runner.Run(ctx, sel.Targets(items), be.ArchiveTask)
		if err != nil {
			if errors.Is(err, batch.ErrEmptySelection) {
				return nil, huma.Error400BadRequest("no archivable tasks selected")
			}
			return nil, huma.Error500InternalServerError("bulk archive failed", err)
		}

		out := &BulkArchiveOutput{}
		out.Body.Report = report
		out.Body.Outcome = report.Outcome()
		out.Body.Summary = report.Summary()
		out.Body.Skipped = skipped

		if store != nil {
			run := report.Record(id.TenantID, input.ProjectID, id.UserID, started, time.Now())
			// The archives already happened; a client hanging up must not lose the record.
			if err := store.BatchRuns().Create(context.WithoutCancel(ctx), run); err != nil {
				log.Warn().Err(err).Str("project_id", input.ProjectID.String()).Msg("failed to record batch run")
			} else {
				out.Body.RunID = &run.ID
			}
		}

		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-batch-runs",
		Method:      http.MethodGet,
		Path:        "/projects/{projectID}/batch-runs",
		Summary:     "List recent bulk operations of a project",
		Tags:        []string{"Batch"},
	}, func(ctx context.Context, input *ListBatchRunsInput) (*ListBatchRunsOutput, error) {
		id, err := identity(ctx)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, huma.Error503ServiceUnavailable("batch history is not configured")
		}

		limit := input.Limit
		if limit == 0 {
			limit = 20
		}

		runs, err := store.BatchRuns().ListByProject(ctx, id.TenantID, input.ProjectID, limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list batch runs", err)
		}
		if runs == nil {
			runs = []*domain.BatchRun{}
		}

		return &ListBatchRunsOutput{Body: runs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-batch-run",
		Method:      http.MethodGet,
		Path:        "/batch-runs/{id}",
		Summary:     "Get one bulk operation with per-item results",
		Tags:        []string{"Batch"},
	}, func(ctx context.Context, input *GetBatchRunInput) (*GetBatchRunOutput, error) {
		id, err := identity(ctx)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, huma.Error503ServiceUnavailable("batch history is not configured")
		}

		run, err := store.BatchRuns().GetByID(ctx, id.TenantID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("batch run not found")
			}
			return nil, huma.Error500InternalServerError("failed to get batch run", err)
		}

		return &GetBatchRunOutput{Body: run}, nil
	})
}
