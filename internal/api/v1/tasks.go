package v1

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/domain"
)

type GetTaskInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type GetTaskOutput struct {
	Body *domain.Task
}

type MoveTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Status string `json:"status" minLength:"1" doc:"Target board column"`
	}
}

type MoveTaskOutput struct {
	Body *domain.Task
}

func RegisterTaskRoutes(api huma.API, be Backend, tasks TaskReader) {
	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *GetTaskInput) (*GetTaskOutput, error) {
		if _, err := identity(ctx); err != nil {
			return nil, err
		}

		t, err := be.GetTask(ctx, input.ID)
		if err != nil {
			return nil, backendError(err, "task", "failed to get task")
		}

		return &GetTaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/status",
		Summary:     "Move a task to another board column",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *MoveTaskInput) (*MoveTaskOutput, error) {
		id, err := identity(ctx)
		if err != nil {
			return nil, err
		}
		if err := requirePermission(id, auth.PermTaskMove); err != nil {
			return nil, err
		}

		target := domain.TaskStatus(input.Body.Status)
		if !slices.Contains(domain.BoardStatuses, target) {
			return nil, huma.Error400BadRequest("unknown board column: " + input.Body.Status)
		}

		t, err := be.GetTask(ctx, input.ID)
		if err != nil {
			return nil, backendError(err, "task", "failed to get task")
		}
		if t.Status == target {
			return &MoveTaskOutput{Body: t}, nil
		}

		if err := be.UpdateTaskStatus(ctx, input.ID, target); err != nil {
			return nil, backendError(err, "task", "failed to update task status")
		}
		t.Status = target

		if err := tasks.InvalidateProject(ctx, id.TenantID, t.ProjectID); err != nil {
			log.Warn().Err(err).Str("project_id", t.ProjectID.String()).Msg("task list invalidation failed")
		}

		return &MoveTaskOutput{Body: t}, nil
	})
}
