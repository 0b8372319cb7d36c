package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/board"
	"github.com/gosuda/planboard/internal/domain"
)

type GetBoardInput struct {
	ProjectID uuid.UUID `path:"projectID" doc:"Project ID"`
}

type GetBoardOutput struct {
	Body struct {
		ProjectID uuid.UUID      `json:"project_id"`
		Columns   []board.Column `json:"columns"`
	}
}

func RegisterBoardRoutes(api huma.API, tasks TaskReader) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{projectID}",
		Summary:     "Get kanban board for a project",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		id, err := identity(ctx)
		if err != nil {
			return nil, err
		}

		items, err := tasks.Tasks(ctx, scope(id, input.ProjectID))
		if err != nil {
			return nil, backendError(err, "project", "failed to list tasks")
		}

		out := &GetBoardOutput{}
		out.Body.ProjectID = input.ProjectID
		out.Body.Columns = board.Build(domain.BoardStatuses, items).Columns()
		return out, nil
	})
}
