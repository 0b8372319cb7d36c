package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/domain"
)

type ListProjectsOutput struct {
	Body []domain.Project
}

type GetProjectInput struct {
	ID uuid.UUID `path:"id" doc:"Project ID"`
}

type GetProjectOutput struct {
	Body *domain.Project
}

// RegisterProjectRoutes exposes read access to projects. Project writes go
// through the backend proxy.
func RegisterProjectRoutes(api huma.API, be Backend) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects visible to the caller",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *struct{}) (*ListProjectsOutput, error) {
		if _, err := identity(ctx); err != nil {
			return nil, err
		}

		projects, err := be.ListProjects(ctx)
		if err != nil {
			return nil, backendError(err, "projects", "failed to list projects")
		}
		if projects == nil {
			projects = []domain.Project{}
		}

		return &ListProjectsOutput{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project by ID",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *GetProjectInput) (*GetProjectOutput, error) {
		if _, err := identity(ctx); err != nil {
			return nil, err
		}

		p, err := be.GetProject(ctx, input.ID)
		if err != nil {
			return nil, backendError(err, "project", "failed to get project")
		}

		return &GetProjectOutput{Body: p}, nil
	})
}
