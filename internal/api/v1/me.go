package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/domain"
)

type MeOutput struct {
	Body struct {
		User        *domain.User      `json:"user"`
		Role        string            `json:"role"`
		Permissions []auth.Permission `json:"permissions"`
	}
}

func RegisterMeRoutes(api huma.API, be Backend) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user with role permissions",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, _ *struct{}) (*MeOutput, error) {
		id, err := identity(ctx)
		if err != nil {
			return nil, err
		}

		user, err := be.Me(ctx)
		if err != nil {
			return nil, backendError(err, "user", "failed to load user")
		}

		role := id.Role
		if role == "" {
			role = user.Role
		}

		out := &MeOutput{}
		out.Body.User = user
		out.Body.Role = role
		out.Body.Permissions = auth.PermissionsFor(role)
		if out.Body.Permissions == nil {
			out.Body.Permissions = []auth.Permission{}
		}
		return out, nil
	})
}
