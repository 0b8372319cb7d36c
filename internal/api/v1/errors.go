package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/backend"
	"github.com/gosuda/planboard/internal/domain"
	"github.com/gosuda/planboard/internal/server/middleware"
	redisstore "github.com/gosuda/planboard/internal/store/redis"
)

// backendError translates a backend client error into an HTTP error. what
// names the resource for not-found responses.
func backendError(err error, what, msg string) error {
	var be *backend.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(what + " not found")
	case errors.Is(err, domain.ErrUnauthorized):
		return huma.Error401Unauthorized("backend rejected credentials")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden("not allowed by backend")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(what + " was changed concurrently")
	case errors.As(err, &be):
		return huma.Error502BadGateway(be.Message)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

func identity(ctx context.Context) (middleware.Identity, error) {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return middleware.Identity{}, huma.Error403Forbidden("missing tenant context")
	}
	return id, nil
}

func scope(id middleware.Identity, projectID uuid.UUID) redisstore.Scope {
	return redisstore.Scope{TenantID: id.TenantID, UserID: id.UserID, ProjectID: projectID}
}

func requirePermission(id middleware.Identity, p auth.Permission) error {
	if !auth.Can(id.Role, p) {
		return huma.Error403Forbidden("role " + id.Role + " may not " + string(p))
	}
	return nil
}
