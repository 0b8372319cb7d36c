package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/domain"
	redisstore "github.com/gosuda/planboard/internal/store/redis"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	BatchRuns() domain.BatchRunRepository
}

// Backend abstracts the remote REST API for handler testing.
// *backend.Client satisfies this interface.
type Backend interface {
	Login(ctx context.Context, tenantID uuid.UUID, email, password string) (*domain.Session, error)
	Me(ctx context.Context) (*domain.User, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error
	ArchiveTask(ctx context.Context, id uuid.UUID) error
}

// TaskReader is the authoritative task list with invalidation.
// *redis.TaskCache satisfies this interface.
type TaskReader interface {
	Tasks(ctx context.Context, s redisstore.Scope) ([]domain.Task, error)
	InvalidateProject(ctx context.Context, tenantID, projectID uuid.UUID) error
}
