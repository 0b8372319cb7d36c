package v1_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/domain"
	"github.com/gosuda/planboard/internal/server/middleware"
	redisstore "github.com/gosuda/planboard/internal/store/redis"
)

// ---------------------------------------------------------------------------
// Context helpers: inject tenant/user/role into context for DoCtx
// ---------------------------------------------------------------------------

func roleCtx(tenantID, userID uuid.UUID, role string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyTenantID, tenantID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, role)
	return ctx
}

func memberCtx(tenantID uuid.UUID) context.Context {
	return roleCtx(tenantID, uuid.New(), domain.RoleMember)
}

func viewerCtx(tenantID uuid.UUID) context.Context {
	return roleCtx(tenantID, uuid.New(), domain.RoleViewer)
}

// ---------------------------------------------------------------------------
// Mock Backend
// ---------------------------------------------------------------------------

type mockBackend struct {
	loginFunc            func(ctx context.Context, tenantID uuid.UUID, email, password string) (*domain.Session, error)
	meFunc               func(ctx context.Context) (*domain.User, error)
	listProjectsFunc     func(ctx context.Context) ([]domain.Project, error)
	getProjectFunc       func(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	getTaskFunc          func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	updateTaskStatusFunc func(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error
	archiveTaskFunc      func(ctx context.Context, id uuid.UUID) error
}

func (m *mockBackend) Login(ctx context.Context, tenantID uuid.UUID, email, password string) (*domain.Session, error) {
	return m.loginFunc(ctx, tenantID, email, password)
}

func (m *mockBackend) Me(ctx context.Context) (*domain.User, error) {
	return m.meFunc(ctx)
}

func (m *mockBackend) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return m.listProjectsFunc(ctx)
}

func (m *mockBackend) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	return m.getProjectFunc(ctx, id)
}

func (m *mockBackend) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.getTaskFunc(ctx, id)
}

func (m *mockBackend) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error {
	return m.updateTaskStatusFunc(ctx, id, status)
}

func (m *mockBackend) ArchiveTask(ctx context.Context, id uuid.UUID) error {
	return m.archiveTaskFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock TaskReader
// ---------------------------------------------------------------------------

type mockTaskReader struct {
	tasksFunc func(ctx context.Context, s redisstore.Scope) ([]domain.Task, error)

	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (m *mockTaskReader) Tasks(ctx context.Context, s redisstore.Scope) ([]domain.Task, error) {
	return m.tasksFunc(ctx, s)
}

func (m *mockTaskReader) InvalidateProject(_ context.Context, _, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, projectID)
	return nil
}

func (m *mockTaskReader) invalidations() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.invalidated...)
}

func staticTasks(tasks ...domain.Task) *mockTaskReader {
	return &mockTaskReader{
		tasksFunc: func(context.Context, redisstore.Scope) ([]domain.Task, error) {
			return tasks, nil
		},
	}
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	batchRuns domain.BatchRunRepository
}

func (m *mockDataStore) BatchRuns() domain.BatchRunRepository { return m.batchRuns }

type mockBatchRunRepo struct {
	createFunc        func(ctx context.Context, run *domain.BatchRun) error
	getByIDFunc       func(ctx context.Context, tenantID, id uuid.UUID) (*domain.BatchRun, error)
	listByProjectFunc func(ctx context.Context, tenantID, projectID uuid.UUID, limit int) ([]*domain.BatchRun, error)
}

func (m *mockBatchRunRepo) Create(ctx context.Context, run *domain.BatchRun) error {
	return m.createFunc(ctx, run)
}

func (m *mockBatchRunRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.BatchRun, error) {
	return m.getByIDFunc(ctx, tenantID, id)
}

func (m *mockBatchRunRepo) ListByProject(ctx context.Context, tenantID, projectID uuid.UUID, limit int) ([]*domain.BatchRun, error) {
	return m.listByProjectFunc(ctx, tenantID, projectID, limit)
}

func task(projectID uuid.UUID, title string, status domain.TaskStatus) domain.Task {
	return domain.Task{ID: uuid.New(), ProjectID: projectID, Title: title, Status: status}
}
