package redis_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/domain"
	redisstore "github.com/gosuda/planboard/internal/store/redis"
)

type mockTaskSource struct {
	listFunc func(ctx context.Context, projectID uuid.UUID) ([]domain.Task, error)
	calls    atomic.Int32
}

func (m *mockTaskSource) ListTasks(ctx context.Context, projectID uuid.UUID) ([]domain.Task, error) {
	m.calls.Add(1)
	if m.listFunc == nil {
		return nil, errors.New("unexpected ListTasks call")
	}
	return m.listFunc(ctx, projectID)
}

func fixedTasks(projectID uuid.UUID) []domain.Task {
	return []domain.Task{
		{ID: uuid.New(), ProjectID: projectID, Title: "write code", Status: domain.TaskStatusTodo},
		{ID: uuid.New(), ProjectID: projectID, Title: "review code", Status: domain.TaskStatusInReview},
	}
}

func TestTaskCache_MissThenHit(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	scope := redisstore.Scope{TenantID: uuid.New(), UserID: uuid.New(), ProjectID: uuid.New()}
	want := fixedTasks(scope.ProjectID)

	src := &mockTaskSource{listFunc: func(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
		assert.Equal(t, scope.ProjectID, projectID)
		return want, nil
	}}
	cache := redisstore.NewTaskCache(src, ps, time.Minute)

	got, err := cache.Tasks(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = cache.Tasks(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int32(1), src.calls.Load(), "second read is served from cache")
}

func TestTaskCache_PerUserViews(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	src := &mockTaskSource{listFunc: func(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
		return fixedTasks(projectID), nil
	}}
	cache := redisstore.NewTaskCache(src, ps, time.Minute)

	tenantID, projectID := uuid.New(), uuid.New()
	_, err := cache.Tasks(context.Background(), redisstore.Scope{TenantID: tenantID, UserID: uuid.New(), ProjectID: projectID})
	require.NoError(t, err)
	_, err = cache.Tasks(context.Background(), redisstore.Scope{TenantID: tenantID, UserID: uuid.New(), ProjectID: projectID})
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestTaskCache_InvalidateProject(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	scope := redisstore.Scope{TenantID: uuid.New(), UserID: uuid.New(), ProjectID: uuid.New()}
	src := &mockTaskSource{listFunc: func(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
		return fixedTasks(projectID), nil
	}}
	cache := redisstore.NewTaskCache(src, ps, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, cleanup, err := ps.Subscribe(ctx, redisstore.BoardChannel(scope.TenantID, scope.ProjectID))
	require.NoError(t, err)
	defer cleanup()

	_, err = cache.Tasks(ctx, scope)
	require.NoError(t, err)

	require.NoError(t, cache.InvalidateProject(ctx, scope.TenantID, scope.ProjectID))

	select {
	case msg := <-ch:
		var inv redisstore.Invalidation
		require.NoError(t, json.Unmarshal(msg, &inv))
		assert.Equal(t, scope.ProjectID, inv.ProjectID)
		assert.False(t, inv.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for invalidation")
	}

	_, err = cache.Tasks(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load(), "evicted entry is refetched")
}

func TestTaskCache_FetchInFlightDuringInvalidation(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	scope := redisstore.Scope{TenantID: uuid.New(), UserID: uuid.New(), ProjectID: uuid.New()}
	taskID := uuid.New()

	var status atomic.Value
	status.Store(domain.TaskStatusTodo)
	entered := make(chan struct{})
	release := make(chan struct{})
	var first atomic.Bool

	src := &mockTaskSource{listFunc: func(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
		// Snapshot before blocking, like a response already on the wire.
		tasks := []domain.Task{{ID: taskID, ProjectID: projectID, Title: "ship", Status: status.Load().(domain.TaskStatus)}}
		if first.CompareAndSwap(false, true) {
			close(entered)
			<-release
		}
		return tasks, nil
	}}
	cache := redisstore.NewTaskCache(src, ps, time.Minute)
	ctx := context.Background()

	done := make(chan []domain.Task, 1)
	go func() {
		tasks, err := cache.Tasks(ctx, scope)
		assert.NoError(t, err)
		done <- tasks
	}()

	<-entered
	status.Store(domain.TaskStatusDone)
	require.NoError(t, cache.InvalidateProject(ctx, scope.TenantID, scope.ProjectID))
	close(release)

	stale := <-done
	require.Len(t, stale, 1)
	assert.Equal(t, domain.TaskStatusTodo, stale[0].Status, "in-flight reader still sees its own fetch")

	fresh, err := cache.Tasks(ctx, scope)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, domain.TaskStatusDone, fresh[0].Status, "list fetched before invalidation is not cached")
	assert.Equal(t, int32(2), src.calls.Load())

	again, err := cache.Tasks(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, fresh, again)
	assert.Equal(t, int32(2), src.calls.Load(), "fresh list is cached")
}

func TestTaskCache_SourceError(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	src := &mockTaskSource{listFunc: func(context.Context, uuid.UUID) ([]domain.Task, error) {
		return nil, domain.ErrForbidden
	}}
	cache := redisstore.NewTaskCache(src, ps, time.Minute)

	_, err := cache.Tasks(context.Background(), redisstore.Scope{ProjectID: uuid.New()})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTaskCache_CorruptEntryFallsBack(t *testing.T) {
	t.Parallel()

	ps, mr := newPubSub(t)
	scope := redisstore.Scope{TenantID: uuid.New(), UserID: uuid.New(), ProjectID: uuid.New()}
	src := &mockTaskSource{listFunc: func(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
		return fixedTasks(projectID), nil
	}}
	cache := redisstore.NewTaskCache(src, ps, time.Minute)

	key := "cache:tasks:" + scope.TenantID.String() + ":" + scope.ProjectID.String() + ":" + scope.UserID.String()
	require.NoError(t, mr.Set(key, "{not json"))

	got, err := cache.Tasks(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestTaskCache_RedisDownStillServes(t *testing.T) {
	t.Parallel()

	ps, mr := newPubSub(t)
	src := &mockTaskSource{listFunc: func(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
		return fixedTasks(projectID), nil
	}}
	cache := redisstore.NewTaskCache(src, ps, time.Minute)
	mr.Close()

	got, err := cache.Tasks(context.Background(), redisstore.Scope{ProjectID: uuid.New()})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTaskCache_NilPubSub(t *testing.T) {
	t.Parallel()

	src := &mockTaskSource{listFunc: func(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
		return fixedTasks(projectID), nil
	}}
	cache := redisstore.NewTaskCache(src, nil, time.Minute)

	_, err := cache.Tasks(context.Background(), redisstore.Scope{ProjectID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, cache.InvalidateProject(context.Background(), uuid.New(), uuid.New()))
}

// ---------------------------------------------------------------------------
// APIKeyCache
// ---------------------------------------------------------------------------

type mockKeyVerifier struct {
	verifyFunc func(ctx context.Context, key string) (*domain.APIKeyIdentity, error)
	calls      atomic.Int32
}

func (m *mockKeyVerifier) VerifyAPIKey(ctx context.Context, key string) (*domain.APIKeyIdentity, error) {
	m.calls.Add(1)
	return m.verifyFunc(ctx, key)
}

func TestAPIKeyCache(t *testing.T) {
	t.Parallel()

	const goodKey = "pb_0123456789abcdef"
	identity := &domain.APIKeyIdentity{KeyID: uuid.New(), TenantID: uuid.New(), UserID: uuid.New(), Role: domain.RoleMember}

	newVerifier := func() *mockKeyVerifier {
		return &mockKeyVerifier{verifyFunc: func(_ context.Context, key string) (*domain.APIKeyIdentity, error) {
			if key != goodKey {
				return nil, auth.ErrInvalidAPIKey
			}
			return identity, nil
		}}
	}

	t.Run("caches successful verification", func(t *testing.T) {
		t.Parallel()

		ps, mr := newPubSub(t)
		src := newVerifier()
		cache := redisstore.NewAPIKeyCache(src, ps, time.Minute)

		for range 3 {
			got, err := cache.VerifyAPIKey(context.Background(), goodKey)
			require.NoError(t, err)
			assert.Equal(t, identity.KeyID, got.KeyID)
		}
		assert.Equal(t, int32(1), src.calls.Load())

		for _, k := range mr.Keys() {
			assert.NotContains(t, k, goodKey, "raw key must not appear in redis")
		}
	})

	t.Run("rejections are not cached", func(t *testing.T) {
		t.Parallel()

		ps, _ := newPubSub(t)
		src := newVerifier()
		cache := redisstore.NewAPIKeyCache(src, ps, time.Minute)

		for range 2 {
			_, err := cache.VerifyAPIKey(context.Background(), "pb_wrongwrongwrong")
			require.ErrorIs(t, err, auth.ErrInvalidAPIKey)
		}
		assert.Equal(t, int32(2), src.calls.Load())
	})

	t.Run("malformed key skips backend", func(t *testing.T) {
		t.Parallel()

		ps, _ := newPubSub(t)
		src := newVerifier()
		cache := redisstore.NewAPIKeyCache(src, ps, time.Minute)

		_, err := cache.VerifyAPIKey(context.Background(), "Bearer xyz")
		require.ErrorIs(t, err, auth.ErrInvalidAPIKey)
		assert.Equal(t, int32(0), src.calls.Load())
	})

	t.Run("expired identity rejected", func(t *testing.T) {
		t.Parallel()

		past := time.Now().Add(-time.Hour)
		ps, _ := newPubSub(t)
		src := &mockKeyVerifier{verifyFunc: func(context.Context, string) (*domain.APIKeyIdentity, error) {
			return &domain.APIKeyIdentity{KeyID: uuid.New(), Expires: &past}, nil
		}}
		cache := redisstore.NewAPIKeyCache(src, ps, time.Minute)

		_, err := cache.VerifyAPIKey(context.Background(), goodKey)
		require.ErrorIs(t, err, auth.ErrInvalidAPIKey)
	})
}
