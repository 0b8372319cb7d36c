package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/planboard/internal/domain"
)

var errStaleGeneration = errors.New("redis.TaskCache: list fetched before invalidation")

// TaskSource is the authoritative task list, normally the backend client.
type TaskSource interface {
	ListTasks(ctx context.Context, projectID uuid.UUID) ([]domain.Task, error)
}

// Scope identifies whose view of which project is being read. Task lists are
// cached per user because the backend filters them by membership.
type Scope struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ProjectID uuid.UUID
}

// Invalidation is published on the board channel after a project's task
// list changed.
type Invalidation struct {
	ProjectID uuid.UUID `json:"project_id"`
	At        time.Time `json:"at"`
}

// generationTTL bounds how long an idle project's generation counter lives.
// It must exceed any realistic ListTasks latency by far.
const generationTTL = 24 * time.Hour

// TaskCache is a read-through cache of project task lists. Redis failures
// degrade to direct reads and never fail a request. Each project carries a
// generation counter bumped on invalidation; a list fetched under an older
// generation is never written back.
type TaskCache struct {
	src TaskSource
	ps  *PubSub
	ttl time.Duration
}

func NewTaskCache(src TaskSource, ps *PubSub, ttl time.Duration) *TaskCache {
	if src == nil {
		panic("redis.NewTaskCache: task source is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &TaskCache{src: src, ps: ps, ttl: ttl}
}

// Tasks returns the task list of s.ProjectID, reading through to the source
// on a miss.
func (c *TaskCache) Tasks(ctx context.Context, s Scope) ([]domain.Task, error) {
	if tasks, ok := c.load(ctx, s); ok {
		return tasks, nil
	}

	gen, cacheable := c.generation(ctx, s)

	tasks, err := c.src.ListTasks(ctx, s.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("redis.TaskCache.Tasks: %w", err)
	}

	if cacheable {
		c.store(ctx, s, gen, tasks)
	}
	return tasks, nil
}

// InvalidateProject evicts every cached view of a project and notifies
// board subscribers.
func (c *TaskCache) InvalidateProject(ctx context.Context, tenantID, projectID uuid.UUID) error {
	if c.ps == nil {
		return nil
	}
	client := c.ps.client

	// Bump first so fetches still in flight cannot write back their lists.
	gen := generationKey(tenantID, projectID)
	if _, err := client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, gen)
		p.Expire(ctx, gen, generationTTL)
		return nil
	}); err != nil {
		log.Warn().Err(err).Str("project_id", projectID.String()).Msg("redis.TaskCache: bump generation")
	}

	idx := indexKey(tenantID, projectID)
	keys, err := client.SMembers(ctx, idx).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("project_id", projectID.String()).Msg("redis.TaskCache: read index")
	}
	if err := client.Del(ctx, append(keys, idx)...).Err(); err != nil {
		log.Warn().Err(err).Str("project_id", projectID.String()).Msg("redis.TaskCache: evict")
	}

	payload, err := json.Marshal(Invalidation{ProjectID: projectID, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("redis.TaskCache.InvalidateProject: %w", err)
	}
	if err := c.ps.Publish(ctx, BoardChannel(tenantID, projectID), payload); err != nil {
		return fmt.Errorf("redis.TaskCache.InvalidateProject: %w", err)
	}
	return nil
}

func (c *TaskCache) load(ctx context.Context, s Scope) ([]domain.Task, bool) {
	if c.ps == nil || c.ttl == 0 {
		return nil, false
	}
	client := c.ps.client

	key := tasksKey(s)
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			_ = client.Del(ctx, key).Err()
		}
		return nil, false
	}

	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = client.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

// generation reads the project's current generation. A missing counter is
// generation "". The second result is false when the list must not be cached.
func (c *TaskCache) generation(ctx context.Context, s Scope) (string, bool) {
	if c.ps == nil || c.ttl == 0 {
		return "", false
	}
	gen, err := c.ps.client.Get(ctx, generationKey(s.TenantID, s.ProjectID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Debug().Err(err).Str("project_id", s.ProjectID.String()).Msg("redis.TaskCache: read generation")
		return "", false
	}
	return gen, true
}

// store writes tasks only while the project is still at generation gen.
func (c *TaskCache) store(ctx context.Context, s Scope, gen string, tasks []domain.Task) {
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}

	key := tasksKey(s)
	idx := indexKey(s.TenantID, s.ProjectID)
	genKey := generationKey(s.TenantID, s.ProjectID)

	err = c.ps.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, c.ttl)
			p.SAdd(ctx, idx, key)
			p.Expire(ctx, idx, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis.TaskCache: store skipped")
	}
}

func tasksKey(s Scope) string {
	return "cache:tasks:" + s.TenantID.String() + ":" + s.ProjectID.String() + ":" + s.UserID.String()
}

func indexKey(tenantID, projectID uuid.UUID) string {
	return "cache:tasks-idx:" + tenantID.String() + ":" + projectID.String()
}

func generationKey(tenantID, projectID uuid.UUID) string {
	return "cache:tasks-gen:" + tenantID.String() + ":" + projectID.String()
}
