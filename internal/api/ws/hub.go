package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/planboard/internal/domain"
	"github.com/gosuda/planboard/internal/notify"
	"github.com/gosuda/planboard/internal/server/middleware"
	redisstore "github.com/gosuda/planboard/internal/store/redis"
)

// TaskReader is the authoritative task list with invalidation.
// *redis.TaskCache satisfies this interface.
type TaskReader interface {
	Tasks(ctx context.Context, s redisstore.Scope) ([]domain.Task, error)
	InvalidateProject(ctx context.Context, tenantID, projectID uuid.UUID) error
}

// TaskMutator performs remote task changes. *backend.Client satisfies it.
type TaskMutator interface {
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error
	ArchiveTask(ctx context.Context, id uuid.UUID) error
}

// HistoryStore records settled bulk runs. *postgres.Store satisfies it.
type HistoryStore interface {
	BatchRuns() domain.BatchRunRepository
}

type HubOption func(*Hub)

// WithHistory records bulk runs started from a board session.
func WithHistory(store HistoryStore) HubOption {
	return func(h *Hub) { h.history = store }
}

// WithTeamNotifier also delivers bulk run summaries to s, e.g. Slack.
func WithTeamNotifier(s notify.Sink) HubOption {
	return func(h *Hub) { h.team = s }
}

// WithBatchConcurrency bounds in-flight item calls of a bulk run.
func WithBatchConcurrency(n int) HubOption {
	return func(h *Hub) { h.concurrency = n }
}

// WithOriginPatterns allows cross-origin dashboards to connect.
func WithOriginPatterns(patterns []string) HubOption {
	return func(h *Hub) { h.origins = patterns }
}

// Hub serves live board sessions. Board invalidations arrive over Redis
// pub/sub so every session of a project refetches after any change.
type Hub struct {
	pubsub      *redisstore.PubSub
	tasks       TaskReader
	mutator     TaskMutator
	history     HistoryStore
	team        notify.Sink
	concurrency int
	origins     []string
}

// NewHub creates a new WebSocket hub. pubsub may be nil, in which case
// sessions only refresh after their own changes or on request.
func NewHub(pubsub *redisstore.PubSub, tasks TaskReader, mutator TaskMutator, opts ...HubOption) *Hub {
	h := &Hub{pubsub: pubsub, tasks: tasks, mutator: mutator}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeBoard handles WebSocket connections for one project board.
// Subscribes to Redis channel "board:<tenantID>:<projectID>" and refetches
// the task list on every message.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusForbidden)
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	scope := redisstore.Scope{TenantID: id.TenantID, UserID: id.UserID, ProjectID: projectID}
	items, err := h.tasks.Tasks(ctx, scope)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, domain.ErrUnauthorized):
			status = http.StatusUnauthorized
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	var messages <-chan []byte
	if h.pubsub != nil {
		msgs, cleanup, subErr := h.pubsub.Subscribe(ctx, redisstore.BoardChannel(id.TenantID, projectID))
		if subErr != nil {
			log.Error().Err(subErr).Msg("websocket subscribe")
			http.Error(w, "subscribe failed", http.StatusServiceUnavailable)
			return
		}
		defer cleanup()
		messages = msgs
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	s := newSession(ctx, h, conn, id, projectID, items, messages != nil)
	s.run(ctx, cancel, messages)
}
