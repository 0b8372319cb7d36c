package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/batch"
	"github.com/gosuda/planboard/internal/board"
	"github.com/gosuda/planboard/internal/domain"
	"github.com/gosuda/planboard/internal/notify"
	"github.com/gosuda/planboard/internal/server/middleware"
	redisstore "github.com/gosuda/planboard/internal/store/redis"
)

const (
	readLimit    = 64 << 10
	writeTimeout = 10 * time.Second
	outboxSize   = 32
)

// session is one dashboard connection: its own reconciler, selection and
// outbox. Messages from the client are handled in order on the read loop.
type session struct {
	hub        *Hub
	conn       *websocket.Conn
	id         middleware.Identity
	projectID  uuid.UUID
	live       bool
	canMove    bool
	canArchive bool

	done <-chan struct{}
	out  chan ServerMessage
	rec  *board.Reconciler

	mu        sync.Mutex
	items     []domain.Task
	sel       *batch.Selection
	archiving bool

	emitMu  sync.Mutex
	lastRev uint64

	bulk sync.WaitGroup
}

func newSession(ctx context.Context, h *Hub, conn *websocket.Conn, id middleware.Identity, projectID uuid.UUID, items []domain.Task, live bool) *session {
	s := &session{
		hub:        h,
		conn:       conn,
		id:         id,
		projectID:  projectID,
		live:       live,
		canMove:    auth.Can(id.Role, auth.PermTaskMove),
		canArchive: auth.Can(id.Role, auth.PermTaskArchive),
		done:       ctx.Done(),
		out:        make(chan ServerMessage, outboxSize),
		items:      items,
		sel:        batch.NewSelection(batch.StatusEligible(domain.TaskStatusDone)),
	}
	s.rec = board.New(items, h.mutator,
		board.WithNotifier(s.sink()),
		board.WithInvalidator(board.InvalidatorFunc(s.invalidate)),
		board.WithOnChange(s.boardChanged),
	)
	return s
}

func (s *session) run(ctx context.Context, cancel context.CancelFunc, invalidations <-chan []byte) {
	defer s.close()

	s.boardChanged(s.rec.Snapshot())
	s.sendSelection()

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		return s.writeLoop(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return s.readLoop(ctx)
	})
	if invalidations != nil {
		g.Go(func() error {
			s.listen(ctx, invalidations)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Str("project_id", s.projectID.String()).Msg("websocket session ended")
	}
}

// close detaches the reconciler and waits for background work so that
// nothing outlives the connection.
func (s *session) close() {
	s.rec.Close()
	s.bulk.Wait()
	s.rec.Wait()
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ws.session.read: %w", err)
		}
		if typ != websocket.MessageText {
			s.sendError("binary messages are not supported")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("malformed message")
			continue
		}
		s.handle(ctx, msg)
	}
}

func (s *session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.Close(websocket.StatusNormalClosure, "connection closed")
			return nil
		case msg := <-s.out:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Str("type", msg.Type).Msg("websocket encode")
				continue
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err = s.conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				return fmt.Errorf("ws.session.write: %w", err)
			}
		}
	}
}

func (s *session) listen(ctx context.Context, invalidations <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-invalidations:
			if !ok {
				log.Warn().Str("project_id", s.projectID.String()).Msg("board invalidation channel closed")
				return
			}
			var inv redisstore.Invalidation
			if err := json.Unmarshal(payload, &inv); err != nil {
				log.Debug().Err(err).Msg("websocket: undecodable invalidation, refreshing anyway")
			}
			s.refresh(ctx)
		}
	}
}

func (s *session) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case MsgBeginDrag:
		if s.allowMove() {
			s.rec.BeginDrag(msg.TaskID, msg.Status, msg.Index)
			s.boardChanged(s.rec.Snapshot())
		}
	case MsgHover:
		if s.allowMove() {
			s.rec.Hover(msg.Status)
			s.boardChanged(s.rec.Snapshot())
		}
	case MsgDrop:
		if !s.allowMove() {
			return
		}
		if err := s.rec.DropOnto(ctx, msg.Status, msg.Index); err != nil {
			s.sendError(dropError(err))
			s.boardChanged(s.rec.Snapshot())
		}
	case MsgCancelDrag:
		s.rec.CancelDrag()
		s.boardChanged(s.rec.Snapshot())
	case MsgSelect:
		s.mu.Lock()
		s.sel.Add(msg.TaskIDs...)
		s.sel.Prune(s.items)
		s.mu.Unlock()
		s.sendSelection()
	case MsgDeselect:
		s.mu.Lock()
		s.sel.Remove(msg.TaskIDs...)
		s.mu.Unlock()
		s.sendSelection()
	case MsgSelectAll:
		s.mu.Lock()
		s.sel.SelectAll(s.items)
		s.mu.Unlock()
		s.sendSelection()
	case MsgDeselectAll:
		s.mu.Lock()
		s.sel.Clear()
		s.mu.Unlock()
		s.sendSelection()
	case MsgArchiveSelected:
		s.archiveSelected(ctx)
	case MsgRefresh:
		s.refresh(ctx)
	default:
		s.sendError("unknown message type: " + msg.Type)
	}
}

func (s *session) allowMove() bool {
	if !s.canMove {
		s.sendError("read-only: role " + s.id.Role + " cannot move tasks")
		return false
	}
	return true
}

func dropError(err error) string {
	switch {
	case errors.Is(err, board.ErrNoActiveDrag):
		return "no drag in progress"
	case errors.Is(err, board.ErrTaskNotFound):
		return "task is no longer on the board"
	case errors.Is(err, board.ErrUnknownColumn):
		return "unknown column"
	default:
		return "drop failed"
	}
}

func (s *session) archiveSelected(ctx context.Context) {
	if !s.canArchive {
		s.sendError("read-only: role " + s.id.Role + " cannot archive tasks")
		return
	}

	s.mu.Lock()
	if s.archiving {
		s.mu.Unlock()
		s.sendError("a bulk operation is already running")
		return
	}
	targets := s.sel.Targets(s.items)
	if len(targets) == 0 {
		s.mu.Unlock()
		s.sendError("nothing selected")
		return
	}
	s.archiving = true
	s.mu.Unlock()

	s.bulk.Add(1)
	go func() {
		defer s.bulk.Done()
		defer func() {
			s.mu.Lock()
			s.archiving = false
			s.mu.Unlock()
		}()
		s.runArchive(ctx, targets)
	}()
}

func (s *session) runArchive(ctx context.Context, targets []batch.Target) {
	runner := batch.NewRunner(batch.ArchiveTasks,
		batch.WithNotifier(notify.Multi{s.sink(), s.hub.team}),
		batch.WithInvalidator(board.InvalidatorFunc(s.invalidate)),
		batch.WithConcurrency(s.hub.concurrency),
	)

	started := time.Now()
	report, err := runner.Run(ctx, targets, s.hub.mutator.ArchiveTask)
	if err != nil {
		return
	}

	state := BatchReportState{Outcome: report.Outcome(), Summary: report.Summary(), Report: report}
	if s.hub.history != nil {
		run := report.Record(s.id.TenantID, s.projectID, s.id.UserID, started, time.Now())
		if err := s.hub.history.BatchRuns().Create(context.WithoutCancel(ctx), run); err != nil {
			log.Warn().Err(err).Str("project_id", s.projectID.String()).Msg("failed to record batch run")
		} else {
			state.RunID = &run.ID
		}
	}

	// Failed items stay selected so the user can retry them.
	s.mu.Lock()
	for _, res := range report.Results {
		if res.Success {
			s.sel.Remove(res.ItemID)
		}
	}
	s.mu.Unlock()

	s.send(ServerMessage{Type: MsgBatchReport, Data: state})
	s.sendSelection()
}

// invalidate evicts the cached task list. Without a live subscription the
// session refetches itself; otherwise the published invalidation triggers it.
func (s *session) invalidate(ctx context.Context) error {
	if err := s.hub.tasks.InvalidateProject(ctx, s.id.TenantID, s.projectID); err != nil {
		return fmt.Errorf("ws.session.invalidate: %w", err)
	}
	if s.live {
		return nil
	}
	select {
	case <-s.done:
		// Torn down; other viewers refetch through their own subscriptions.
	default:
		s.refresh(ctx)
	}
	return nil
}

func (s *session) refresh(ctx context.Context) {
	items, err := s.hub.tasks.Tasks(ctx, redisstore.Scope{TenantID: s.id.TenantID, UserID: s.id.UserID, ProjectID: s.projectID})
	if err != nil {
		log.Warn().Err(err).Str("project_id", s.projectID.String()).Msg("websocket refresh")
		s.sendError("failed to reload board")
		return
	}

	s.mu.Lock()
	s.items = items
	before := s.sel.Len()
	s.sel.Prune(items)
	pruned := s.sel.Len() != before
	s.mu.Unlock()

	s.rec.SetItems(items)
	if pruned {
		s.sendSelection()
	}
}

// boardChanged pushes b unless a newer board was already sent. Equal
// revisions are resent since drag state may have changed.
func (s *session) boardChanged(b board.Board) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if b.Revision() < s.lastRev {
		return
	}
	s.lastRev = b.Revision()

	state := BoardState{
		ProjectID: s.projectID,
		Revision:  b.Revision(),
		Columns:   b.Columns(),
		ReadOnly:  !s.canMove,
	}
	if pm, ok := s.rec.Drag(); ok {
		state.Drag = &pm
	}
	if hl, ok := s.rec.Highlight(); ok {
		state.Highlight = hl
	}
	s.send(ServerMessage{Type: MsgBoard, Data: state})
}

func (s *session) sendSelection() {
	s.mu.Lock()
	ids := s.sel.IDs()
	s.mu.Unlock()
	if ids == nil {
		ids = []uuid.UUID{}
	}
	s.send(ServerMessage{Type: MsgSelection, Data: SelectionState{TaskIDs: ids, Count: len(ids)}})
}

func (s *session) sendError(message string) {
	s.send(ServerMessage{Type: MsgError, Data: errorState{Message: message}})
}

func (s *session) sink() notify.Sink {
	return notify.Func(func(_ context.Context, n notify.Notification) {
		s.send(ServerMessage{Type: MsgNotification, Data: n})
	})
}

func (s *session) send(msg ServerMessage) {
	select {
	case s.out <- msg:
	case <-s.done:
	}
}
