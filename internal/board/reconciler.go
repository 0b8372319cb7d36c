package board

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/planboard/internal/domain"
	"github.com/gosuda/planboard/internal/notify"
)

// StatusUpdater performs the remote status change for a single task.
// It is called at most once per cross-column drop and never retried.
type StatusUpdater interface {
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error
}

// Invalidator asks the authoritative item source to refetch.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type InvalidatorFunc func(ctx context.Context) error

func (f InvalidatorFunc) Invalidate(ctx context.Context) error { return f(ctx) }

// PendingMove records the drag currently in progress.
type PendingMove struct {
	TaskID       uuid.UUID         `json:"task_id"`
	SourceStatus domain.TaskStatus `json:"source_status"`
	SourceIndex  int               `json:"source_index"`
}

type Option func(*Reconciler)

// WithNotifier sets the sink for move results. A nil sink keeps the default.
func WithNotifier(s notify.Sink) Option {
	return func(r *Reconciler) {
		if s != nil {
			r.notifier = s
		}
	}
}

func WithInvalidator(inv Invalidator) Option {
	return func(r *Reconciler) { r.invalidator = inv }
}

// WithStatusOrder overrides the column order (domain.BoardStatuses by default).
func WithStatusOrder(order []domain.TaskStatus) Option {
	return func(r *Reconciler) { r.order = slices.Clone(order) }
}

// WithOnChange registers a callback invoked with every newly published board.
// It runs outside the reconciler lock and may be called from the goroutine
// that settles a remote update; callers should use Board.Revision to drop
// snapshots that arrive out of order.
func WithOnChange(fn func(Board)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

// Reconciler owns the optimistic board for one viewer. The authoritative task
// list is only ever replaced through SetItems, never patched.
type Reconciler struct {
	updater     StatusUpdater
	notifier    notify.Sink
	invalidator Invalidator
	order       []domain.TaskStatus
	onChange    func(Board)

	mu            sync.Mutex
	authoritative []domain.Task
	board         Board
	revision      uint64
	pending       *PendingMove
	highlight     *domain.TaskStatus
	closed        bool

	inflight sync.WaitGroup
}

func New(items []domain.Task, updater StatusUpdater, opts ...Option) *Reconciler {
	r := &Reconciler{
		updater:  updater,
		notifier: notify.Discard,
		order:    slices.Clone(domain.BoardStatuses),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.authoritative = slices.Clone(items)
	r.publishLocked(Build(r.order, r.authoritative))
	return r
}

// Snapshot returns the board currently shown to the viewer.
func (r *Reconciler) Snapshot() Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.board
}

// Drag returns the pending move, if any.
func (r *Reconciler) Drag() (PendingMove, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return PendingMove{}, false
	}
	return *r.pending, true
}

// Highlight returns the column currently highlighted as a drop target.
func (r *Reconciler) Highlight() (domain.TaskStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.highlight == nil {
		return "", false
	}
	return *r.highlight, true
}

// SetItems replaces the authoritative list and rebuilds the board from it,
// discarding any local ordering that was not confirmed.
func (r *Reconciler) SetItems(items []domain.Task) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.authoritative = slices.Clone(items)
	b := r.publishLocked(Build(r.order, r.authoritative))
	r.mu.Unlock()

	r.emit(b)
}

// BeginDrag records a pending move. Any earlier drag is replaced.
func (r *Reconciler) BeginDrag(taskID uuid.UUID, sourceStatus domain.TaskStatus, sourceIndex int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pending = &PendingMove{TaskID: taskID, SourceStatus: sourceStatus, SourceIndex: sourceIndex}
	r.highlight = nil
}

// Hover marks status as the current drop target while a drag is active.
func (r *Reconciler) Hover(status domain.TaskStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return
	}
	r.highlight = &status
}

// CancelDrag drops the pending move without touching the board.
func (r *Reconciler) CancelDrag() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	r.highlight = nil
}

// DropOnto completes the pending move. A drop inside the source column is a
// local reorder. A drop onto another column is applied to the board at once
// and the status update is sent in the background; if it fails the board is
// rebuilt from the authoritative list. The pending move is always cleared.
func (r *Reconciler) DropOnto(ctx context.Context, targetStatus domain.TaskStatus, targetIndex int) error {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.highlight = nil

	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("board.Reconciler.DropOnto: %w", ErrClosed)
	}
	if pending == nil {
		r.mu.Unlock()
		return fmt.Errorf("board.Reconciler.DropOnto: %w", ErrNoActiveDrag)
	}

	from, ok := r.board.locate(pending.SourceStatus, pending.SourceIndex, pending.TaskID)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("board.Reconciler.DropOnto: task %s: %w", pending.TaskID, ErrTaskNotFound)
	}

	if targetStatus == pending.SourceStatus {
		next, err := r.board.reorder(targetStatus, from, targetIndex)
		if err != nil {
			r.mu.Unlock()
			return fmt.Errorf("board.Reconciler.DropOnto: %w", err)
		}
		b := r.publishLocked(next)
		r.mu.Unlock()

		r.emit(b)
		return nil
	}

	next, moved, err := r.board.move(pending.SourceStatus, from, targetStatus, targetIndex)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("board.Reconciler.DropOnto: %w", err)
	}
	b := r.publishLocked(next)
	r.inflight.Add(1)
	r.mu.Unlock()

	r.emit(b)

	// The remote call must outlive the triggering request.
	go r.settle(context.WithoutCancel(ctx), moved)
	return nil
}

// Close detaches the reconciler from its viewer. Status updates that settle
// afterwards neither touch the board nor notify, but a confirmed move still
// invalidates the authoritative source.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.pending = nil
	r.highlight = nil
}

// Wait blocks until every in-flight status update has settled.
func (r *Reconciler) Wait() {
	r.inflight.Wait()
}

func (r *Reconciler) settle(ctx context.Context, task domain.Task) {
	defer r.inflight.Done()

	err := r.updater.UpdateTaskStatus(ctx, task.ID, task.Status)

	r.mu.Lock()
	closed := r.closed
	if err != nil {
		if closed {
			r.mu.Unlock()
			log.Debug().Err(err).Str("task_id", task.ID.String()).Msg("board: status update failed after close, ignored")
			return
		}
		b := r.publishLocked(Build(r.order, r.authoritative))
		r.mu.Unlock()

		r.emit(b)
		r.notifier.Notify(ctx, notify.Error(fmt.Sprintf("Failed to move %q: %s", task.Title, err.Error())))
		return
	}
	r.mu.Unlock()

	if !closed {
		r.notifier.Notify(ctx, notify.Success(fmt.Sprintf("Moved %q to %s", task.Title, task.Status.Label())))
	}

	// The remote change happened; the shared source is stale even if this
	// viewer is gone.
	if r.invalidator != nil {
		if invErr := r.invalidator.Invalidate(ctx); invErr != nil {
			log.Warn().Err(invErr).Str("task_id", task.ID.String()).Msg("board: invalidate after move")
		}
	}
}

// publishLocked stamps b with the next revision and makes it current.
func (r *Reconciler) publishLocked(b Board) Board {
	r.revision++
	r.board = b.withRevision(r.revision)
	return r.board
}

func (r *Reconciler) emit(b Board) {
	if r.onChange != nil {
		r.onChange(b)
	}
}
