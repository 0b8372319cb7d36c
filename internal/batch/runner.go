// Package batch applies one mutation to many items concurrently and reports
// per-item outcomes. A failing item never blocks or undoes another.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/planboard/internal/notify"
)

var (
	ErrEmptySelection = errors.New("batch: nothing selected")
	ErrNilOperation   = errors.New("batch: nil operation")
)

const defaultConcurrency = 8

// ArchiveTasks names bulk archive runs in summaries and history.
const ArchiveTasks = "Archive tasks"

// Target is one item submitted to a run.
type Target struct {
	ID    uuid.UUID
	Label string
}

// Operation mutates a single item.
type Operation func(ctx context.Context, id uuid.UUID) error

// Invalidator refreshes the authoritative item list and derived views.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Option func(*Runner)

// WithNotifier sets the summary sink. A nil sink keeps the default discard.
func WithNotifier(s notify.Sink) Option {
	return func(r *Runner) {
		if s != nil {
			r.notifier = s
		}
	}
}

func WithInvalidator(inv Invalidator) Option {
	return func(r *Runner) { r.invalidator = inv }
}

// WithConcurrency bounds the number of in-flight item calls. Values below 1
// are ignored.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

type Runner struct {
	name        string
	notifier    notify.Sink
	invalidator Invalidator
	concurrency int
}

// NewRunner creates a runner. name labels summaries, e.g. "Archive tasks".
func NewRunner(name string, opts ...Option) *Runner {
	r := &Runner{
		name:        name,
		notifier:    notify.Discard,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run invokes op once per distinct target and waits for every call to settle.
// Item failures are captured in the report; an error is returned only when
// the run itself cannot start. Once started, item calls are not cancelled by
// ctx. The invalidator runs exactly once after all items settle.
func (r *Runner) Run(ctx context.Context, targets []Target, op Operation) (*Report, error) {
	if op == nil {
		return nil, r.reject(ctx, ErrNilOperation)
	}
	targets = dedupe(targets)
	if len(targets) == 0 {
		return nil, r.reject(ctx, ErrEmptySelection)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.reject(ctx, err)
	}

	runCtx := context.WithoutCancel(ctx)
	results := make([]Result, len(targets))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, t := range targets {
		g.Go(func() error {
			results[i] = invoke(runCtx, t, op)
			return nil
		})
	}
	_ = g.Wait()

	report := newReport(r.name, results)

	if r.invalidator != nil {
		if err := r.invalidator.Invalidate(runCtx); err != nil {
			log.Warn().Err(err).Str("operation", r.name).Msg("batch: invalidate after run")
		}
	}

	if report.Outcome() == OutcomeSuccess {
		r.notifier.Notify(runCtx, notify.Success(report.Summary()))
	} else {
		r.notifier.Notify(runCtx, notify.Error(report.Summary()))
	}

	log.Info().
		Str("operation", r.name).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("batch: run settled")

	return report, nil
}

func (r *Runner) reject(ctx context.Context, err error) error {
	r.notifier.Notify(ctx, notify.Error(fmt.Sprintf("%s failed: %s", r.name, err.Error())))
	return fmt.Errorf("batch.Runner.Run: %w", err)
}

// invoke isolates a single item call, turning errors and panics into a
// failed Result.
func invoke(ctx context.Context, t Target, op Operation) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("item_id", t.ID.String()).Msg("batch: item operation panicked")
			res = failed(t, fmt.Errorf("unexpected error: %v", p))
		}
	}()

	if err := op(ctx, t.ID); err != nil {
		return failed(t, err)
	}
	return succeeded(t)
}

func dedupe(targets []Target) []Target {
	seen := make(map[uuid.UUID]struct{}, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
