// Package board keeps the client-side grouped view of a project's tasks and
// reconciles optimistic drag-and-drop moves with the backend.
package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/domain"
)

var (
	ErrNoActiveDrag  = errors.New("board: no active drag")
	ErrTaskNotFound  = errors.New("board: task not found in source column")
	ErrUnknownColumn = errors.New("board: unknown column")
	ErrClosed        = errors.New("board: reconciler closed")
)

// Column is one status group of a board in display order.
type Column struct {
	Status domain.TaskStatus `json:"status"`
	Label  string            `json:"label"`
	Tasks  []domain.Task     `json:"tasks"`
}

// Board is an immutable snapshot of tasks grouped by status. Every update
// produces a new Board; slices held by an existing Board are never written.
type Board struct {
	revision uint64
	columns  []Column
}

// Build groups items into columns following order. Items whose status is not
// in order get extra columns appended in first-seen order, so every item lands
// in exactly one column. Items are copied by value.
func Build(order []domain.TaskStatus, items []domain.Task) Board {
	columns := make([]Column, 0, len(order))
	index := make(map[domain.TaskStatus]int, len(order))
	addColumn := func(s domain.TaskStatus) int {
		if i, ok := index[s]; ok {
			return i
		}
		columns = append(columns, Column{Status: s, Label: s.Label(), Tasks: make([]domain.Task, 0)})
		index[s] = len(columns) - 1
		return len(columns) - 1
	}

	for _, s := range order {
		addColumn(s)
	}
	for _, it := range items {
		i := addColumn(it.Status)
		columns[i].Tasks = append(columns[i].Tasks, it)
	}

	return Board{columns: columns}
}

// Revision increases every time a reconciler publishes a new board.
func (b Board) Revision() uint64 { return b.revision }

func (b Board) Statuses() []domain.TaskStatus {
	out := make([]domain.TaskStatus, len(b.columns))
	for i, c := range b.columns {
		out[i] = c.Status
	}
	return out
}

// Column returns a copy of the tasks in the given status column.
func (b Board) Column(status domain.TaskStatus) []domain.Task {
	i := b.columnIndex(status)
	if i < 0 {
		return nil
	}
	return slices.Clone(b.columns[i].Tasks)
}

// Columns returns a copy of every column in display order.
func (b Board) Columns() []Column {
	out := make([]Column, len(b.columns))
	for i, c := range b.columns {
		out[i] = Column{Status: c.Status, Label: c.Label, Tasks: slices.Clone(c.Tasks)}
	}
	return out
}

// Len is the total number of tasks on the board.
func (b Board) Len() int {
	n := 0
	for _, c := range b.columns {
		n += len(c.Tasks)
	}
	return n
}

// Find locates a task by id.
func (b Board) Find(id uuid.UUID) (domain.TaskStatus, int, bool) {
	for _, c := range b.columns {
		for i, t := range c.Tasks {
			if t.ID == id {
				return c.Status, i, true
			}
		}
	}
	return "", -1, false
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Revision uint64   `json:"revision"`
		Columns  []Column `json:"columns"`
	}{b.revision, b.columns})
}

func (b Board) columnIndex(status domain.TaskStatus) int {
	for i, c := range b.columns {
		if c.Status == status {
			return i
		}
	}
	return -1
}

func (b Board) withRevision(rev uint64) Board {
	b.revision = rev
	return b
}

// locate resolves the dragged task's current index in its source column.
// The recorded index wins when it still points at the task; otherwise the
// task is looked up by id, since the column may have been rebuilt mid-drag.
func (b Board) locate(status domain.TaskStatus, index int, id uuid.UUID) (int, bool) {
	ci := b.columnIndex(status)
	if ci < 0 {
		return -1, false
	}
	tasks := b.columns[ci].Tasks
	if index >= 0 && index < len(tasks) && tasks[index].ID == id {
		return index, true
	}
	for i, t := range tasks {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

// reorder moves the task at from to position to within one column.
func (b Board) reorder(status domain.TaskStatus, from, to int) (Board, error) {
	ci := b.columnIndex(status)
	if ci < 0 {
		return b, fmt.Errorf("board.reorder: %q: %w", status, ErrUnknownColumn)
	}

	src := b.columns[ci].Tasks
	if from < 0 || from >= len(src) {
		return b, fmt.Errorf("board.reorder: index %d: %w", from, ErrTaskNotFound)
	}
	to = clamp(to, 0, len(src)-1)
	if from == to {
		return b, nil
	}

	moved := src[from]
	next := slices.Delete(slices.Clone(src), from, from+1)
	next = slices.Insert(next, to, moved)

	return b.replace(map[int][]domain.Task{ci: next}), nil
}

// move removes the task at from in the source column and inserts it into the
// target column at to with its status rewritten. It returns the moved task.
func (b Board) move(source domain.TaskStatus, from int, target domain.TaskStatus, to int) (Board, domain.Task, error) {
	si := b.columnIndex(source)
	if si < 0 {
		return b, domain.Task{}, fmt.Errorf("board.move: source %q: %w", source, ErrUnknownColumn)
	}
	ti := b.columnIndex(target)
	if ti < 0 {
		return b, domain.Task{}, fmt.Errorf("board.move: target %q: %w", target, ErrUnknownColumn)
	}

	src := b.columns[si].Tasks
	if from < 0 || from >= len(src) {
		return b, domain.Task{}, fmt.Errorf("board.move: index %d: %w", from, ErrTaskNotFound)
	}

	moved := src[from]
	moved.Status = target

	dst := b.columns[ti].Tasks
	to = clamp(to, 0, len(dst))

	nextSrc := slices.Delete(slices.Clone(src), from, from+1)
	nextDst := slices.Insert(slices.Clone(dst), to, moved)

	return b.replace(map[int][]domain.Task{si: nextSrc, ti: nextDst}), moved, nil
}

// replace returns a board sharing every column except the replaced ones.
func (b Board) replace(changed map[int][]domain.Task) Board {
	columns := slices.Clone(b.columns)
	for i, tasks := range changed {
		columns[i].Tasks = tasks
	}
	return Board{revision: b.revision, columns: columns}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
