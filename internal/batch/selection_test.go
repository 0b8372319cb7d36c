package batch_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/planboard/internal/batch"
	"github.com/gosuda/planboard/internal/domain"
)

func newTask(title string, status domain.TaskStatus) domain.Task {
	return domain.Task{ID: uuid.New(), Title: title, Status: status}
}

func TestSelection_AddRemoveToggle(t *testing.T) {
	t.Parallel()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	sel := batch.NewSelection(nil)

	sel.Add(b, a, b)
	assert.Equal(t, []uuid.UUID{b, a}, sel.IDs())
	assert.Equal(t, 2, sel.Len())

	assert.True(t, sel.Toggle(c))
	assert.False(t, sel.Toggle(b))
	assert.Equal(t, []uuid.UUID{a, c}, sel.IDs())

	sel.Remove(a, uuid.New())
	assert.Equal(t, []uuid.UUID{c}, sel.IDs())
	assert.True(t, sel.Contains(c))
	assert.False(t, sel.Contains(a))

	sel.Clear()
	assert.Zero(t, sel.Len())
	assert.Empty(t, sel.IDs())
}

func TestSelection_SelectAllEligibleOnly(t *testing.T) {
	t.Parallel()

	done1 := newTask("ship release", domain.TaskStatusDone)
	todo := newTask("write docs", domain.TaskStatusTodo)
	done2 := newTask("fix flaky test", domain.TaskStatusDone)

	sel := batch.NewSelection(batch.StatusEligible(domain.TaskStatusDone))
	sel.SelectAll([]domain.Task{done1, todo, done2})

	assert.Equal(t, []uuid.UUID{done1.ID, done2.ID}, sel.IDs())
}

func TestSelection_Prune(t *testing.T) {
	t.Parallel()

	keep := newTask("keep", domain.TaskStatusDone)
	moved := newTask("moved", domain.TaskStatusDone)
	gone := newTask("gone", domain.TaskStatusDone)

	sel := batch.NewSelection(batch.StatusEligible(domain.TaskStatusDone))
	sel.Add(keep.ID, moved.ID, gone.ID)

	moved.Status = domain.TaskStatusInProgress
	sel.Prune([]domain.Task{keep, moved})

	assert.Equal(t, []uuid.UUID{keep.ID}, sel.IDs())
}

func TestSelection_IDsIsACopy(t *testing.T) {
	t.Parallel()

	a := uuid.New()
	sel := batch.NewSelection(nil)
	sel.Add(a)

	ids := sel.IDs()
	ids[0] = uuid.Nil
	assert.Equal(t, []uuid.UUID{a}, sel.IDs())
}

func TestSelection_Targets(t *testing.T) {
	t.Parallel()

	known := newTask("ship release", domain.TaskStatusDone)
	unknown := uuid.New()

	sel := batch.NewSelection(nil)
	sel.Add(known.ID, unknown)

	targets := sel.Targets([]domain.Task{known})
	require.Len(t, targets, 2)
	assert.Equal(t, batch.Target{ID: known.ID, Label: "ship release"}, targets[0])
	assert.Equal(t, batch.Target{ID: unknown, Label: unknown.String()}, targets[1])
}
