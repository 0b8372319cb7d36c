package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/planboard/internal/domain"
)

// ---------------------------------------------------------------------------
// TaskStatus
// ---------------------------------------------------------------------------

func TestTaskStatus_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status domain.TaskStatus
		want   bool
	}{
		{domain.TaskStatusTodo, true},
		{domain.TaskStatusInProgress, true},
		{domain.TaskStatusInReview, true},
		{domain.TaskStatusDone, true},
		{domain.TaskStatusArchived, true},
		{domain.TaskStatus("todo"), false},
		{domain.TaskStatus(""), false},
		{domain.TaskStatus("BLOCKED"), false},
	}

	for _, tt := range tests {
		t.Run("status_"+string(tt.status), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.status.Valid())
		})
	}
}

func TestTaskStatus_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "To Do", domain.TaskStatusTodo.Label())
	assert.Equal(t, "In Progress", domain.TaskStatusInProgress.Label())
	assert.Equal(t, "In Review", domain.TaskStatusInReview.Label())
	assert.Equal(t, "Done", domain.TaskStatusDone.Label())
	assert.Equal(t, "BLOCKED", domain.TaskStatus("BLOCKED").Label())
}

func TestBoardStatuses_ExcludeArchived(t *testing.T) {
	t.Parallel()

	assert.NotContains(t, domain.BoardStatuses, domain.TaskStatusArchived)
	assert.Len(t, domain.BoardStatuses, 4)
	assert.Equal(t, domain.TaskStatusTodo, domain.BoardStatuses[0])
}

// ---------------------------------------------------------------------------
// Task.Overdue
// ---------------------------------------------------------------------------

func TestTask_Overdue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		task domain.Task
		want bool
	}{
		{name: "no_due_date", task: domain.Task{Status: domain.TaskStatusTodo}, want: false},
		{name: "past_due_open", task: domain.Task{Status: domain.TaskStatusInProgress, DueDate: &past}, want: true},
		{name: "future_due_open", task: domain.Task{Status: domain.TaskStatusTodo, DueDate: &future}, want: false},
		{name: "past_due_done", task: domain.Task{Status: domain.TaskStatusDone, DueDate: &past}, want: false},
		{name: "past_due_archived", task: domain.Task{Status: domain.TaskStatusArchived, DueDate: &past}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.task.Overdue(now))
		})
	}
}
