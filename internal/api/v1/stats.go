package v1

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/domain"
)

type GetStatsInput struct {
	ProjectID uuid.UUID `path:"projectID" doc:"Project ID"`
}

// StatusCount is one bar of the status chart.
type StatusCount struct {
	Status domain.TaskStatus `json:"status"`
	Label  string            `json:"label"`
	Count  int               `json:"count"`
}

type ProjectStats struct {
	ProjectID uuid.UUID     `json:"project_id"`
	Total     int           `json:"total"`
	ByStatus  []StatusCount `json:"by_status"`
	// Completion is the share of DONE tasks, 0 for an empty project.
	Completion float64   `json:"completion"`
	Overdue    int       `json:"overdue"`
	At         time.Time `json:"at"`
}

type GetStatsOutput struct {
	Body ProjectStats
}

// ComputeStats derives dashboard chart data from a task list. Statuses outside
// the board order are counted after the board columns in first-seen order.
func ComputeStats(projectID uuid.UUID, tasks []domain.Task, now time.Time) ProjectStats {
	st := ProjectStats{ProjectID: projectID, Total: len(tasks), At: now}

	index := make(map[domain.TaskStatus]int, len(domain.BoardStatuses))
	for _, s := range domain.BoardStatuses {
		index[s] = len(st.ByStatus)
		st.ByStatus = append(st.ByStatus, StatusCount{Status: s, Label: s.Label()})
	}

	done := 0
	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			i = len(st.ByStatus)
			index[t.Status] = i
			st.ByStatus = append(st.ByStatus, StatusCount{Status: t.Status, Label: t.Status.Label()})
		}
		st.ByStatus[i].Count++
		if t.Status == domain.TaskStatusDone {
			done++
		}
		if t.Overdue(now) {
			st.Overdue++
		}
	}

	if st.Total > 0 {
		st.Completion = math.Round(float64(done)/float64(st.Total)*1000) / 1000
	}
	return st
}

func RegisterStatsRoutes(api huma.API, tasks TaskReader) {
	huma.Register(api, huma.Operation{
		OperationID: "get-project-stats",
		Method:      http.MethodGet,
		Path:        "/projects/{projectID}/stats",
		Summary:     "Task counts and completion for dashboard charts",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *GetStatsInput) (*GetStatsOutput, error) {
		id, err := identity(ctx)
		if err != nil {
			return nil, err
		}

		items, err := tasks.Tasks(ctx, scope(id, input.ProjectID))
		if err != nil {
			return nil, backendError(err, "project", "failed to list tasks")
		}

		return &GetStatsOutput{Body: ComputeStats(input.ProjectID, items, time.Now().UTC())}, nil
	})
}
