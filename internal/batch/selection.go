package batch

import (
	"slices"

	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/domain"
)

// Eligible decides which tasks may be offered for a bulk operation.
type Eligible func(t domain.Task) bool

// StatusEligible offers only tasks in one of the given statuses.
func StatusEligible(statuses ...domain.TaskStatus) Eligible {
	return func(t domain.Task) bool {
		return slices.Contains(statuses, t.Status)
	}
}

// Selection is an insertion-ordered set of task ids. It is not safe for
// concurrent use; owners serialize access.
type Selection struct {
	eligible Eligible
	ids      []uuid.UUID
	index    map[uuid.UUID]struct{}
}

// NewSelection creates an empty selection. A nil eligible accepts every task.
func NewSelection(eligible Eligible) *Selection {
	if eligible == nil {
		eligible = func(domain.Task) bool { return true }
	}
	return &Selection{eligible: eligible, index: make(map[uuid.UUID]struct{})}
}

func (s *Selection) Add(ids ...uuid.UUID) {
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

func (s *Selection) Remove(ids ...uuid.UUID) {
	for _, id := range ids {
		if _, ok := s.index[id]; !ok {
			continue
		}
		delete(s.index, id)
		s.ids = slices.DeleteFunc(s.ids, func(x uuid.UUID) bool { return x == id })
	}
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id uuid.UUID) bool {
	if s.Contains(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// SelectAll adds every eligible task.
func (s *Selection) SelectAll(tasks []domain.Task) {
	for _, t := range tasks {
		if s.eligible(t) {
			s.Add(t.ID)
		}
	}
}

func (s *Selection) Clear() {
	s.ids = nil
	clear(s.index)
}

// Prune drops ids that are missing from tasks or no longer eligible, e.g.
// after a refetch.
func (s *Selection) Prune(tasks []domain.Task) {
	keep := make(map[uuid.UUID]struct{}, len(tasks))
	for _, t := range tasks {
		if s.eligible(t) {
			keep[t.ID] = struct{}{}
		}
	}
	for _, id := range slices.Clone(s.ids) {
		if _, ok := keep[id]; !ok {
			s.Remove(id)
		}
	}
}

func (s *Selection) Contains(id uuid.UUID) bool {
	_, ok := s.index[id]
	return ok
}

// IDs returns the selected ids in selection order.
func (s *Selection) IDs() []uuid.UUID {
	return slices.Clone(s.ids)
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// Targets resolves the selection against tasks, labelling each target with
// the task title. Selected ids missing from tasks keep their id as label.
func (s *Selection) Targets(tasks []domain.Task) []Target {
	titles := make(map[uuid.UUID]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}
	out := make([]Target, 0, len(s.ids))
	for _, id := range s.ids {
		label, ok := titles[id]
		if !ok {
			label = id.String()
		}
		out = append(out, Target{ID: id, Label: label})
	}
	return out
}
