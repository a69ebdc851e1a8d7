package task

import (
	"time"

	"github.com/fastygo/taskreminder/domain"
)

// FilterKind names one of the predefined task views.
type FilterKind string

const (
	FilterAll            FilterKind = "all"
	FilterCompleted      FilterKind = "completed"
	FilterPending        FilterKind = "pending"
	FilterOverdue        FilterKind = "overdue"
	FilterHighPriority   FilterKind = "high_priority"
	FilterNormalPriority FilterKind = "normal_priority"
	FilterLowPriority    FilterKind = "low_priority"
)

// Filter narrows a user's task list. DueOn, when set, keeps tasks due on the
// same calendar day in DueOn's location.
type Filter struct {
	Kind  FilterKind
	DueOn time.Time
}

// ParseFilterKind maps a query value to a FilterKind; empty means all.
func ParseFilterKind(s string) (FilterKind, error) {
	switch k := FilterKind(s); k {
	case "":
		return FilterAll, nil
	case FilterAll, FilterCompleted, FilterPending, FilterOverdue,
		FilterHighPriority, FilterNormalPriority, FilterLowPriority:
		return k, nil
	default:
		return "", domain.Validation("unknown filter " + s)
	}
}

func (f Filter) match(t *domain.Task, now time.Time) bool {
	if !f.DueOn.IsZero() && !sameDay(t.DueDate.In(f.DueOn.Location()), f.DueOn) {
		return false
	}

	switch f.Kind {
	case FilterCompleted:
		return t.IsCompleted
	case FilterPending:
		return !t.IsCompleted
	case FilterOverdue:
		return t.IsOverdue(now)
	case FilterHighPriority:
		return t.Priority == domain.PriorityHigh
	case FilterNormalPriority:
		return t.Priority == domain.PriorityNormal
	case FilterLowPriority:
		return t.Priority == domain.PriorityLow
	default:
		return true
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
