package board

import (
	"cmp"
	"slices"
	"strings"

	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// Sort fields.
const (
	SortDate     = "date"
	SortDuration = "duration"
	SortTitle    = "title"
	SortStatus   = "status"
	SortCreated  = "created"
	SortUpdated  = "updated"
)

// ValidSortFields returns the list of valid --sort field names.
func ValidSortFields() []string {
	return []string{SortDate, SortDuration, SortTitle, SortStatus, SortCreated, SortUpdated}
}

// Sort sorts tasks in place by the given field. Ties keep their original order.
// Status sorts in lifecycle order, not alphabetically.
func Sort(tasks []task.Task, field string, reverse bool) {
	slices.SortStableFunc(tasks, func(a, b task.Task) int {
		c := compareTasks(&a, &b, field)
		if reverse {
			return -c
		}
		return c
	})
}

func compareTasks(a, b *task.Task, field string) int {
	switch field {
	case SortDuration:
		return cmp.Compare(a.Duration, b.Duration)
	case SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortStatus:
		return cmp.Compare(statusIndex(a.Status), statusIndex(b.Status))
	case SortCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortUpdated:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return compareSchedule(a, b)
	}
}

// compareSchedule orders by date, then clock time. Tasks without a time sort
// as if scheduled at the default time.
func compareSchedule(a, b *task.Task) int {
	if c := strings.Compare(a.Date, b.Date); c != 0 {
		return c
	}
	return strings.Compare(clockOrDefault(a.Time), clockOrDefault(b.Time))
}

func clockOrDefault(s string) string {
	if s == "" {
		return task.DefaultTime
	}
	return s
}

func statusIndex(s task.Status) int {
	i := slices.Index(task.Statuses(), s)
	if i < 0 {
		return len(task.Statuses())
	}
	return i
}
