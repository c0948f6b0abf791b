// Package board provides list, group, sort and aggregate operations over task
// collections, plus the per-registry activity log.
package board

import (
	"slices"

	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/search"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// FilterOptions defines which tasks to include.
type FilterOptions struct {
	Statuses        []task.Status
	ExcludeStatuses []task.Status // statuses to exclude from results
	Categories      []string
	Urgent          *bool      // nil=no filter
	From            *date.Date // inclusive lower bound on the task date
	To              *date.Date // inclusive upper bound on the task date
	Matcher         *search.Matcher
}

// Filter returns tasks matching all specified criteria (AND logic), in their
// original order. The input slice is not modified.
func Filter(tasks []task.Task, opts FilterOptions) []task.Task {
	result := make([]task.Task, 0, len(tasks))
	for _, t := range search.Filter(tasks, opts.Matcher) {
		if matchesFilter(&t, opts) {
			result = append(result, t)
		}
	}
	return result
}

func matchesFilter(t *task.Task, opts FilterOptions) bool {
	if !matchesStatus(t.Status, opts.Statuses, opts.ExcludeStatuses) {
		return false
	}
	if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, t.Category) {
		return false
	}
	if opts.Urgent != nil && t.Urgent != *opts.Urgent {
		return false
	}
	return date.Contains(t.Date, opts.From, opts.To)
}

func matchesStatus(status task.Status, include, exclude []task.Status) bool {
	if len(include) > 0 && !slices.Contains(include, status) {
		return false
	}
	if len(exclude) > 0 && slices.Contains(exclude, status) {
		return false
	}
	return true
}
