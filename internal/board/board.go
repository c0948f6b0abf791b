package board

import (
	"slices"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// ListOptions controls how tasks are listed.
type ListOptions struct {
	Filter  FilterOptions
	SortBy  string
	Reverse bool
	Limit   int
}

// List applies filters and sorting to a copy of tasks.
func List(tasks []task.Task, opts ListOptions) []task.Task {
	result := Filter(tasks, opts.Filter)

	sortField := opts.SortBy
	if sortField == "" {
		sortField = SortDate
	}
	Sort(result, sortField, opts.Reverse)

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// StatusSummary holds metrics for a single status.
type StatusSummary struct {
	Status task.Status `json:"status"`
	Count  int         `json:"count"`
	Hours  float64     `json:"hours"`
}

// Overview is the aggregate registry overview.
type Overview struct {
	Name       string          `json:"name"`
	TotalTasks int             `json:"total_tasks"`
	Statuses   []StatusSummary `json:"statuses"`
	Today      Load            `json:"today"`
	UrgentOpen int             `json:"urgent_open"`
	Balance    Balance         `json:"balance"`
}

// Summary computes the registry overview for the given snapshot.
func Summary(name string, s *task.Snapshot, now time.Time) Overview {
	return Overview{
		Name:       name,
		TotalTasks: len(s.Tasks),
		Statuses:   statusSummary(s.Tasks),
		Today:      TodayLoad(s.Tasks, s.Settings.Capacity, now),
		UrgentOpen: UrgentOpen(s.Tasks),
		Balance:    ComputeBalance(s.Tasks, s.Settings.Categories),
	}
}

func statusSummary(tasks []task.Task) []StatusSummary {
	counts := CountByStatus(tasks)
	hours := make(map[task.Status]float64)
	for i := range tasks {
		hours[tasks[i].Status] += tasks[i].Duration
	}
	out := make([]StatusSummary, 0, len(task.Statuses()))
	for _, st := range task.Statuses() {
		out = append(out, StatusSummary{Status: st, Count: counts[st], Hours: hours[st]})
	}
	return out
}

// ParseIDs splits a comma-separated ID string into deduplicated task IDs.
func ParseIDs(arg string) ([]string, error) {
	parts := strings.Split(arg, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsFunc(p, isSpaceOrControl) {
			return nil, task.ValidateTaskID(p)
		}
		if !slices.Contains(ids, p) {
			ids = append(ids, p)
		}
	}
	if len(ids) == 0 {
		return nil, clierr.New(clierr.InvalidTaskID, "no valid task IDs provided")
	}
	return ids, nil
}

func isSpaceOrControl(r rune) bool {
	return r <= ' ' || r == 0x7f
}

// ResolveID expands a unique prefix to a full task ID. Exact matches win.
func ResolveID(tasks []task.Task, prefix string) (string, error) {
	if slices.ContainsFunc(tasks, func(t task.Task) bool { return t.ID == prefix }) {
		return prefix, nil
	}
	var match string
	for i := range tasks {
		id := tasks[i].ID
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", clierr.Newf(clierr.InvalidTaskID, "task ID prefix %q is ambiguous", prefix).
					WithDetails(map[string]any{"input": prefix})
			}
			match = id
		}
	}
	if match == "" {
		return "", task.NotFound(prefix)
	}
	return match, nil
}

// CountByStatus returns the number of tasks in each status.
func CountByStatus(tasks []task.Task) map[task.Status]int {
	counts := make(map[task.Status]int)
	for i := range tasks {
		counts[tasks[i].Status]++
	}
	return counts
}
