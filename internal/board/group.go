package board

import (
	"cmp"
	"slices"

	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// Group-by fields.
const (
	GroupCategory = "category"
	GroupStatus   = "status"
	GroupDate     = "date"
	GroupType     = "type"
)

// GroupedSummary holds tasks grouped by a field.
type GroupedSummary struct {
	Field  string         `json:"field"`
	Groups []GroupSummary `json:"groups"`
}

// GroupSummary is one group within a grouped view.
type GroupSummary struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Statuses []StatusSummary `json:"statuses"`
	Total    int             `json:"total"`
	Hours    float64         `json:"hours"`
}

// GroupBy groups tasks by the specified field and returns summaries per group.
func GroupBy(tasks []task.Task, field string, categories []task.Category) GroupedSummary {
	groups := make(map[string][]task.Task)
	for i := range tasks {
		key := groupKey(&tasks[i], field, categories)
		groups[key] = append(groups[key], tasks[i])
	}

	keys := sortGroupKeys(groups, field, categories)

	result := GroupedSummary{
		Field:  field,
		Groups: make([]GroupSummary, 0, len(keys)),
	}
	for _, key := range keys {
		groupTasks := groups[key]
		var hours float64
		for i := range groupTasks {
			hours += groupTasks[i].Duration
		}
		result.Groups = append(result.Groups, GroupSummary{
			Key:      key,
			Label:    groupLabel(key, field, categories),
			Statuses: statusSummary(groupTasks),
			Total:    len(groupTasks),
			Hours:    hours,
		})
	}
	return result
}

func groupKey(t *task.Task, field string, categories []task.Category) string {
	switch field {
	case GroupCategory:
		return task.ResolveCategory(categories, t.Category).ID
	case GroupStatus:
		return string(t.Status)
	case GroupDate:
		return t.Date
	case GroupType:
		return string(task.ResolveCategory(categories, t.Category).Type.Bucket())
	default:
		return "(all)"
	}
}

func groupLabel(key, field string, categories []task.Category) string {
	if field == GroupCategory {
		return task.ResolveCategory(categories, key).Label
	}
	return key
}

func sortGroupKeys(groups map[string][]task.Task, field string, categories []task.Category) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	switch field {
	case GroupStatus:
		slices.SortFunc(keys, func(a, b string) int {
			return cmp.Compare(statusIndex(task.Status(a)), statusIndex(task.Status(b)))
		})
	case GroupCategory:
		slices.SortFunc(keys, func(a, b string) int {
			return cmp.Compare(categoryIndex(categories, a), categoryIndex(categories, b))
		})
	case GroupType:
		order := []task.CategoryType{task.TypeWork, task.TypeLife, task.TypeOther}
		slices.SortFunc(keys, func(a, b string) int {
			return cmp.Compare(slices.Index(order, task.CategoryType(a)), slices.Index(order, task.CategoryType(b)))
		})
	default:
		slices.Sort(keys)
	}
	return keys
}

// categoryIndex orders configured categories first, the fallback last.
func categoryIndex(categories []task.Category, id string) int {
	i := slices.IndexFunc(categories, func(c task.Category) bool { return c.ID == id })
	if i < 0 {
		return len(categories)
	}
	return i
}

// ValidGroupByFields returns the list of valid --group-by field names.
func ValidGroupByFields() []string {
	return []string{GroupCategory, GroupStatus, GroupDate, GroupType}
}
