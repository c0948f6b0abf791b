package board

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/search"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var categories = []task.Category{
	{ID: "academic", Label: "Academic", Color: "39", Type: task.TypeWork},
	{ID: "work", Label: "Work", Color: "33", Type: task.TypeWork},
	{ID: "fitness", Label: "Fitness", Color: "42", Type: task.TypeLife},
}

func fixture() []task.Task {
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return []task.Task{
		{ID: "a", Title: "Study Math", Date: "2026-03-02", Time: "10:00", Duration: 2, Category: "academic", Status: task.StatusPlanned, Urgent: true, CreatedAt: t0.Add(3 * time.Hour)},
		{ID: "b", Title: "gym", Date: "2026-03-02", Time: "07:00", Duration: 1, Category: "fitness", Status: task.StatusCompleted, CreatedAt: t0.Add(1 * time.Hour)},
		{ID: "c", Title: "Report", Date: "2026-03-01", Duration: 3, Category: "work", Status: task.StatusCanceled, CancelReason: "client moved", Urgent: true, CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "d", Title: "Paint", Date: "2026-03-05", Time: "15:00", Duration: 1.5, Category: "hobby", Status: task.StatusPlanned, Urgent: true, CreatedAt: t0},
	}
}

func taskIDs(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].ID
	}
	return out
}

func TestFilter(t *testing.T) {
	t.Parallel()

	yes := true
	from := date.New(2026, 3, 2)
	to := date.New(2026, 3, 4)

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no filters", FilterOptions{}, []string{"a", "b", "c", "d"}},
		{"status", FilterOptions{Statuses: []task.Status{task.StatusPlanned}}, []string{"a", "d"}},
		{"exclude status", FilterOptions{ExcludeStatuses: []task.Status{task.StatusCanceled}}, []string{"a", "b", "d"}},
		{"category", FilterOptions{Categories: []string{"fitness", "hobby"}}, []string{"b", "d"}},
		{"urgent", FilterOptions{Urgent: &yes}, []string{"a", "c", "d"}},
		{"date range", FilterOptions{From: &from, To: &to}, []string{"a", "b"}},
		{"matcher", FilterOptions{Matcher: search.CompileOrNil("^(gym|paint)", search.Options{})}, []string{"b", "d"}},
		{"combined", FilterOptions{Urgent: &yes, Statuses: []task.Status{task.StatusPlanned}, To: &to}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, taskIDs(Filter(fixture(), tt.opts)))
		})
	}
}

func TestSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field   string
		reverse bool
		want    []string
	}{
		{SortDate, false, []string{"c", "b", "a", "d"}},
		{SortDate, true, []string{"d", "a", "b", "c"}},
		{SortDuration, false, []string{"b", "d", "a", "c"}},
		{SortTitle, false, []string{"b", "d", "c", "a"}},
		{SortStatus, false, []string{"a", "d", "b", "c"}},
		{SortCreated, false, []string{"d", "b", "c", "a"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/reverse=%v", tt.field, tt.reverse), func(t *testing.T) {
			t.Parallel()
			tasks := fixture()
			Sort(tasks, tt.field, tt.reverse)
			assert.Equal(t, tt.want, taskIDs(tasks))
		})
	}
}

func TestList_Limit(t *testing.T) {
	t.Parallel()

	tasks := fixture()
	got := List(tasks, ListOptions{SortBy: SortDuration, Reverse: true, Limit: 2})
	assert.Equal(t, []string{"c", "a"}, taskIDs(got))
	assert.Equal(t, []string{"a", "b", "c", "d"}, taskIDs(tasks), "input order must be preserved")
}

func TestGroupBy(t *testing.T) {
	t.Parallel()

	g := GroupBy(fixture(), GroupCategory, categories)
	require.Len(t, g.Groups, 4)
	assert.Equal(t, []string{"academic", "work", "fitness", task.FallbackCategoryID},
		[]string{g.Groups[0].Key, g.Groups[1].Key, g.Groups[2].Key, g.Groups[3].Key})
	assert.Equal(t, "General", g.Groups[3].Label)
	assert.InDelta(t, 1.5, g.Groups[3].Hours, 0)

	byType := GroupBy(fixture(), GroupType, categories)
	require.Len(t, byType.Groups, 3)
	assert.Equal(t, "work", byType.Groups[0].Key)
	assert.Equal(t, 2, byType.Groups[0].Total)
	assert.Equal(t, "other", byType.Groups[2].Key)

	byStatus := GroupBy(fixture(), GroupStatus, categories)
	assert.Equal(t, "planned", byStatus.Groups[0].Key)
	assert.Equal(t, "canceled", byStatus.Groups[2].Key)
}

func TestTodayLoad(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	l := TodayLoad(fixture(), 2, now)
	assert.Equal(t, "2026-03-02", l.Date)
	assert.InDelta(t, 3.0, l.Hours, 0)
	assert.Equal(t, 150, l.Percent)
	assert.True(t, l.Over)

	// Canceled work on 2026-03-01 does not count.
	l = TodayLoad(fixture(), 8, now.AddDate(0, 0, -1))
	assert.InDelta(t, 0.0, l.Hours, 0)
	assert.False(t, l.Over)
}

func TestUrgentOpen(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, UrgentOpen(fixture()))
	assert.Equal(t, 0, UrgentOpen(nil))
}

func TestComputeBalance(t *testing.T) {
	t.Parallel()

	b := ComputeBalance(fixture(), categories)
	assert.InDelta(t, 5.0, b.WorkHours, 0)
	assert.InDelta(t, 1.0, b.LifeHours, 0)
	assert.InDelta(t, 1.5, b.OtherHours, 0)
	assert.Equal(t, 83, b.WorkPercent)
	assert.Equal(t, 17, b.LifePercent)

	empty := ComputeBalance(nil, categories)
	assert.Equal(t, 0, empty.WorkPercent)
	assert.Equal(t, 0, empty.LifePercent)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	s := &task.Snapshot{Settings: task.Settings{Capacity: 8, Categories: categories}, Tasks: fixture()}
	o := Summary("Week", s, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, 4, o.TotalTasks)
	require.Len(t, o.Statuses, 3)
	assert.Equal(t, 2, o.Statuses[0].Count)
	assert.InDelta(t, 3.5, o.Statuses[0].Hours, 0)
	assert.Equal(t, 2, o.UrgentOpen)
}

func TestParseIDs(t *testing.T) {
	t.Parallel()

	ids, err := ParseIDs("a1, b2,a1,,c3")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b2", "c3"}, ids)

	_, err = ParseIDs(" , ")
	assert.True(t, clierr.HasCode(err, clierr.InvalidTaskID))
}

func TestResolveID(t *testing.T) {
	t.Parallel()

	tasks := []task.Task{{ID: "abc123"}, {ID: "abd456"}, {ID: "ab"}}

	id, err := ResolveID(tasks, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	id, err = ResolveID(tasks, "ab")
	require.NoError(t, err)
	assert.Equal(t, "ab", id)

	_, err = ResolveID(tasks, "abx")
	assert.True(t, clierr.HasCode(err, clierr.TaskNotFound))

	_, err = ResolveID([]task.Task{{ID: "abc1"}, {ID: "abc2"}}, "abc")
	assert.True(t, clierr.HasCode(err, clierr.InvalidTaskID))
}

func TestActivityLog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	LogMutation(dir, ActionCreate, "a", "Study Math")
	LogMutation(dir, ActionDelete, "a", "")
	LogMutation("", ActionCreate, "ignored", "")

	entries, err := ReadLog(dir, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionCreate, entries[0].Action)
	assert.Equal(t, "a", entries[1].TaskID)

	last, err := ReadLog(dir, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, ActionDelete, last[0].Action)

	info, err := os.Stat(LogPath(dir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(logFileMode), info.Mode().Perm())
}
