package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

func sampleTasks() []task.Task {
	return []task.Task{
		{ID: "1", Title: "Study Math", Category: "academic", Status: task.StatusPlanned},
		{ID: "2", Title: "Gym session", Category: "fitness", Notes: "leg day", Status: task.StatusPlanned},
		{ID: "3", Title: "Team sync", Category: "work", Status: task.StatusCanceled, CancelReason: "manager out sick"},
		{ID: "4", Title: "Read novel", Category: "leisure", Status: task.StatusCompleted},
	}
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestCompile_EmptyPatternMatchesAll(t *testing.T) {
	t.Parallel()

	m, err := Compile("", Options{})
	require.NoError(t, err)
	require.NotNil(t, m)

	tasks := sampleTasks()
	assert.Equal(t, ids(tasks), ids(Filter(tasks, m)))
}

func TestCompile_InvalidPatternIsNil(t *testing.T) {
	t.Parallel()

	m, err := Compile("[", Options{})
	assert.Nil(t, m)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "[", ce.Pattern)
	assert.Equal(t, clierr.InvalidPattern, ce.CLIError().Code)

	tasks := sampleTasks()
	assert.Equal(t, tasks, Filter(tasks, m), "nil matcher applies no filtering")
}

func TestCompileOrNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, CompileOrNil("(", Options{}))

	m := CompileOrNil(`^study\s`, Options{})
	require.NotNil(t, m)
	assert.Equal(t, []string{"1"}, ids(Filter(sampleTasks(), m)))
	assert.False(t, m.CaseSensitive())
}

func TestFilter_SearchesAllFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		want    []string
	}{
		{"math", []string{"1"}},
		{"leg\\s+day", []string{"2"}},
		{"fitness", []string{"2"}},
		{"sick$", []string{"3"}},
		{"^read", []string{"4"}},
		{"s(tudy|ync)", []string{"1", "3"}},
		{"undefined|null", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			t.Parallel()
			m, err := Compile(tt.pattern, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(Filter(sampleTasks(), m)))
		})
	}
}

func TestFilter_CaseSensitivity(t *testing.T) {
	t.Parallel()

	insensitive, err := Compile("STUDY", Options{})
	require.NoError(t, err)
	sensitive, err := Compile("STUDY", Options{CaseSensitive: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, ids(Filter(sampleTasks(), insensitive)))
	assert.Empty(t, Filter(sampleTasks(), sensitive))
	assert.True(t, sensitive.CaseSensitive())
}

func TestMatcher_StatelessAcrossRecords(t *testing.T) {
	t.Parallel()

	m, err := Compile("a", Options{})
	require.NoError(t, err)

	// The same record must match every time regardless of earlier matches.
	rec := task.Task{Title: "a"}
	for i := 0; i < 5; i++ {
		assert.True(t, m.MatchTask(&rec))
	}
}

func TestHighlight(t *testing.T) {
	t.Parallel()

	m, err := Compile("ö+|x", Options{})
	require.NoError(t, err)

	spans := Highlight("Jöö xö", m)
	assert.Equal(t, []Span{{1, 3}, {4, 5}, {5, 6}}, spans)
	assert.Nil(t, Highlight("abc", nil))
}

func TestCompiler_CachesMatchers(t *testing.T) {
	t.Parallel()

	c := NewCompiler(0, DefaultCacheExpiration)
	m1, err := c.Compile("gym", Options{})
	require.NoError(t, err)
	m2, err := c.Compile("gym", Options{})
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	m3, err := c.Compile("gym", Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.NotSame(t, m1, m3)

	_, err = c.Compile("(", Options{})
	require.Error(t, err)
	assert.Equal(t, 2, c.Len())

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestProperty_FilterIsOrderedSubsequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		tasks := make([]task.Task, n)
		for i := range tasks {
			tasks[i] = task.Task{
				ID:    string(rune('a' + i)),
				Title: rapid.StringMatching(`[a-c ]{0,6}`).Draw(t, "title"),
			}
		}
		pattern := rapid.StringMatching(`[a-c]{1,2}`).Draw(t, "pattern")
		m, err := Compile(pattern, Options{})
		if err != nil {
			t.Fatalf("compile %q: %v", pattern, err)
		}

		got := Filter(tasks, m)
		j := 0
		for _, g := range got {
			for j < len(tasks) && tasks[j].ID != g.ID {
				j++
			}
			if j == len(tasks) {
				t.Fatalf("result %v is not an ordered subsequence", ids(got))
			}
			j++
		}
	})
}
