package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/search"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

func TestParseCategories(t *testing.T) {
	got, err := parseCategories([]string{"deep:work", "yoga:life:Yoga class:120"})
	require.NoError(t, err)
	assert.Equal(t, []task.Category{
		{ID: "deep", Type: task.TypeWork, Label: "deep"},
		{ID: "yoga", Type: task.TypeLife, Label: "Yoga class", Color: "120"},
	}, got)

	_, err = parseCategories([]string{"nocolon"})
	assert.True(t, clierr.HasCode(err, clierr.InvalidInput))

	_, err = parseCategories([]string{":work"})
	assert.Error(t, err)
}

func TestAppendNotes(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "first", appendNotes("", "first", false, now))
	assert.Equal(t, "old\n\nnew", appendNotes("old\n\n\n", "new", false, now))
	assert.Equal(t, "[[2024-03-01]] Fri 14:30\nnew", appendNotes("", "new", true, now))
}

func TestParseCapacity(t *testing.T) {
	v, err := parseCapacity("6.5")
	require.NoError(t, err)
	assert.InDelta(t, 6.5, v, 1e-9)

	_, err = parseCapacity("lots")
	assert.True(t, clierr.HasCode(err, clierr.InvalidCapacity))

	_, err = parseCapacity("0")
	assert.True(t, clierr.HasCode(err, clierr.InvalidCapacity))
}

func TestConfigAccessors(t *testing.T) {
	cfg := config.NewDefault("Test")
	accessors := configAccessors()

	for _, key := range allConfigKeys() {
		_, ok := accessors[key]
		assert.True(t, ok, "missing accessor for %s", key)
	}
	assert.Len(t, accessors, len(allConfigKeys()))

	acc := accessors["defaults.status"]
	require.True(t, acc.writable)
	require.NoError(t, acc.set(cfg, "Cancelled"))
	assert.Equal(t, "canceled", acc.get(cfg))
	assert.Error(t, acc.set(cfg, "someday"))

	require.NoError(t, accessors["tui.title_width"].set(cfg, "500"))
	assert.Error(t, cfg.Validate(), "range is checked by Validate")

	assert.False(t, accessors["store.backend"].writable)
}

func TestFormatConfigValue(t *testing.T) {
	assert.Equal(t, "8", formatConfigValue(8.0))
	assert.Equal(t, "--", formatConfigValue([]config.LoadThreshold{}))
	assert.Equal(t, "0%=34, 75%=226", formatConfigValue(config.DefaultLoadThresholds[:2]))
	assert.Equal(t, "work(work), fitness(life)", formatConfigValue([]task.Category{
		{ID: "work", Type: task.TypeWork},
		{ID: "fitness", Type: task.TypeLife},
	}))
}

func TestAsCLIError(t *testing.T) {
	assert.Nil(t, asCLIError(assert.AnError))

	e := asCLIError(config.ErrNotFound)
	require.NotNil(t, e)
	assert.Equal(t, clierr.RegistryNotFound, e.Code)

	_, err := search.Compile("(", search.Options{})
	e = asCLIError(err)
	require.NotNil(t, e)
	assert.Equal(t, clierr.InvalidPattern, e.Code)

	e = asCLIError(task.Validate(task.Task{}, nil))
	require.NotNil(t, e)
	assert.Equal(t, clierr.ValidationFailed, e.Code)
}
