package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var fixedNow = time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)

func sampleSnapshot() *task.Snapshot {
	return &task.Snapshot{
		Settings: task.Settings{
			Capacity: 8,
			Categories: []task.Category{
				{ID: "academic", Label: "Academic", Color: "39", Type: task.TypeWork},
				{ID: "fitness", Label: "Fitness", Color: "42", Type: task.TypeLife},
			},
		},
		Tasks: []task.Task{
			{
				ID: "a1", Title: "Study Math", Date: "2026-03-14", Time: "09:00", Duration: 1.5,
				Category: "academic", Status: task.StatusPlanned, CreatedAt: fixedNow, UpdatedAt: fixedNow,
			},
			{
				ID: "b2", Title: "Gym", Date: "2026-03-14", Time: "18:00", Duration: 1,
				Category: "fitness", Status: task.StatusCanceled, CancelReason: "knee hurts",
				CreatedAt: fixedNow, UpdatedAt: fixedNow,
			},
		},
		ViewDate: date.ViewMonth{Month: 2, Year: 2026},
	}
}

func backends(t *testing.T) map[string]ByteStore {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]ByteStore{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": db,
	}
}

func TestByteStores_PutGetDelete(t *testing.T) {
	for name, bs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := bs.Get("missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, bs.Put("k", []byte("one")))
			require.NoError(t, bs.Put("k", []byte("two")))

			got, err := bs.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "two", string(got))

			require.NoError(t, bs.Delete("k"))
			require.NoError(t, bs.Delete("k"))
			_, err = bs.Get("k")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGateway_SaveLoadRoundTrip(t *testing.T) {
	for name, bs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g := NewGateway(bs, "")
			assert.Equal(t, DefaultKey, g.Key())

			_, ok := g.Load()
			assert.False(t, ok)

			want := sampleSnapshot()
			require.True(t, g.Save(want))

			got, ok := g.Load()
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestGateway_LoadCorruptIsAbsent(t *testing.T) {
	t.Parallel()

	bs := NewMemoryStore()
	require.NoError(t, bs.Put(DefaultKey, []byte("{not json")))

	g := NewGateway(bs, "")
	s, ok := g.Load()
	assert.False(t, ok)
	assert.Nil(t, s)
}

func TestGateway_SaveFailureReturnsFalse(t *testing.T) {
	t.Parallel()

	bs := NewMemoryStore()
	bs.FailPut = errors.New("quota exceeded")

	g := NewGateway(bs, "")
	assert.False(t, g.Save(sampleSnapshot()))
	assert.Empty(t, bs.Keys())
}

func TestGateway_ClearIsIdempotent(t *testing.T) {
	t.Parallel()

	bs := NewMemoryStore()
	g := NewGateway(bs, "custom")
	require.True(t, g.Save(sampleSnapshot()))
	assert.Equal(t, []string{"custom"}, bs.Keys())

	require.NoError(t, g.Clear())
	require.NoError(t, g.Clear())

	_, ok := g.Load()
	assert.False(t, ok)
}

func TestFileStore_WritesPrivateFile(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.Put(DefaultKey, []byte(`{"tasks":[]}`)))

	info, err := os.Stat(fs.Path(DefaultKey))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestExportImport_RoundTrip(t *testing.T) {
	t.Parallel()

	want := sampleSnapshot()
	exp, err := ExportSnapshot(want, "My Registry", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "my-registry-2026-03-14.json", exp.Filename)
	assert.Contains(t, string(exp.Data), "\n  \"settings\"")

	res := ImportSnapshot(exp.Data)
	require.True(t, res.Success)
	require.Nil(t, res.Err)
	assert.Equal(t, want, res.Data)
}

func TestExportFilename_EmptyName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "equilibrium-2026-03-14.json", ExportFilename("  ", fixedNow))
}

func TestImportSnapshot_Structure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"empty tasks", `{"tasks":[]}`, true},
		{"tasks without settings", `{"tasks":[{"id":"x","title":"Swim"}]}`, true},
		{"invalid records still pass", `{"tasks":[{"title":" padded "}]}`, true},
		{"mistyped record field", `{"tasks":[{"title":"x","duration":"1.5"}]}`, true},
		{"non-object records", `{"tasks":[1,2]}`, true},
		{"unreadable viewDate", `{"tasks":[],"viewDate":"march"}`, true},
		{"unreadable settings", `{"tasks":[],"settings":{"capacity":"8"}}`, true},
		{"missing tasks", `{"settings":{"capacity":8}}`, false},
		{"null tasks", `{"tasks":null}`, false},
		{"tasks not a list", `{"tasks":{"a":1}}`, false},
		{"array at top", `[{"tasks":[]}]`, false},
		{"null document", `null`, false},
		{"not json", `tasks: []`, false},
		{"empty input", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := ImportSnapshot([]byte(tt.input))
			assert.Equal(t, tt.ok, res.Success)
			if tt.ok {
				require.NotNil(t, res.Data)
				assert.NotNil(t, res.Data.Tasks)
				assert.Nil(t, res.Err)
			} else {
				assert.Nil(t, res.Data)
				require.NotNil(t, res.Err)
				assert.Equal(t, "IMPORT_STRUCTURE", res.Err.Code)
			}
		})
	}
}

func TestImportSnapshot_ReportsMalformedRecords(t *testing.T) {
	t.Parallel()

	res := ImportSnapshot([]byte(`{"tasks":[{"id":"a","title":"Swim"},1,{"title":"x","duration":"1.5"},null]}`))
	require.True(t, res.Success)
	require.Len(t, res.Data.Tasks, 4)
	assert.Equal(t, "Swim", res.Data.Tasks[0].Title)
	assert.Equal(t, task.Task{}, res.Data.Tasks[2])

	indexes := make([]int, 0, len(res.Malformed))
	for _, m := range res.Malformed {
		indexes = append(indexes, m.Index)
		assert.Error(t, m.Err)
	}
	assert.Equal(t, []int{1, 2, 3}, indexes)
}

func TestImportSnapshot_LenientSettings(t *testing.T) {
	t.Parallel()

	res := ImportSnapshot([]byte(`{"tasks":[],"settings":{"capacity":"8","categories":[{"id":"run","type":"life"}]},"viewDate":"march"}`))
	require.True(t, res.Success)
	assert.Empty(t, res.Malformed)
	assert.Zero(t, res.Data.Settings.Capacity)
	require.Len(t, res.Data.Settings.Categories, 1)
	assert.Equal(t, "run", res.Data.Settings.Categories[0].ID)
	assert.False(t, res.Data.ViewDate.Valid())

	res = ImportSnapshot([]byte(`{"tasks":[],"settings":"big","viewDate":{"month":2,"year":2024}}`))
	require.True(t, res.Success)
	assert.Zero(t, res.Data.Settings.Capacity)
	assert.Equal(t, 2, res.Data.ViewDate.Month)
}

func TestImportSnapshot_PreservesUnknownCategories(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(map[string]any{
		"tasks": []map[string]any{{"id": "z", "title": "Paint", "category": "hobby"}},
	})
	require.NoError(t, err)

	res := ImportSnapshot(raw)
	require.True(t, res.Success)
	assert.Equal(t, "hobby", res.Data.Tasks[0].Category)
}

func TestGenerateSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Equilibrium", "equilibrium"},
		{"My  Busy -- Week!", "my-busy-week"},
		{"", ""},
		{"this is a very long registry name that keeps going and going forever", "this-is-a-very-long-registry-name-that-keeps-going"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateSlug(tt.in), tt.in)
	}
}
