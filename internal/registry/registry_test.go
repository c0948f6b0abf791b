package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/seed"
	"github.com/twiced-technology-gmbh/equilibrium/internal/store"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var testCategories = []task.Category{
	{ID: "academic", Label: "Academic", Color: "39", Type: task.TypeWork},
	{ID: "fitness", Label: "Fitness", Color: "42", Type: task.TypeLife},
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	reg   *Registry
	bs    *store.MemoryStore
	gw    *store.Gateway
	clock *clock
	dir   string
}

func newFixture(t *testing.T, src seed.Source) *fixture {
	t.Helper()
	f := &fixture{
		bs:    store.NewMemoryStore(),
		clock: &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		dir:   t.TempDir(),
	}
	f.gw = store.NewGateway(f.bs, "")
	n := 0
	f.reg = New(Options{
		Name:       "Test",
		Gateway:    f.gw,
		Seed:       src,
		Categories: testCategories,
		LogDir:     f.dir,
		Now:        f.clock.now,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	return f
}

func studyMath() task.Task {
	return task.Task{
		Title:    "Study Math",
		Date:     "2024-03-01",
		Duration: 1.5,
		Category: "academic",
		Status:   task.StatusPlanned,
	}
}

type staticSeed struct {
	s   *seed.Seed
	err error
}

func (s staticSeed) Fetch(context.Context) (*seed.Seed, error) { return s.s, s.err }

func TestCreate_StudyMath(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	created, err := f.reg.Create(studyMath())
	require.NoError(t, err)

	assert.Equal(t, "id-1", created.ID)
	assert.Equal(t, f.clock.t, created.CreatedAt)
	assert.Equal(t, f.clock.t, created.UpdatedAt)
	assert.Equal(t, task.DefaultTime, created.Time)
	require.Len(t, f.reg.Tasks(), 1)

	stored, ok := f.gw.Load()
	require.True(t, ok)
	assert.Equal(t, []task.Task{created}, stored.Tasks)

	entries, err := board.ReadLog(f.dir, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, board.ActionCreate, entries[0].Action)
}

func TestCreate_DuplicateWordRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	c := studyMath()
	c.Title = "Gym Gym"
	_, err := f.reg.Create(c)

	var errs task.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, task.TitleDuplicateWord, errs[task.FieldTitle].Code)
	assert.Empty(t, f.reg.Tasks())
	assert.Empty(t, f.bs.Keys(), "nothing persisted")
}

func TestCreate_UnknownCategoryRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	c := studyMath()
	c.Category = "hobby"
	_, err := f.reg.Create(c)

	var errs task.Errors
	require.ErrorAs(t, err, &errs)
	assert.True(t, errs.Has(task.CategoryUnknown))
}

func TestCreate_IgnoresCallerIdentity(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	c := studyMath()
	c.ID = "mine"
	c.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	c.CancelReason = "not canceled"
	c.Status = ""

	created, err := f.reg.Create(c)
	require.NoError(t, err)
	assert.NotEqual(t, "mine", created.ID)
	assert.Equal(t, f.clock.t, created.CreatedAt)
	assert.Equal(t, task.StatusPlanned, created.Status)
	assert.Empty(t, created.CancelReason)
}

func TestUpdate_CancelWithoutReasonRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	created, err := f.reg.Create(studyMath())
	require.NoError(t, err)

	canceled := task.StatusCanceled
	_, err = f.reg.Update(created.ID, task.Patch{Status: &canceled})

	var errs task.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, task.CancelReasonRequired, errs[task.FieldCancelReason].Code)

	stored, ok := f.reg.Task(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, stored)
}

func TestUpdate_CancelWithReason(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	created, err := f.reg.Create(studyMath())
	require.NoError(t, err)
	f.clock.advance(time.Hour)

	canceled := task.StatusCanceled
	reason := "exam moved"
	updated, err := f.reg.Update(created.ID, task.Patch{Status: &canceled, CancelReason: &reason})
	require.NoError(t, err)

	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, f.clock.t, updated.UpdatedAt)
	assert.Equal(t, task.StatusCanceled, updated.Status)

	// Reverting to planned drops the reason.
	planned := task.StatusPlanned
	reverted, err := f.reg.Update(created.ID, task.Patch{Status: &planned})
	require.NoError(t, err)
	assert.Empty(t, reverted.CancelReason)
}

func TestUpdate_NotFoundAndNoChanges(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	title := "Other"
	_, err := f.reg.Update("missing", task.Patch{Title: &title})
	assert.True(t, clierr.HasCode(err, clierr.TaskNotFound))

	created, err := f.reg.Create(studyMath())
	require.NoError(t, err)
	_, err = f.reg.Update(created.ID, task.Patch{})
	assert.True(t, clierr.HasCode(err, clierr.NoChanges))
}

func TestUpdate_DanglingCategoryStaysEditable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	res := f.reg.Import([]byte(`{"tasks":[{"id":"x","title":"Paint","date":"2024-03-02","duration":1,"category":"hobby","status":"planned"}]}`))
	require.True(t, res.Success)

	title := "Paint walls"
	updated, err := f.reg.Update("x", task.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "hobby", updated.Category)

	other := "gardening"
	_, err = f.reg.Update("x", task.Patch{Category: &other})
	var errs task.Errors
	require.ErrorAs(t, err, &errs)
	assert.True(t, errs.Has(task.CategoryUnknown))
}

func TestDelete_AbsentIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	created, err := f.reg.Create(studyMath())
	require.NoError(t, err)
	before := f.reg.Tasks()

	assert.False(t, f.reg.Delete("nope"))
	assert.Equal(t, before, f.reg.Tasks())

	assert.True(t, f.reg.Delete(created.ID))
	assert.Empty(t, f.reg.Tasks())
	stored, ok := f.gw.Load()
	require.True(t, ok)
	assert.Empty(t, stored.Tasks)
}

func TestSetCapacity(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	require.NoError(t, f.reg.SetCapacity(6.5))
	assert.InDelta(t, 6.5, f.reg.Settings().Capacity, 0)

	for _, v := range []float64{0, -1} {
		err := f.reg.SetCapacity(v)
		assert.True(t, clierr.HasCode(err, clierr.InvalidCapacity), "capacity %v", v)
	}
	assert.InDelta(t, 6.5, f.reg.Settings().Capacity, 0)
}

func TestSetViewDate(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	require.NoError(t, f.reg.SetViewDate(11, 2025))
	assert.Equal(t, date.ViewMonth{Month: 11, Year: 2025}, f.reg.ViewDate())
	assert.Error(t, f.reg.SetViewDate(12, 2025))
}

func TestInitialize_Restored(t *testing.T) {
	t.Parallel()
	f := newFixture(t, staticSeed{err: errors.New("must not be called")})

	snap := &task.Snapshot{
		Settings: task.Settings{Capacity: 5},
		Tasks:    []task.Task{{ID: "r", Title: "Stored", Date: "2024-03-01", Category: "academic", Status: task.StatusPlanned}},
		ViewDate: date.ViewMonth{Month: 2, Year: 2024},
	}
	require.True(t, f.gw.Save(snap))

	state, err := f.reg.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRestored, state)
	assert.InDelta(t, 5.0, f.reg.Settings().Capacity, 0)
	assert.Equal(t, testCategories, f.reg.Settings().Categories)
	assert.Len(t, f.reg.Tasks(), 1)
}

func TestInitialize_Seeded(t *testing.T) {
	t.Parallel()
	f := newFixture(t, staticSeed{s: &seed.Seed{
		DailyCapacity: 7,
		Tasks: []task.Task{
			{ID: "s1", Title: "Morning run", Date: "2024-03-01", Duration: 0.5, Category: "fitness", Status: task.StatusCompleted},
			{ID: "s1", Title: "Duplicate id", Date: "2024-03-01", Duration: 1, Category: "fitness", Status: task.StatusPlanned},
			{Title: " bad", Date: "2024-03-01", Duration: 1, Category: "fitness", Status: task.StatusPlanned},
		},
	}})

	state, err := f.reg.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSeeded, state)

	tasks := f.reg.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "s1", tasks[0].ID)
	assert.NotEqual(t, "s1", tasks[1].ID)
	assert.False(t, tasks[0].CreatedAt.IsZero())
	assert.InDelta(t, 7.0, f.reg.Settings().Capacity, 0)

	_, ok := f.gw.Load()
	assert.True(t, ok, "seeded snapshot persisted")
}

func TestInitialize_SeedFailureIsEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, staticSeed{err: errors.New("offline")})

	state, err := f.reg.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, state)
	assert.Empty(t, f.reg.Tasks())
	assert.InDelta(t, DefaultCapacity, f.reg.Settings().Capacity, 0)
}

func TestInitialize_CanceledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seed.Embedded{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := f.reg.Initialize(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateEmpty, state)
}

func TestImport_RejectsInvalidRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	created, err := f.reg.Create(studyMath())
	require.NoError(t, err)

	res := f.reg.Import([]byte(`{"tasks":[{"id":"a","title":"Fine","date":"2024-03-01","duration":1,"status":"planned"},{"id":"b","title":"Bad","date":"2024-13-01","duration":1,"status":"planned"}]}`))
	assert.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, clierr.ValidationFailed, res.Err.Code)
	assert.Equal(t, 1, res.Err.Details["index"])
	assert.Equal(t, []task.Task{created}, f.reg.Tasks())
}

func TestImport_RejectsMalformedRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	created, err := f.reg.Create(studyMath())
	require.NoError(t, err)

	res := f.reg.Import([]byte(`{"tasks":[{"id":"a","title":"Fine","date":"2024-03-01","duration":1,"status":"planned"},{"title":"x","duration":"1.5"}]}`))
	assert.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, clierr.ValidationFailed, res.Err.Code)
	assert.Equal(t, 1, res.Err.Details["index"])
	assert.Equal(t, []task.Task{created}, f.reg.Tasks())
}

func TestImport_UnreadableSettingsKeepCurrent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	before := f.reg.Settings()
	view := f.reg.ViewDate()

	res := f.reg.Import([]byte(`{"tasks":[{"id":"a","title":"Fine","date":"2024-03-01","duration":1,"status":"planned"}],"settings":{"capacity":"8"},"viewDate":"march"}`))
	require.True(t, res.Success, "%v", res.Err)
	assert.Equal(t, before.Capacity, f.reg.Settings().Capacity)
	assert.Equal(t, before.Categories, f.reg.Settings().Categories)
	assert.Equal(t, view, f.reg.ViewDate())
	assert.Len(t, f.reg.Tasks(), 1)
}

func TestImport_RejectsDuplicateIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	res := f.reg.Import([]byte(`{"tasks":[{"id":"a","title":"One","date":"2024-03-01","status":"planned"},{"id":"a","title":"Two","date":"2024-03-01","status":"planned"}]}`))
	assert.False(t, res.Success)
	assert.Equal(t, clierr.DuplicateTaskID, res.Err.Code)
}

func TestImport_StructuralFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	res := f.reg.Import([]byte(`{"settings":{}}`))
	assert.False(t, res.Success)
	assert.Equal(t, clierr.ImportStructure, res.Err.Code)
}

func TestExportImport_RoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	for _, title := range []string{"Study Math", "Read notes", "Swim laps"} {
		c := studyMath()
		c.Title = title
		_, err := f.reg.Create(c)
		require.NoError(t, err)
	}
	require.NoError(t, f.reg.SetCapacity(6))
	want := f.reg.Snapshot()

	exp, err := f.reg.Export()
	require.NoError(t, err)
	assert.Equal(t, "test-2024-03-01.json", exp.Filename)

	other := newFixture(t, nil)
	res := other.reg.Import(exp.Data)
	require.True(t, res.Success)
	assert.Equal(t, want, other.reg.Snapshot())
}

func TestWipe(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.reg.Create(studyMath())
	require.NoError(t, err)
	require.NoError(t, f.reg.SetCapacity(3))

	require.NoError(t, f.reg.Wipe())
	assert.Empty(t, f.reg.Tasks())
	assert.InDelta(t, DefaultCapacity, f.reg.Settings().Capacity, 0)
	assert.Empty(t, f.bs.Keys())
	require.NoError(t, f.reg.Wipe())
}

func TestSaveFailureKeepsLiveState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.bs.FailPut = errors.New("disk full")

	_, err := f.reg.Create(studyMath())
	require.NoError(t, err)
	assert.Len(t, f.reg.Tasks(), 1)
	assert.False(t, f.reg.LastSaveOK())
}

func TestReload(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	assert.False(t, f.reg.Reload())

	require.True(t, f.gw.Save(&task.Snapshot{Tasks: []task.Task{{ID: "ext", Title: "External"}}}))
	require.True(t, f.reg.Reload())
	tasks := f.reg.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "ext", tasks[0].ID)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	c := studyMath()
	c.Urgent = true
	_, err := f.reg.Create(c)
	require.NoError(t, err)

	gym := studyMath()
	gym.Title = "Gym"
	gym.Category = "fitness"
	gym.Duration = 0.5
	_, err = f.reg.Create(gym)
	require.NoError(t, err)

	o := f.reg.Summary()
	assert.InDelta(t, 2.0, o.Today.Hours, 0)
	assert.Equal(t, 1, o.UrgentOpen)
	assert.Equal(t, 75, o.Balance.WorkPercent)
	assert.Equal(t, 25, o.Balance.LifePercent)
}

func TestProperty_RejectedCreateLeavesCollectionUnchanged(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		f := &fixture{bs: store.NewMemoryStore(), clock: &clock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}}
		f.gw = store.NewGateway(f.bs, "")
		f.reg = New(Options{Gateway: f.gw, Categories: testCategories, Now: f.clock.now})

		_, err := f.reg.Create(studyMath())
		require.NoError(rt, err)
		before := f.reg.Tasks()

		c := studyMath()
		c.Duration = rapid.Float64Range(0, 24).Filter(func(d float64) bool {
			return d*4 != float64(int(d*4))
		}).Draw(rt, "duration")

		_, err = f.reg.Create(c)
		require.Error(rt, err)
		assert.Equal(rt, before, f.reg.Tasks())
	})
}

func TestDescribeChange(t *testing.T) {
	t.Parallel()

	old := task.Task{Title: "Gym", Date: "2024-03-01", Time: "07:00", Status: task.StatusPlanned, Notes: "Bring water"}

	assert.Equal(t, "Gym", describeChange(old, old))

	done := old
	done.Status = task.StatusCompleted
	assert.Equal(t, "planned -> completed", describeChange(old, done))

	edited := old
	edited.Title = "Gym session"
	edited.Time = "08:00"
	edited.Notes = "Bring water and towel"
	assert.Equal(t, `title "Gym" -> "Gym session"; moved to 2024-03-01 08:00; notes +10/-0`,
		describeChange(old, edited))
}

func TestTextDelta(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "+0/-0", textDelta("same", "same"))
	assert.Equal(t, "+3/-0", textDelta("", "abc"))
	assert.Equal(t, "+0/-5", textDelta("hello", ""))
}
