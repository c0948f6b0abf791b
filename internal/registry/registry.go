// Package registry owns the live registry snapshot. It is the only component
// allowed to mutate task records: every mutation is validated first, applied
// atomically under a lock, persisted through the store gateway and recorded in
// the activity log.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/seed"
	"github.com/twiced-technology-gmbh/equilibrium/internal/store"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
	"github.com/twiced-technology-gmbh/equilibrium/internal/tracing"
)

// DefaultCapacity is the daily capacity used when nothing else provides one.
const DefaultCapacity = 8.0

// InitState reports where the live snapshot came from.
type InitState int

const (
	StateEmpty InitState = iota
	StateRestored
	StateSeeded
)

func (s InitState) String() string {
	switch s {
	case StateRestored:
		return "restored"
	case StateSeeded:
		return "seeded"
	default:
		return "empty"
	}
}

// Defaults are applied to new records and fresh snapshots.
type Defaults struct {
	Time     string
	Status   task.Status
	Capacity float64
}

// Options configures a Registry. Gateway is required.
type Options struct {
	Name        string
	Gateway     *store.Gateway
	Seed        seed.Source // nil disables seeding
	SeedTimeout time.Duration
	Categories  []task.Category
	Defaults    Defaults
	LogDir      string // activity log directory; empty disables the log
	Now         func() time.Time
	NewID       func() string
}

// Registry wraps the live snapshot.
type Registry struct {
	mu         sync.Mutex
	snap       *task.Snapshot
	lastSaveOK bool

	name        string
	gw          *store.Gateway
	seed        seed.Source
	seedTimeout time.Duration
	categories  []task.Category
	defaults    Defaults
	logDir      string
	now         func() time.Time
	newID       func() string
}

// New creates a Registry holding an empty snapshot. Call Initialize to restore
// or seed it.
func New(opts Options) *Registry {
	r := &Registry{
		name:        opts.Name,
		gw:          opts.Gateway,
		seed:        opts.Seed,
		seedTimeout: opts.SeedTimeout,
		categories:  slices.Clone(opts.Categories),
		defaults:    opts.Defaults,
		logDir:      opts.LogDir,
		now:         opts.Now,
		newID:       opts.NewID,
		lastSaveOK:  true,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.defaults.Time == "" {
		r.defaults.Time = task.DefaultTime
	}
	if !r.defaults.Status.Valid() {
		r.defaults.Status = task.StatusPlanned
	}
	if r.defaults.Capacity <= 0 {
		r.defaults.Capacity = DefaultCapacity
	}
	r.snap = r.emptySnapshot()
	return r
}

func (r *Registry) emptySnapshot() *task.Snapshot {
	return &task.Snapshot{
		Settings: task.Settings{
			Capacity:   r.defaults.Capacity,
			Categories: slices.Clone(r.categories),
		},
		Tasks:    []task.Task{},
		ViewDate: date.CurrentMonth(r.now()),
	}
}

// Initialize restores the durable snapshot, or seeds a fresh one when nothing
// (or an empty task list) was stored. A failed seed fetch leaves the registry
// empty; the returned error is non-nil only when ctx itself was canceled.
func (r *Registry) Initialize(ctx context.Context) (state InitState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := tracing.Start(ctx, "registry.initialize")
	defer func() {
		span.SetAttributes(
			attribute.String(tracing.AttrInitState, state.String()),
			attribute.Int(tracing.AttrTaskCount, len(r.snap.Tasks)),
		)
		tracing.RecordError(span, err)
		span.End()
	}()

	loaded, ok := r.gw.Load()
	if ok && len(loaded.Tasks) > 0 {
		r.snap = r.fillSettings(loaded)
		log.Info(log.CatRegistry, "snapshot restored", "tasks", len(r.snap.Tasks))
		return StateRestored, nil
	}

	base := r.emptySnapshot()
	if ok {
		base = r.fillSettings(loaded)
	}
	r.snap = base

	if r.seed == nil {
		return StateEmpty, nil
	}
	s, err := seed.Fetch(ctx, r.seed, r.seedTimeout)
	if err != nil {
		log.Warn(log.CatRegistry, "starting with an empty registry", "reason", err)
		return StateEmpty, ctx.Err()
	}

	tasks := r.prepareSeed(s.Tasks)
	if len(tasks) == 0 {
		return StateEmpty, nil
	}
	r.snap.Tasks = tasks
	if !ok && s.DailyCapacity > 0 {
		r.snap.Settings.Capacity = s.DailyCapacity
	}
	r.persist()
	board.LogMutation(r.logDir, board.ActionSeed, "", fmt.Sprintf("%d tasks", len(tasks)))
	log.Info(log.CatRegistry, "registry seeded", "tasks", len(tasks))
	return StateSeeded, nil
}

// fillSettings completes a stored snapshot with configured values where the
// stored one has none.
func (r *Registry) fillSettings(s *task.Snapshot) *task.Snapshot {
	s = s.Clone()
	if s.Settings.Capacity <= 0 || task.ValidateCapacity(s.Settings.Capacity) != nil {
		s.Settings.Capacity = r.defaults.Capacity
	}
	if len(s.Settings.Categories) == 0 {
		s.Settings.Categories = slices.Clone(r.categories)
	}
	if !s.ViewDate.Valid() {
		s.ViewDate = date.CurrentMonth(r.now())
	}
	return s
}

// prepareSeed backfills identity and timestamps and drops records that fail
// validation or repeat an id.
func (r *Registry) prepareSeed(in []task.Task) []task.Task {
	out := make([]task.Task, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		r.backfill(&t, seen)
		if errs := task.Validate(t, nil); len(errs) > 0 {
			log.Warn(log.CatRegistry, "skipping invalid seed record", "id", t.ID, "reason", errs.Error())
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

// backfill assigns a fresh id when t has none or reuses one in seen, and fills
// missing timestamps.
func (r *Registry) backfill(t *task.Task, seen map[string]bool) {
	if t.ID == "" || seen[t.ID] {
		t.ID = r.uniqueID(seen)
	}
	task.Normalize(t, r.defaults.Time)
	if t.CreatedAt.IsZero() {
		task.StampCreated(t, r.now())
	} else if t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
}

func (r *Registry) uniqueID(taken map[string]bool) string {
	for {
		id := r.newID()
		if !taken[id] && r.snap.IndexOf(id) < 0 {
			return id
		}
	}
}

// persist saves the live snapshot. Callers hold r.mu.
func (r *Registry) persist() {
	r.lastSaveOK = r.gw.Save(r.snap)
}

// LastSaveOK reports whether the most recent save reached the store.
func (r *Registry) LastSaveOK() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSaveOK
}

// Reload replaces the live snapshot with the durable copy, if one exists.
// It is used when another process changed the store.
func (r *Registry) Reload() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	loaded, ok := r.gw.Load()
	if !ok {
		return false
	}
	r.snap = r.fillSettings(loaded)
	log.Debug(log.CatRegistry, "snapshot reloaded", "tasks", len(r.snap.Tasks))
	return true
}

// Name returns the registry's display name.
func (r *Registry) Name() string { return r.name }

// Tasks returns a copy of the task collection in stored order.
func (r *Registry) Tasks() []task.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.snap.Tasks)
}

// Task returns a copy of the task with id.
func (r *Registry) Task(id string) (task.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.snap.IndexOf(id)
	if i < 0 {
		return task.Task{}, false
	}
	return r.snap.Tasks[i], true
}

// Settings returns a copy of the registry settings.
func (r *Registry) Settings() task.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap.Settings
	s.Categories = slices.Clone(s.Categories)
	return s
}

// ViewDate returns the persisted calendar cursor.
func (r *Registry) ViewDate() date.ViewMonth {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.ViewDate
}

// Snapshot returns a deep copy of the live snapshot.
func (r *Registry) Snapshot() *task.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Clone()
}

// Summary computes the derived aggregates on demand.
func (r *Registry) Summary() board.Overview {
	r.mu.Lock()
	defer r.mu.Unlock()
	return board.Summary(r.name, r.snap, r.now())
}

// Defaults returns the values applied to new records.
func (r *Registry) Defaults() Defaults { return r.defaults }

func invalidViewDate(v date.ViewMonth) error {
	return clierr.Newf(clierr.InvalidInput, "invalid view date %d/%d: month must be 0-11", v.Month, v.Year).
		WithDetails(map[string]any{"month": v.Month, "year": v.Year})
}
