package registry

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/store"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// Create validates candidate and appends it with a fresh id and timestamps.
// Caller-supplied id and timestamps are ignored. On failure the collection is
// unchanged and the error is a task.Errors.
func (r *Registry) Create(candidate task.Task) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := candidate
	t.ID = ""
	if t.Status == "" {
		t.Status = r.defaults.Status
	}
	task.Normalize(&t, r.defaults.Time)

	if errs := task.Validate(t, r.snap.Settings.Categories); len(errs) > 0 {
		log.Debug(log.CatRegistry, "create rejected", "title", t.Title, "reason", errs.Error())
		return task.Task{}, errs
	}

	t.ID = r.uniqueID(nil)
	task.StampCreated(&t, r.now())
	r.snap.Tasks = append(r.snap.Tasks, t)
	r.persist()

	board.LogMutation(r.logDir, board.ActionCreate, t.ID, t.Title)
	log.Info(log.CatRegistry, "task created", "id", t.ID)
	return t, nil
}

// Update merges patch into the task with id, validates the merged record and
// replaces it in place. createdAt is preserved and updatedAt is stamped. On
// failure the stored record is unchanged.
//
// The category reference is only checked when the patch changes it, so records
// whose category was dropped from configuration stay editable.
func (r *Registry) Update(id string, patch task.Patch) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.snap.IndexOf(id)
	if i < 0 {
		return task.Task{}, task.NotFound(id)
	}
	old := r.snap.Tasks[i]
	if patch.Empty() {
		return old, clierr.New(clierr.NoChanges, "no changes specified").
			WithDetails(map[string]any{"id": id})
	}

	merged := patch.Apply(old)
	task.Normalize(&merged, r.defaults.Time)

	var categories []task.Category
	if merged.Category != old.Category {
		categories = r.snap.Settings.Categories
	}
	if errs := task.Validate(merged, categories); len(errs) > 0 {
		log.Debug(log.CatRegistry, "update rejected", "id", id, "reason", errs.Error())
		return task.Task{}, errs
	}

	if !task.IsDefinedTransition(old.Status, merged.Status) {
		log.Warn(log.CatRegistry, "status transition outside the lifecycle",
			"id", id, "from", old.Status, "to", merged.Status)
	}

	merged.ID = old.ID
	merged.CreatedAt = old.CreatedAt
	task.StampUpdated(&merged, r.now())
	r.snap.Tasks[i] = merged
	r.persist()

	board.LogMutation(r.logDir, board.ActionUpdate, id, describeChange(old, merged))
	log.Info(log.CatRegistry, "task updated", "id", id)
	return merged, nil
}

// describeChange summarises an update for the activity log.
func describeChange(old, updated task.Task) string {
	var parts []string
	if old.Status != updated.Status {
		parts = append(parts, fmt.Sprintf("%s -> %s", old.Status, updated.Status))
	}
	if old.Title != updated.Title {
		parts = append(parts, fmt.Sprintf("title %q -> %q", old.Title, updated.Title))
	}
	if old.Date != updated.Date || old.Time != updated.Time {
		parts = append(parts, fmt.Sprintf("moved to %s %s", updated.Date, updated.Time))
	}
	if old.Notes != updated.Notes {
		parts = append(parts, "notes "+textDelta(old.Notes, updated.Notes))
	}
	if len(parts) == 0 {
		return updated.Title
	}
	return strings.Join(parts, "; ")
}

// textDelta reports inserted and deleted characters between two texts as "+N/-M".
func textDelta(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var inserted, deleted int
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffEqual:
		}
	}
	return fmt.Sprintf("+%d/-%d", inserted, deleted)
}

// Delete removes the task with id. Deleting an absent id is a no-op and
// reports false.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.snap.IndexOf(id)
	if i < 0 {
		log.Debug(log.CatRegistry, "delete of absent task ignored", "id", id)
		return false
	}
	title := r.snap.Tasks[i].Title
	r.snap.Tasks = slices.Delete(r.snap.Tasks, i, i+1)
	r.persist()

	board.LogMutation(r.logDir, board.ActionDelete, id, title)
	log.Info(log.CatRegistry, "task deleted", "id", id)
	return true
}

// SetCapacity replaces the daily capacity. Only positive finite values are
// accepted.
func (r *Registry) SetCapacity(v float64) error {
	if err := task.ValidateCapacity(v); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.snap.Settings.Capacity = v
	r.persist()
	board.LogMutation(r.logDir, board.ActionCapacity, "", fmt.Sprintf("%g", v))
	return nil
}

// SetViewDate moves the persisted calendar cursor. month is zero-based.
func (r *Registry) SetViewDate(month, year int) error {
	v := date.ViewMonth{Month: month, Year: year}
	if !v.Valid() {
		return invalidViewDate(v)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.snap.ViewDate = v
	r.persist()
	return nil
}

// Export renders the live snapshot as a dated JSON file.
func (r *Registry) Export() (store.Export, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return store.ExportSnapshot(r.snap, r.name, r.now())
}

// Import replaces the live snapshot with the one encoded in text. Beyond the
// gateway's structural check every record must pass validation (the category
// reference excepted) and ids must be unique; otherwise nothing changes.
// Missing ids and timestamps are backfilled, and settings absent from the
// import keep their current values.
func (r *Registry) Import(text []byte) store.ImportResult {
	res := store.ImportSnapshot(text)
	if !res.Success {
		log.Warn(log.CatRegistry, "import rejected", "reason", res.Err.Message)
		return res
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := res.Data
	malformed := make(map[int]error, len(res.Malformed))
	for _, m := range res.Malformed {
		malformed[m.Index] = m.Err
	}
	seen := make(map[string]bool, len(next.Tasks))
	for i := range next.Tasks {
		if cause, bad := malformed[i]; bad {
			return importFailure(clierr.Newf(clierr.ValidationFailed, "task %d: not a valid task record", i+1).
				WithDetails(map[string]any{"index": i, "cause": cause.Error()}))
		}
		t := &next.Tasks[i]
		if t.ID != "" && seen[t.ID] {
			return importFailure(clierr.Newf(clierr.DuplicateTaskID, "duplicate task id %q in import", t.ID).
				WithDetails(map[string]any{"id": t.ID, "index": i}))
		}
		if t.ID == "" {
			t.ID = r.freshImportID(seen, next)
		}
		seen[t.ID] = true

		task.Normalize(t, r.defaults.Time)
		if t.CreatedAt.IsZero() {
			task.StampCreated(t, r.now())
		} else if t.UpdatedAt.Before(t.CreatedAt) {
			t.UpdatedAt = t.CreatedAt
		}

		if errs := task.Validate(*t, nil); len(errs) > 0 {
			e := errs.CLIError()
			e.Message = fmt.Sprintf("task %d (%q): %s", i+1, t.Title, e.Message)
			e.Details["index"] = i
			e.Details["id"] = t.ID
			return importFailure(e)
		}
	}

	if next.Settings.Capacity <= 0 || task.ValidateCapacity(next.Settings.Capacity) != nil {
		next.Settings.Capacity = r.snap.Settings.Capacity
	}
	if len(next.Settings.Categories) == 0 {
		next.Settings.Categories = slices.Clone(r.snap.Settings.Categories)
	}
	if !next.ViewDate.Valid() {
		next.ViewDate = r.snap.ViewDate
	}

	r.snap = next
	r.persist()

	board.LogMutation(r.logDir, board.ActionImport, "", fmt.Sprintf("%d tasks", len(next.Tasks)))
	log.Info(log.CatRegistry, "snapshot imported", "tasks", len(next.Tasks))
	return store.ImportResult{Success: true, Data: next.Clone()}
}

// freshImportID returns an id used by no other record of the import.
func (r *Registry) freshImportID(seen map[string]bool, next *task.Snapshot) string {
	for {
		id := r.newID()
		if !seen[id] && next.IndexOf(id) < 0 {
			return id
		}
	}
}

func importFailure(e *clierr.Error) store.ImportResult {
	log.Warn(log.CatRegistry, "import rejected", "reason", e.Message)
	return store.ImportResult{Err: e}
}

// Wipe deletes the durable copy and resets the live snapshot to an empty task
// list with configured settings.
func (r *Registry) Wipe() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.gw.Clear(); err != nil {
		return err
	}
	r.snap = r.emptySnapshot()
	board.LogMutation(r.logDir, board.ActionWipe, "", "")
	log.Info(log.CatRegistry, "registry wiped")
	return nil
}

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time { return r.now() }
