package task

import (
	"time"
)

// IsDefinedTransition reports whether moving from one status to another follows
// the documented lifecycle: planned → completed and planned → canceled.
// Other transitions are permitted but fall outside that lifecycle.
func IsDefinedTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return from == StatusPlanned && (to == StatusCompleted || to == StatusCanceled)
}

// Normalize fills defaults and keeps the cancel reason tied to canceled status.
//   - An empty time becomes defaultTime.
//   - A non-canceled task carries no cancel reason.
func Normalize(t *Task, defaultTime string) {
	if t.Time == "" {
		t.Time = defaultTime
	}
	if t.Status != StatusCanceled {
		t.CancelReason = ""
	}
}

// StampCreated sets both timestamps for a new record.
func StampCreated(t *Task, now time.Time) {
	now = now.UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
}

// StampUpdated sets UpdatedAt, never moving it before CreatedAt.
func StampUpdated(t *Task, now time.Time) {
	now = now.UTC()
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}
