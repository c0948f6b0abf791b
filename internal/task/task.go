// Package task defines activity records, categories, registry snapshots and the
// validation rules that gate every mutation of a record.
package task

import (
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Statuses returns the allowed statuses in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPlanned, StatusCompleted, StatusCanceled}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// DefaultTime is the clock time assigned to tasks created without one.
const DefaultTime = "09:00"

// Task is one logged or planned activity.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Date         string    `json:"date"`
	Time         string    `json:"time,omitempty"`
	Duration     float64   `json:"duration"`
	Category     string    `json:"category"`
	Status       Status    `json:"status"`
	Urgent       bool      `json:"urgent"`
	CancelReason string    `json:"cancelReason,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Open reports whether the task is still planned.
func (t *Task) Open() bool {
	return t.Status == StatusPlanned
}

// SearchText joins the searchable fields with a single space.
// Missing fields contribute empty strings.
func (t *Task) SearchText() string {
	return t.Title + " " + t.Category + " " + t.Notes + " " + t.CancelReason
}

// Patch holds a partial update. Nil fields are left unchanged.
type Patch struct {
	Title        *string  `json:"title,omitempty"`
	Date         *string  `json:"date,omitempty"`
	Time         *string  `json:"time,omitempty"`
	Duration     *float64 `json:"duration,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Status       *Status  `json:"status,omitempty"`
	Urgent       *bool    `json:"urgent,omitempty"`
	CancelReason *string  `json:"cancelReason,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Date == nil && p.Time == nil && p.Duration == nil &&
		p.Category == nil && p.Status == nil && p.Urgent == nil &&
		p.CancelReason == nil && p.Notes == nil
}

// Apply returns a copy of t with the patch merged over it.
// Identity and timestamps are never touched by a patch.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Urgent != nil {
		t.Urgent = *p.Urgent
	}
	if p.CancelReason != nil {
		t.CancelReason = *p.CancelReason
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}
