package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsDefinedTransition(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDefinedTransition(StatusPlanned, StatusCompleted))
	assert.True(t, IsDefinedTransition(StatusPlanned, StatusCanceled))
	assert.True(t, IsDefinedTransition(StatusCompleted, StatusCompleted))
	assert.False(t, IsDefinedTransition(StatusCompleted, StatusPlanned))
	assert.False(t, IsDefinedTransition(StatusCompleted, StatusCanceled))
	assert.False(t, IsDefinedTransition(StatusCanceled, StatusPlanned))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tk := Task{Status: StatusPlanned, CancelReason: "left over"}
	Normalize(&tk, DefaultTime)
	assert.Equal(t, DefaultTime, tk.Time)
	assert.Empty(t, tk.CancelReason)

	tk = Task{Status: StatusCanceled, CancelReason: "rained out", Time: "18:30"}
	Normalize(&tk, DefaultTime)
	assert.Equal(t, "18:30", tk.Time)
	assert.Equal(t, "rained out", tk.CancelReason)
}

func TestStamps(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var tk Task
	StampCreated(&tk, created)
	assert.Equal(t, created, tk.CreatedAt)
	assert.Equal(t, created, tk.UpdatedAt)

	StampUpdated(&tk, created.Add(-time.Hour))
	assert.Equal(t, created, tk.UpdatedAt, "updatedAt never precedes createdAt")

	later := created.Add(2 * time.Hour)
	StampUpdated(&tk, later)
	assert.Equal(t, later, tk.UpdatedAt)
}

func TestPatch_Apply(t *testing.T) {
	t.Parallel()

	base := Task{ID: "a", Title: "Study Math", Duration: 1, Status: StatusPlanned}
	title := "Study Physics"
	status := StatusCompleted
	got := Patch{Title: &title, Status: &status}.Apply(base)

	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "Study Physics", got.Title)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 1.0, got.Duration)
	assert.Equal(t, "Study Math", base.Title, "apply does not mutate the original")
	assert.True(t, Patch{}.Empty())
}
