package task

import (
	"slices"

	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
)

// Settings holds the registry-wide configuration persisted with the tasks.
type Settings struct {
	Capacity   float64    `json:"capacity"`
	Categories []Category `json:"categories"`
}

// Snapshot is the unit of persistence, import and export.
type Snapshot struct {
	Settings Settings       `json:"settings"`
	Tasks    []Task         `json:"tasks"`
	ViewDate date.ViewMonth `json:"viewDate"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Settings.Categories = slices.Clone(s.Settings.Categories)
	c.Tasks = slices.Clone(s.Tasks)
	if c.Tasks == nil {
		c.Tasks = []Task{}
	}
	return &c
}

// IndexOf returns the position of the task with id, or -1.
func (s *Snapshot) IndexOf(id string) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}
