package board

import (
	"math"
	"time"

	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// Load is the scheduled workload of one day against the daily capacity.
type Load struct {
	Date     string  `json:"date"`
	Hours    float64 `json:"hours"`
	Capacity float64 `json:"capacity"`
	Percent  int     `json:"percent"`
	Over     bool    `json:"over"`
}

// TodayLoad sums the hours scheduled on now's local date. Canceled tasks do
// not count toward the load.
func TodayLoad(tasks []task.Task, capacity float64, now time.Time) Load {
	day := date.Format(now)
	var hours float64
	for i := range tasks {
		if tasks[i].Date == day && tasks[i].Status != task.StatusCanceled {
			hours += tasks[i].Duration
		}
	}
	l := Load{Date: day, Hours: hours, Capacity: capacity}
	if capacity > 0 {
		l.Percent = int(math.Round(hours / capacity * 100))
	}
	l.Over = capacity > 0 && hours > capacity
	return l
}

// UrgentOpen counts tasks flagged urgent that are still planned.
func UrgentOpen(tasks []task.Task) int {
	n := 0
	for i := range tasks {
		if tasks[i].Urgent && tasks[i].Open() {
			n++
		}
	}
	return n
}

// Balance is the work versus life split of logged hours.
type Balance struct {
	WorkHours   float64 `json:"work_hours"`
	LifeHours   float64 `json:"life_hours"`
	OtherHours  float64 `json:"other_hours"`
	WorkPercent int     `json:"work_percent"`
	LifePercent int     `json:"life_percent"`
}

// ComputeBalance sums durations by category type. Percentages are taken over
// the combined work and life total, floored to 1 so an empty registry yields
// 0/0 instead of dividing by zero. Hours in unknown or dangling categories go
// to OtherHours and are left out of the percentages.
func ComputeBalance(tasks []task.Task, categories []task.Category) Balance {
	var b Balance
	for i := range tasks {
		c := task.ResolveCategory(categories, tasks[i].Category)
		switch c.Type.Bucket() {
		case task.TypeWork:
			b.WorkHours += tasks[i].Duration
		case task.TypeLife:
			b.LifeHours += tasks[i].Duration
		default:
			b.OtherHours += tasks[i].Duration
		}
	}
	total := math.Max(b.WorkHours+b.LifeHours, 1)
	b.WorkPercent = int(math.Round(b.WorkHours / total * 100))
	b.LifePercent = int(math.Round(b.LifeHours / total * 100))
	return b
}
