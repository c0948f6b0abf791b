package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	for i := range tasks {
		fmt.Fprintln(w, formatTaskLine(&tasks[i]))
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, t *task.Task) {
	fmt.Fprintln(w, formatTaskLine(t))

	ts := "  created:" + t.CreatedAt.Local().Format("2006-01-02") +
		" updated:" + t.UpdatedAt.Local().Format("2006-01-02")
	fmt.Fprintln(w, ts)

	if t.CancelReason != "" {
		fmt.Fprintln(w, "  reason: "+t.CancelReason)
	}
	if t.Notes != "" {
		for _, line := range strings.Split(t.Notes, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// OverviewCompact renders the registry summary in compact format.
func OverviewCompact(w io.Writer, o board.Overview) {
	fmt.Fprintf(w, "%s (%d tasks)\n", o.Name, o.TotalTasks)

	for _, ss := range o.Statuses {
		fmt.Fprintln(w, "  "+string(ss.Status)+": "+strconv.Itoa(ss.Count)+" ("+FormatHours(ss.Hours)+")")
	}
	fmt.Fprintf(w, "Today: %s/%s (%d%%)\n", FormatHours(o.Today.Hours), FormatHours(o.Today.Capacity), o.Today.Percent)
	fmt.Fprintf(w, "Urgent: %d open\n", o.UrgentOpen)
	fmt.Fprintf(w, "Balance: work=%d%% life=%d%%", o.Balance.WorkPercent, o.Balance.LifePercent)
	if o.Balance.OtherHours > 0 {
		fmt.Fprintf(w, " other=%s", FormatHours(o.Balance.OtherHours))
	}
	fmt.Fprintln(w)
}

// GroupedCompact renders a grouped view, one line per group.
func GroupedCompact(w io.Writer, gs board.GroupedSummary) {
	for _, g := range gs.Groups {
		parts := make([]string, 0, len(g.Statuses))
		for _, ss := range g.Statuses {
			if ss.Count > 0 {
				parts = append(parts, string(ss.Status)+"="+strconv.Itoa(ss.Count))
			}
		}
		fmt.Fprintf(w, "%s: %d (%s) %s\n", g.Key, g.Total, FormatHours(g.Hours), strings.Join(parts, " "))
	}
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t *task.Task) string {
	line := ShortID(t.ID) + " [" + string(t.Status) + "] " + t.Date
	if t.Time != "" {
		line += " " + t.Time
	}
	line += " " + FormatHours(t.Duration) + " " + t.Title + " (" + t.Category + ")"
	if t.Urgent {
		line += " !urgent"
	}
	return line
}
