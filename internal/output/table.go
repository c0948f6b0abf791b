package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/search"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// shortIDLen is how many id characters tables show; commands accept prefixes.
const shortIDLen = 8

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	matchStyle  = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("214"))
	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	statusStyles = map[task.Status]lipgloss.Style{
		task.StatusPlanned:   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		task.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		task.StatusCanceled:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true),
	}
)

// TableOptions controls task table rendering.
type TableOptions struct {
	Categories []task.Category
	Matcher    *search.Matcher // highlights matches in titles when set
	TitleWidth int
}

// TaskTable renders a list of tasks as a formatted table.
func TaskTable(w io.Writer, tasks []task.Task, opts TableOptions) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	maxTitle := opts.TitleWidth
	if maxTitle <= 0 {
		maxTitle = 40 //nolint:mnd // default title column width
	}

	const pad = 2
	idW, catW, titleW := 4, 10, 7
	for i := range tasks {
		t := &tasks[i]
		idW = max(idW, len(ShortID(t.ID))+pad)
		catW = max(catW, runewidth.StringWidth(task.ResolveCategory(opts.Categories, t.Category).Label)+pad)
		titleW = max(titleW, min(runewidth.StringWidth(t.Title)+pad, maxTitle+pad))
	}
	const dateW, timeW, durW, statusW = 12, 7, 7, 11

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %-*s %s",
		idW, "ID", dateW, "DATE", timeW, "TIME", durW, "HOURS",
		statusW, "STATUS", catW, "CATEGORY", "TITLE")
	fmt.Fprintln(w, headerStyle.Render(header))

	for i := range tasks {
		t := &tasks[i]
		cat := task.ResolveCategory(opts.Categories, t.Category)
		title := HighlightMatches(Truncate(t.Title, maxTitle), opts.Matcher)
		if t.Urgent {
			title = urgentStyle.Render("!") + " " + title
		}
		clock := t.Time
		if clock == "" {
			clock = dimStyle.Render("--")
		}

		row := fmt.Sprintf("%-*s %-*s %s %-*s %s %s %s",
			idW, ShortID(t.ID),
			dateW, t.Date,
			padRight(clock, timeW),
			durW, FormatHours(t.Duration),
			padRight(styledStatus(t.Status), statusW),
			padRight(categoryStyle(cat).Render(cat.Label), catW),
			title)
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// TaskDetail renders a single task with full detail. Notes render as markdown.
func TaskDetail(w io.Writer, t *task.Task, categories []task.Category) {
	titleLine := "Task " + ShortID(t.ID) + ": " + t.Title
	fmt.Fprintln(w, boldStyle.Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", runewidth.StringWidth(titleLine)))

	cat := task.ResolveCategory(categories, t.Category)
	printField(w, "ID", t.ID)
	printField(w, "Status", styledStatus(t.Status))
	if t.Status == task.StatusCanceled {
		printField(w, "Reason", t.CancelReason)
	}
	printField(w, "Date", t.Date)
	printField(w, "Time", stringOrDash(t.Time))
	printField(w, "Duration", FormatHours(t.Duration))
	catValue := categoryStyle(cat).Render(cat.Label) + dimStyle.Render(" ("+string(cat.Type)+")")
	if cat.ID != t.Category {
		catValue += dimStyle.Render(" [missing: " + t.Category + "]")
	}
	printField(w, "Category", catValue)
	if t.Urgent {
		printField(w, "Urgent", urgentStyle.Render("yes"))
	} else {
		printField(w, "Urgent", dimStyle.Render("no"))
	}
	printField(w, "Created", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	printField(w, "Updated", t.UpdatedAt.Local().Format("2006-01-02 15:04"))

	if t.Notes != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, RenderNotes(t.Notes, 80)) //nolint:mnd // notes wrap width
	}
}

// OverviewTable renders the registry summary as a formatted dashboard.
// loadColor is the ANSI color for today's load line; empty means unstyled.
func OverviewTable(w io.Writer, o board.Overview, loadColor string) {
	fmt.Fprintln(w, boldStyle.Render(o.Name))
	fmt.Fprintf(w, "Total: %d tasks\n\n", o.TotalTasks)

	loadLine := fmt.Sprintf("%s / %s (%d%%)", FormatHours(o.Today.Hours), FormatHours(o.Today.Capacity), o.Today.Percent)
	if loadColor != "" {
		loadLine = lipgloss.NewStyle().Foreground(lipgloss.Color(loadColor)).Render(loadLine)
	}
	printField(w, "Today", o.Today.Date+"  "+loadLine)
	urgent := strconv.Itoa(o.UrgentOpen)
	if o.UrgentOpen > 0 {
		urgent = urgentStyle.Render(urgent)
	}
	printField(w, "Urgent", urgent+" open")
	printField(w, "Balance", FormatBalance(o.Balance))
	fmt.Fprintln(w)

	header := fmt.Sprintf("%-16s %6s %8s", "STATUS", "COUNT", "HOURS")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, ss := range o.Statuses {
		const statusColW = 16
		fmt.Fprintf(w, "%s %6d %8s\n",
			padRight(styledStatus(ss.Status), statusColW), ss.Count, FormatHours(ss.Hours))
	}
}

// GroupedTable renders a grouped view with per-group status breakdowns.
func GroupedTable(w io.Writer, gs board.GroupedSummary) {
	if len(gs.Groups) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}

	for i, g := range gs.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d tasks, %s)", g.Label, g.Total, FormatHours(g.Hours))
		fmt.Fprintln(w, boldStyle.Render(title))

		for _, ss := range g.Statuses {
			if ss.Count == 0 {
				continue
			}
			const groupStatusW = 16
			fmt.Fprintf(w, "  %s %d\n", padRight(styledStatus(ss.Status), groupStatusW), ss.Count)
		}
	}
}

// ValidationErrors lists every failing field, representative failure first.
func ValidationErrors(w io.Writer, errs task.Errors) {
	first, fe, ok := errs.First()
	if !ok {
		return
	}
	fmt.Fprintf(w, "%s %s\n", errorStyle.Render(first+":"), fe.Message)
	for _, field := range task.FieldOrder() {
		if field == first {
			continue
		}
		if fe, ok := errs[field]; ok {
			fmt.Fprintf(w, "%s %s\n", errorStyle.Render(field+":"), fe.Message)
		}
	}
}

// ActivityTable renders activity log entries, oldest first.
func ActivityTable(w io.Writer, entries []board.LogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No activity recorded.")
		return
	}
	header := fmt.Sprintf("%-17s %-9s %-*s %s", "WHEN", "ACTION", shortIDLen+1, "TASK", "DETAIL")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, e := range entries {
		id := ShortID(e.TaskID)
		if id == "" {
			id = "--"
		}
		row := fmt.Sprintf("%-17s %-9s %-*s %s",
			e.Timestamp.Local().Format("2006-01-02 15:04"), e.Action, shortIDLen+1, id, e.Detail)
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

// FormatHours renders an hour amount without trailing zeros, e.g. "1.5h".
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

// FormatBalance renders the work/life split, e.g. "work 60% / life 40%".
func FormatBalance(b board.Balance) string {
	s := fmt.Sprintf("work %d%% (%s) / life %d%% (%s)",
		b.WorkPercent, FormatHours(b.WorkHours), b.LifePercent, FormatHours(b.LifeHours))
	if b.OtherHours > 0 {
		s += dimStyle.Render(" + " + FormatHours(b.OtherHours) + " other")
	}
	return s
}

// ShortID returns the leading characters of a task id.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// Truncate shortens s to at most width terminal cells, adding an ellipsis.
func Truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// categoryStyle renders text in the category's color.
func categoryStyle(c task.Category) lipgloss.Style {
	if c.Color == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color))
}

// HighlightMatches styles the spans of title matched by m.
func HighlightMatches(title string, m *search.Matcher) string {
	spans := search.Highlight(title, m)
	if len(spans) == 0 {
		return title
	}
	runes := []rune(title)
	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		if sp.Start < pos || sp.End > len(runes) {
			continue
		}
		b.WriteString(string(runes[pos:sp.Start]))
		b.WriteString(matchStyle.Render(string(runes[sp.Start:sp.End])))
		pos = sp.End
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-10s %s\n", label+":", value)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func stringOrDash(s string) string {
	if s == "" {
		return dimStyle.Render("--")
	}
	return s
}

func styledStatus(s task.Status) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}
