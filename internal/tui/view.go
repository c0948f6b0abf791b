package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/reflow/wordwrap"

	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// cardHeight is the rendered height of one card: two content lines plus borders.
const cardHeight = 4

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230"))

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	activeColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("226")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	dialogPadY = 1
	dialogPadX = 2

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(dialogPadY, dialogPadX)
)

// --- View rendering ---

func (b *Board) viewBoard() string {
	parts := []string{b.renderHeader()}
	if b.showSearchLine() {
		parts = append(parts, b.renderSearchLine())
	}

	colWidth := b.columnWidth()
	renderedCols := make([]string, len(b.columns))
	for i, col := range b.columns {
		renderedCols[i] = b.renderColumn(i, col, colWidth)
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, renderedCols...)

	// Clamp from the bottom at small sizes and pad otherwise, so the status
	// bar stays on the last line.
	targetHeight := b.height - b.chromeHeight()
	if targetHeight > 0 {
		actual := strings.Count(boardView, "\n") + 1
		if actual > targetHeight {
			viewLines := strings.SplitN(boardView, "\n", targetHeight+1)
			boardView = strings.Join(viewLines[:targetHeight], "\n")
		} else if actual < targetHeight {
			boardView += strings.Repeat("\n", targetHeight-actual)
		}
	}

	parts = append(parts, boardView, "", b.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderHeader shows the view month, today's load, urgent count and balance.
func (b *Board) renderHeader() string {
	o := b.reg.Summary()

	month := monthLabel(b.reg.ViewDate())
	if b.allMonths {
		month = "all months"
	}

	load := fmt.Sprintf("today %s/%s (%d%%)",
		output.FormatHours(o.Today.Hours), output.FormatHours(o.Today.Capacity), o.Today.Percent)
	if color := b.cfg.LoadColor(o.Today.Percent); color != "" {
		load = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(load)
	}

	urgent := fmt.Sprintf("urgent %d", o.UrgentOpen)
	if o.UrgentOpen > 0 {
		urgent = urgentStyle.Render(urgent)
	}

	sep := dimStyle.Render(" · ")
	return " " + headerStyle.Render(o.Name) + sep + month + sep + load + sep + urgent +
		sep + output.FormatBalance(o.Balance)
}

// renderSearchLine shows the pattern input, or a warning when it does not
// compile. An invalid pattern filters nothing.
func (b *Board) renderSearchLine() string {
	line := b.search.View()
	if b.caseSensitive {
		line += dimStyle.Render("  [case]")
	}
	if b.searchErr != nil {
		line += "  " + warnStyle.Render(output.Truncate(b.searchErr.Error(), b.width/2))
	} else if b.matcher != nil {
		line += dimStyle.Render(fmt.Sprintf("  %d match", len(b.tasks)))
	}
	return line
}

func (b *Board) columnWidth() int {
	if b.width == 0 || len(b.columns) == 0 {
		return 30 //nolint:mnd // default column width
	}
	// Total rendered width = w * numColumns (JoinHorizontal adds no gaps).
	w := b.width / len(b.columns)
	const maxColWidth = 60
	if w > maxColWidth {
		w = maxColWidth
	}
	return w
}

func (b *Board) renderColumn(colIdx int, col column, width int) string {
	var hours float64
	for _, t := range col.tasks {
		hours += t.Duration
	}
	headerText := fmt.Sprintf("%s (%d · %s)", col.status, len(col.tasks), output.FormatHours(hours))
	const headerPad = 2
	headerText = output.Truncate(headerText, width-headerPad)

	var header string
	if colIdx == b.activeCol {
		header = activeColumnHeaderStyle.Width(width).Render(headerText)
	} else {
		header = columnHeaderStyle.Width(width).Render(headerText)
	}

	maxVis := b.visibleCards(&col)
	start := min(col.scrollOff, len(col.tasks))
	end := min(start+maxVis, len(col.tasks))

	parts := []string{zone.Mark(columnZoneID(colIdx), header)}

	if start > 0 {
		indicator := fmt.Sprintf("  ↑ %d more", start)
		parts = append(parts, dimStyle.Width(width).Render(output.Truncate(indicator, width)))
	}

	if len(col.tasks) == 0 {
		parts = append(parts, dimStyle.Width(width).Render("  (empty)"))
	} else {
		for rowIdx := start; rowIdx < end; rowIdx++ {
			active := colIdx == b.activeCol && rowIdx == b.activeRow
			t := &col.tasks[rowIdx]
			parts = append(parts, zone.Mark(cardZoneID(colIdx, t.ID), b.renderCard(t, active, width)))
		}
	}

	if end < len(col.tasks) {
		indicator := fmt.Sprintf("  ↓ %d more", len(col.tasks)-end)
		parts = append(parts, dimStyle.Width(width).Render(output.Truncate(indicator, width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) renderCard(t *task.Task, active bool, width int) string {
	content := strings.Join(b.cardContentLines(t, width), "\n")

	// Border color follows the category color.
	style := cardStyle
	cat := task.ResolveCategory(b.reg.Settings().Categories, t.Category)
	if cat.Color != "" {
		style = cardStyle.BorderForeground(lipgloss.Color(cat.Color))
	}
	if active {
		style = activeCardStyle
	}

	return style.Width(width - 2).Render(content) //nolint:mnd // border width
}

// cardContentLines returns exactly two lines: the title, then the schedule
// (or the cancel reason for canceled tasks).
func (b *Board) cardContentLines(t *task.Task, width int) []string {
	const cardChrome = 4 // border (2) + padding (2)
	cardWidth := max(width-cardChrome, 1)

	prefix := ""
	if t.Urgent {
		prefix = urgentStyle.Render("! ")
	}
	title := ansi.Truncate(prefix+output.HighlightMatches(t.Title, b.matcher), cardWidth, "…")

	cat := task.ResolveCategory(b.reg.Settings().Categories, t.Category)
	detail := fmt.Sprintf("%s %s · %s · %s", t.Date, t.Time, output.FormatHours(t.Duration), cat.Label)
	if t.Status == task.StatusCanceled && t.CancelReason != "" {
		detail = t.Date + " · " + t.CancelReason
	}

	return []string{title, dimStyle.Render(output.Truncate(detail, max(width-cardChrome, 1)))}
}

func (b *Board) renderStatusBar() string {
	status := fmt.Sprintf(" %d/%d tasks | /:search i:case </>:month a:all c:done x:cancel p:plan u:urgent d:del C:clear q:quit",
		len(b.tasks), len(b.reg.Tasks()))
	status = output.Truncate(status, b.width)

	if b.err != nil {
		errStr := errorStyle.Render(output.Truncate("Error: "+b.err.Error(), b.width))
		return errStr + "\n" + statusBarStyle.Render(status)
	}

	return statusBarStyle.Render(status)
}

func (b *Board) viewDeleteConfirm() string {
	content := errorStyle.Render("Delete task?") + "\n\n" +
		fmt.Sprintf("  %s: %s", output.ShortID(b.pendingID), b.pendingTitle) + "\n\n" +
		dimStyle.Render("y:yes  n:no")

	return dialogStyle.Render(content)
}

func (b *Board) viewClearAllConfirm() string {
	content := errorStyle.Render("Delete ALL tasks?") + "\n\n" +
		fmt.Sprintf("  %d tasks will be removed from the registry.", b.clearAllCount) + "\n\n" +
		dimStyle.Render("y:yes  n:no")

	return dialogStyle.Render(content)
}

func (b *Board) viewCancelReason() string {
	content := warnStyle.Render("Cancel task?") + "\n\n" +
		fmt.Sprintf("  %s: %s", output.ShortID(b.pendingID), b.pendingTitle) + "\n\n" +
		b.reason.View() + "\n\n" +
		dimStyle.Render(fmt.Sprintf("at least %d characters · enter:confirm  esc:back", task.MinCancelReason))

	return dialogStyle.Render(content)
}

// viewDetail shows every field of the selected task with its notes wrapped to
// the dialog width.
func (b *Board) viewDetail() string {
	t := b.selectedTask()
	if t == nil {
		return dialogStyle.Render(dimStyle.Render("no task selected"))
	}

	const maxDetailWidth = 72
	wrap := min(max(b.width-2*dialogPadX-4, 20), maxDetailWidth) //nolint:mnd // border and minimum width

	cat := task.ResolveCategory(b.reg.Settings().Categories, t.Category)
	lines := []string{
		headerStyle.Render(wordwrap.String(t.Title, wrap)),
		"",
		fmt.Sprintf("%-9s %s", "ID:", t.ID),
		fmt.Sprintf("%-9s %s %s", "When:", t.Date, t.Time),
		fmt.Sprintf("%-9s %s", "Duration:", output.FormatHours(t.Duration)),
		fmt.Sprintf("%-9s %s (%s)", "Category:", cat.Label, cat.Type),
		fmt.Sprintf("%-9s %s", "Status:", t.Status),
	}
	if t.Urgent {
		lines = append(lines, fmt.Sprintf("%-9s %s", "Urgent:", urgentStyle.Render("yes")))
	}
	if t.CancelReason != "" {
		lines = append(lines, fmt.Sprintf("%-9s %s", "Reason:", wordwrap.String(t.CancelReason, wrap-10))) //nolint:mnd // label column
	}
	if t.Notes != "" {
		lines = append(lines, "", wordwrap.String(t.Notes, wrap))
	}
	lines = append(lines, "", dimStyle.Render("esc:back"))

	return dialogStyle.Render(strings.Join(lines, "\n"))
}
