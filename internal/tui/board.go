// Package tui implements the interactive equilibrium dashboard.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/registry"
	"github.com/twiced-technology-gmbh/equilibrium/internal/search"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// view represents the current screen state.
type view int

const (
	viewBoard view = iota
	viewSearch
	viewCancelReason
	viewConfirmDelete
	viewConfirmClearAll
	viewDetail
)

// Key and layout constants.
const (
	keyEsc   = "esc"
	keyEnter = "enter"

	boardChrome   = 3                // header + blank line + status bar
	searchChrome  = 1                // search line when a pattern is set
	errorChrome   = 1                // extra line when error toast is displayed
	tickInterval  = 30 * time.Second // how often today's load is recomputed
	patternExpiry = 5 * time.Minute
)

// Board is the top-level bubbletea model.
type Board struct {
	reg       *registry.Registry
	cfg       *config.Config
	compiler  *search.Compiler
	tasks     []task.Task // tasks shown after month and search filtering
	columns   []column
	activeCol int
	activeRow int
	view      view
	width     int
	height    int
	err       error

	// Search state. matcher is nil when the pattern is empty or invalid.
	search        textinput.Model
	matcher       *search.Matcher
	searchErr     error
	caseSensitive bool

	// allMonths disables the view-month filter.
	allMonths bool

	// Pending delete or cancel target.
	pendingID    string
	pendingTitle string
	reason       textinput.Model

	// Clear all confirmation.
	clearAllCount int
}

// column groups tasks belonging to a single status.
type column struct {
	status    task.Status
	tasks     []task.Task
	scrollOff int // first visible row index
}

// NewBoard creates a dashboard over an initialized registry.
func NewBoard(reg *registry.Registry, cfg *config.Config) *Board {
	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "regex over title, category, notes"
	si.CharLimit = 256

	ri := textinput.New()
	ri.Prompt = "reason: "
	ri.CharLimit = 512

	b := &Board{
		reg:      reg,
		cfg:      cfg,
		compiler: search.NewCompiler(cfg.SearchTimeout(), patternExpiry),
		search:   si,
		reason:   ri,
	}
	b.loadTasks()
	return b
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.MouseMsg:
		return b.handleMouse(msg)
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.clampRow()
		return b, nil
	case ReloadMsg:
		if !b.reg.Reload() {
			log.Debug(log.CatUI, "reload found no stored snapshot")
		}
		b.loadTasks()
		return b, nil
	case TickMsg:
		return b, tickCmd()
	case errMsg:
		b.err = msg.err
		return b, nil
	}
	return b, nil
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}

	switch b.view {
	case viewConfirmDelete:
		return b.viewDeleteConfirm()
	case viewConfirmClearAll:
		return b.viewClearAllConfirm()
	case viewCancelReason:
		return b.viewCancelReason()
	case viewDetail:
		return b.viewDetail()
	default:
		return zone.Scan(b.viewBoard())
	}
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys.
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
		return b, tea.Quit
	}

	switch b.view {
	case viewSearch:
		return b.handleSearchKey(msg)
	case viewCancelReason:
		return b.handleReasonKey(msg)
	case viewConfirmDelete:
		return b.handleDeleteKey(msg)
	case viewConfirmClearAll:
		return b.handleClearAllKey(msg)
	case viewDetail:
		switch msg.String() {
		case keyEsc, keyEnter, "q":
			b.view = viewBoard
		}
		return b, nil
	default:
		return b.handleBoardKey(msg)
	}
}

func (b *Board) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return b, tea.Quit
	case keyEsc:
		if b.search.Value() != "" {
			b.search.SetValue("")
			b.applySearch()
			return b, nil
		}
		return b, tea.Quit
	case "h", "left":
		if b.activeCol > 0 {
			b.activeCol--
			b.clampRow()
		}
	case "l", "right":
		if b.activeCol < len(b.columns)-1 {
			b.activeCol++
			b.clampRow()
		}
	case "k", "up":
		if b.activeRow > 0 {
			b.activeRow--
			b.ensureVisible()
		}
	case "j", "down":
		if col := b.currentColumn(); col != nil && b.activeRow < len(col.tasks)-1 {
			b.activeRow++
			b.ensureVisible()
		}
	case keyEnter:
		if b.selectedTask() != nil {
			b.view = viewDetail
		}
	case "/":
		b.view = viewSearch
		return b, b.search.Focus()
	case "i":
		b.caseSensitive = !b.caseSensitive
		b.applySearch()
	case "a":
		b.allMonths = !b.allMonths
		b.loadTasks()
	case "<", ",":
		b.shiftMonth(-1)
	case ">", ".":
		b.shiftMonth(1)
	case "c":
		b.setStatus(task.StatusCompleted)
	case "p":
		b.setStatus(task.StatusPlanned)
	case "x":
		b.handleCancelStart()
		if b.view == viewCancelReason {
			return b, b.reason.Focus()
		}
	case "u":
		b.toggleUrgent()
	case "d":
		b.handleDeleteStart()
	case "C":
		b.handleClearAllStart()
	}
	return b, nil
}

func (b *Board) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEnter:
		b.search.Blur()
		b.view = viewBoard
		return b, nil
	case keyEsc:
		b.search.SetValue("")
		b.search.Blur()
		b.view = viewBoard
		b.applySearch()
		return b, nil
	}

	var cmd tea.Cmd
	b.search, cmd = b.search.Update(msg)
	b.applySearch()
	return b, cmd
}

// applySearch recompiles the pattern. An invalid pattern keeps every task
// visible and shows the compile error in the search line.
func (b *Board) applySearch() {
	pattern := b.search.Value()
	b.matcher = nil
	b.searchErr = nil
	if pattern != "" {
		m, err := b.compiler.Compile(pattern, search.Options{CaseSensitive: b.caseSensitive})
		if err != nil {
			b.searchErr = err
		} else {
			b.matcher = m
		}
	}
	b.loadTasks()
}

func (b *Board) shiftMonth(delta int) {
	vd := b.reg.ViewDate()
	month := vd.Month + delta
	year := vd.Year
	for month < 0 {
		month += 12
		year--
	}
	for month > 11 {
		month -= 12
		year++
	}
	if err := b.reg.SetViewDate(month, year); err != nil {
		b.err = err
		return
	}
	b.activeRow = 0
	b.loadTasks()
}

func (b *Board) setStatus(status task.Status) {
	t := b.selectedTask()
	if t == nil || t.Status == status {
		return
	}
	b.update(t.ID, task.Patch{Status: &status})
}

func (b *Board) toggleUrgent() {
	t := b.selectedTask()
	if t == nil {
		return
	}
	urgent := !t.Urgent
	b.update(t.ID, task.Patch{Urgent: &urgent})
}

func (b *Board) update(id string, patch task.Patch) {
	if _, err := b.reg.Update(id, patch); err != nil {
		b.err = err
		log.Debug(log.CatUI, "update rejected", "id", id, "error", err)
	} else {
		b.err = nil
	}
	b.loadTasks()
}

func (b *Board) handleCancelStart() {
	t := b.selectedTask()
	if t == nil || t.Status == task.StatusCanceled {
		return
	}
	b.pendingID = t.ID
	b.pendingTitle = t.Title
	b.reason.SetValue("")
	b.view = viewCancelReason
}

func (b *Board) handleReasonKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		b.reason.Blur()
		b.view = viewBoard
		return b, nil
	case keyEnter:
		b.reason.Blur()
		b.view = viewBoard
		status := task.StatusCanceled
		reason := b.reason.Value()
		b.update(b.pendingID, task.Patch{Status: &status, CancelReason: &reason})
		return b, nil
	}

	var cmd tea.Cmd
	b.reason, cmd = b.reason.Update(msg)
	return b, cmd
}

func (b *Board) handleDeleteStart() {
	t := b.selectedTask()
	if t == nil {
		return
	}
	b.pendingID = t.ID
	b.pendingTitle = t.Title
	b.view = viewConfirmDelete
}

func (b *Board) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return b.executeDelete()
	case "n", "N", keyEsc, "q":
		b.view = viewBoard
	}
	return b, nil
}

func (b *Board) executeDelete() (tea.Model, tea.Cmd) {
	if !b.reg.Delete(b.pendingID) {
		b.err = task.NotFound(b.pendingID)
	}
	b.view = viewBoard
	b.loadTasks()
	return b, nil
}

func (b *Board) handleClearAllStart() {
	n := len(b.reg.Tasks())
	if n == 0 {
		return
	}
	b.clearAllCount = n
	b.view = viewConfirmClearAll
}

func (b *Board) handleClearAllKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return b.executeClearAll()
	case "n", "N", keyEsc, "q":
		b.view = viewBoard
	}
	return b, nil
}

func (b *Board) executeClearAll() (tea.Model, tea.Cmd) {
	if err := b.reg.Wipe(); err != nil {
		b.err = err
	}
	b.view = viewBoard
	b.activeCol, b.activeRow = 0, 0
	b.loadTasks()
	return b, nil
}

// handleMouse selects the clicked card or column header.
func (b *Board) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return b, nil
	}
	if b.view != viewBoard {
		return b, nil
	}

	for ci := range b.columns {
		if z := zone.Get(columnZoneID(ci)); z != nil && z.InBounds(msg) {
			b.activeCol = ci
			b.clampRow()
			return b, nil
		}
		col := &b.columns[ci]
		end := min(col.scrollOff+b.visibleCards(col), len(col.tasks))
		for ri := col.scrollOff; ri < end; ri++ {
			if z := zone.Get(cardZoneID(ci, col.tasks[ri].ID)); z != nil && z.InBounds(msg) {
				b.activeCol, b.activeRow = ci, ri
				return b, nil
			}
		}
	}
	return b, nil
}

func columnZoneID(col int) string {
	return fmt.Sprintf("col:%d", col)
}

func cardZoneID(col int, id string) string {
	return fmt.Sprintf("card:%d:%s", col, id)
}

// loadTasks rebuilds the status columns from the registry.
func (b *Board) loadTasks() {
	opts := board.FilterOptions{Matcher: b.matcher}
	if !b.allMonths {
		vd := b.reg.ViewDate()
		opts.From, opts.To = monthStart(vd), monthEnd(vd)
	}
	tasks := board.Filter(b.reg.Tasks(), opts)
	board.Sort(tasks, board.SortDate, false)
	b.tasks = tasks

	statuses := task.Statuses()
	b.columns = make([]column, len(statuses))
	for i, status := range statuses {
		b.columns[i] = column{status: status}
	}
	for _, t := range tasks {
		for i := range b.columns {
			if b.columns[i].status == t.Status {
				b.columns[i].tasks = append(b.columns[i].tasks, t)
				break
			}
		}
	}

	b.clampRow()
}

func monthStart(vd date.ViewMonth) *date.Date {
	d := date.New(vd.Year, time.Month(vd.Month+1), 1)
	return &d
}

func monthEnd(vd date.ViewMonth) *date.Date {
	first := time.Date(vd.Year, time.Month(vd.Month+1), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	d := date.New(last.Year(), last.Month(), last.Day())
	return &d
}

func (b *Board) currentColumn() *column {
	if b.activeCol >= 0 && b.activeCol < len(b.columns) {
		return &b.columns[b.activeCol]
	}
	return nil
}

func (b *Board) selectedTask() *task.Task {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		return nil
	}
	if b.activeRow >= 0 && b.activeRow < len(col.tasks) {
		return &col.tasks[b.activeRow]
	}
	return nil
}

func (b *Board) clampRow() {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		b.activeRow = 0
		return
	}
	if b.activeRow >= len(col.tasks) {
		b.activeRow = len(col.tasks) - 1
	}
	b.ensureVisible()
}

// topChrome returns the lines above the columns: the dashboard header plus the
// search line when one is shown.
func (b *Board) topChrome() int {
	h := 1
	if b.showSearchLine() {
		h += searchChrome
	}
	return h
}

// chromeHeight returns the number of lines consumed by everything except cards
// and column headers.
func (b *Board) chromeHeight() int {
	h := boardChrome
	if b.showSearchLine() {
		h += searchChrome
	}
	if b.err != nil {
		h += errorChrome
	}
	return h
}

func (b *Board) showSearchLine() bool {
	return b.view == viewSearch || b.search.Value() != ""
}

// visibleCards returns how many cards fit in a column, accounting for the
// "↑ N more" and "↓ N more" indicator lines.
func (b *Board) visibleCards(col *column) int {
	avail := b.height - b.chromeHeight() - 1 // column header
	if col.scrollOff > 0 {
		avail--
	}
	n := avail / cardHeight
	if col.scrollOff+n < len(col.tasks) {
		n = (avail - 1) / cardHeight
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ensureVisible adjusts the active column's scroll offset so the
// selected row is within the visible window.
func (b *Board) ensureVisible() {
	col := b.currentColumn()
	if col == nil {
		return
	}

	for range len(col.tasks) + 1 {
		maxVis := b.visibleCards(col)

		switch {
		case b.activeRow >= col.scrollOff+maxVis:
			col.scrollOff = b.activeRow - maxVis + 1
		case b.activeRow < col.scrollOff:
			col.scrollOff = b.activeRow
		default:
			return
		}
	}
}

// WatchNames returns the file names in the registry directory whose changes
// should reload the dashboard.
func WatchNames(cfg *config.Config) []string {
	if cfg.Store.Backend == config.BackendSQLite {
		return []string{config.DatabaseFileName, config.DatabaseFileName + "-wal"}
	}
	return []string{cfg.StoreKey() + ".json"}
}

// --- Messages ---

// ReloadMsg is sent by the file watcher to trigger a dashboard refresh.
type ReloadMsg struct{}

type errMsg struct{ err error }

// TickMsg is sent periodically so today's load follows the clock.
type TickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

// monthLabel renders a view month, e.g. "March 2024".
func monthLabel(vd date.ViewMonth) string {
	return fmt.Sprintf("%s %d", time.Month(vd.Month+1), vd.Year)
}
