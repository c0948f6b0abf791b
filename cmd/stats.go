package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/registry"
	"github.com/twiced-technology-gmbh/equilibrium/internal/tui"
	"github.com/twiced-technology-gmbh/equilibrium/internal/watcher"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"summary"},
	Short:   "Show registry summary",
	Long: `Displays a summary of the registry: task counts and hours per status,
today's load against the daily capacity, open urgent tasks, and the balance
between work and life categories.

Use --watch to keep the display live-updating. The summary re-renders
automatically whenever the stored registry changes (e.g., from another
terminal). Press Ctrl+C to stop.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolP("watch", "w", false, "live-update the summary on changes")
	statsCmd.Flags().String("group-by", "", "group summary by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, reg, closeFn, err := openRegistry(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	groupBy, _ := cmd.Flags().GetString("group-by")
	if groupBy != "" && !slices.Contains(board.ValidGroupByFields(), groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(board.ValidGroupByFields(), ", "))
	}

	render := func() error {
		return renderStats(cfg, reg, groupBy)
	}

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchRender(cmd.Context(), cfg, reg, render)
	}
	return render()
}

func renderStats(cfg *config.Config, reg *registry.Registry, groupBy string) error {
	if groupBy != "" {
		return outputGroupedList(reg.Tasks(), groupBy, reg)
	}

	summary := reg.Summary()

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, summary)
	case output.FormatCompact:
		output.OverviewCompact(os.Stdout, summary)
	default:
		output.OverviewTable(os.Stdout, summary, cfg.LoadColor(summary.Today.Percent))
	}
	return nil
}

// watchRender renders once, then again after every change to the stored
// registry until interrupted.
func watchRender(ctx context.Context, cfg *config.Config, reg *registry.Registry, render func() error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rerender := func() {
		clearScreen()
		if err := render(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: rendering: %v\n", err)
		}
	}

	w, err := watcher.New(cfg.Dir(), tui.WatchNames(cfg), func() {
		reg.Reload()
		rerender()
	})
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck // best-effort cleanup

	rerender()
	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")

	w.Run(ctx, func(watchErr error) {
		fmt.Fprintf(os.Stderr, "Warning: file watcher: %v\n", watchErr)
	})

	return nil
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner. Output redirected to a file is left alone.
func clearScreen() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprint(os.Stdout, "\033[2J\033[H")
	}
}
