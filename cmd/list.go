package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/registry"
	"github.com/twiced-technology-gmbh/equilibrium/internal/search"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `Lists tasks with optional filtering, sorting, and output format control.

--search takes a regular expression (ECMAScript syntax) matched against title,
category, notes and cancel reason. An invalid pattern is reported and ignored.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSlice("status", nil, "filter by status (comma-separated)")
	listCmd.Flags().StringSlice("category", nil, "filter by category id (comma-separated)")
	listCmd.Flags().Bool("urgent", false, "show only urgent tasks")
	listCmd.Flags().Bool("not-urgent", false, "show only non-urgent tasks")
	listCmd.Flags().String("from", "", "show tasks on or after date (YYYY-MM-DD)")
	listCmd.Flags().String("to", "", "show tasks on or before date (YYYY-MM-DD)")
	listCmd.Flags().StringP("search", "s", "", "regex over title, category, notes and cancel reason")
	listCmd.Flags().Bool("case-sensitive", false, "match --search case-sensitively")
	listCmd.Flags().String("sort", board.SortDate, "sort field ("+strings.Join(board.ValidSortFields(), ", ")+")")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse sort order")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().String("group-by", "", "group results by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	listCmd.Flags().BoolP("watch", "w", false, "re-render whenever the registry changes")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, reg, closeFn, err := openRegistry(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	opts, groupBy, err := listOptions(cmd, cfg)
	if err != nil {
		return err
	}

	render := func() error {
		tasks := board.List(reg.Tasks(), opts)
		if groupBy != "" {
			return outputGroupedList(tasks, groupBy, reg)
		}
		return outputTaskList(tasks, cfg, reg, opts.Filter.Matcher)
	}

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchRender(cmd.Context(), cfg, reg, render)
	}
	return render()
}

// listOptions builds filter and sort options from flags. An invalid search
// pattern is reported on stderr and leaves the list unfiltered.
func listOptions(cmd *cobra.Command, cfg *config.Config) (board.ListOptions, string, error) {
	rawStatuses, _ := cmd.Flags().GetStringSlice("status")
	categories, _ := cmd.Flags().GetStringSlice("category")
	urgent, _ := cmd.Flags().GetBool("urgent")
	notUrgent, _ := cmd.Flags().GetBool("not-urgent")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	pattern, _ := cmd.Flags().GetString("search")
	caseSensitive, _ := cmd.Flags().GetBool("case-sensitive")
	sortBy, _ := cmd.Flags().GetString("sort")
	reverse, _ := cmd.Flags().GetBool("reverse")
	limit, _ := cmd.Flags().GetInt("limit")
	groupBy, _ := cmd.Flags().GetString("group-by")

	if groupBy != "" && !slices.Contains(board.ValidGroupByFields(), groupBy) {
		return board.ListOptions{}, "", clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(board.ValidGroupByFields(), ", "))
	}
	if !slices.Contains(board.ValidSortFields(), sortBy) {
		return board.ListOptions{}, "", clierr.Newf(clierr.InvalidInput, "invalid --sort field %q; valid: %s",
			sortBy, strings.Join(board.ValidSortFields(), ", "))
	}

	filter := board.FilterOptions{Categories: categories}
	for _, s := range rawStatuses {
		st, err := task.ParseStatus(s)
		if err != nil {
			return board.ListOptions{}, "", err
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	if urgent {
		v := true
		filter.Urgent = &v
	} else if notUrgent {
		v := false
		filter.Urgent = &v
	}

	var err error
	if filter.From, err = parseDateFlag("from", from); err != nil {
		return board.ListOptions{}, "", err
	}
	if filter.To, err = parseDateFlag("to", to); err != nil {
		return board.ListOptions{}, "", err
	}

	if pattern != "" {
		m, err := search.Compile(pattern, search.Options{
			CaseSensitive: caseSensitive,
			Timeout:       cfg.SearchTimeout(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v; showing all tasks\n", err)
		}
		filter.Matcher = m
	}

	return board.ListOptions{
		Filter:  filter,
		SortBy:  sortBy,
		Reverse: reverse,
		Limit:   limit,
	}, groupBy, nil
}

func parseDateFlag(name, v string) (*date.Date, error) {
	if v == "" {
		return nil, nil
	}
	d, err := date.Parse(v)
	if err != nil {
		return nil, clierr.Newf(clierr.InvalidInput, "invalid --%s date %q: expected YYYY-MM-DD", name, v).
			WithDetails(map[string]any{"flag": name, "value": v})
	}
	return &d, nil
}

func outputGroupedList(tasks []task.Task, groupBy string, reg *registry.Registry) error {
	grouped := board.GroupBy(tasks, groupBy, reg.Settings().Categories)
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, grouped)
	case output.FormatCompact:
		output.GroupedCompact(os.Stdout, grouped)
	default:
		output.GroupedTable(os.Stdout, grouped)
	}
	return nil
}

func outputTaskList(tasks []task.Task, cfg *config.Config, reg *registry.Registry, m *search.Matcher) error {
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSONList(os.Stdout, tasks)
	case output.FormatCompact:
		output.TaskCompact(os.Stdout, tasks)
	default:
		output.TaskTable(os.Stdout, tasks, output.TableOptions{
			Categories: reg.Settings().Categories,
			Matcher:    m,
			TitleWidth: cfg.TitleWidth(),
		})
	}
	return nil
}
