package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var createCmd = &cobra.Command{
	Use:     "create [TITLE]",
	Aliases: []string{"add"},
	Short:   "Create a new task",
	Long: `Creates a new task with the given title and optional fields.

Title can be provided as a positional argument or via --title flag.
The date defaults to today and the category to the first configured one.
Notes accept markdown and can be given via --notes or --description.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("title", "", "task title (alternative to positional argument)")
	createCmd.Flags().String("date", "", "task date (YYYY-MM-DD, default today)")
	createCmd.Flags().String("time", "", "start time (HH:MM, default from config)")
	createCmd.Flags().Float64P("duration", "d", 1, "duration in hours, in steps of 0.25")
	createCmd.Flags().StringP("category", "c", "", "category id (default first configured)")
	createCmd.Flags().String("status", "", "task status (default from config)")
	createCmd.Flags().BoolP("urgent", "u", false, "flag the task as urgent")
	createCmd.Flags().String("reason", "", "cancel reason (required with --status canceled)")
	createCmd.Flags().String("notes", "", "task notes (markdown)")
	createCmd.Flags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "description", "body":
			name = "notes"
		case "cancel-reason":
			name = "reason"
		}
		return pflag.NormalizedName(name)
	})
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, reg, closeFn, err := openRegistry(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeFn()

	title, err := resolveCreateTitle(cmd, args)
	if err != nil {
		return err
	}

	candidate := task.Task{
		Title: title,
		Date:  date.Format(reg.Now()),
	}
	if len(cfg.Categories) > 0 {
		candidate.Category = cfg.Categories[0].ID
	}
	if err := applyCreateFlags(cmd, &candidate); err != nil {
		return err
	}

	created, err := reg.Create(candidate)
	if err != nil {
		return err
	}
	warnUnsaved(reg)

	return outputCreateResult(&created, cfg)
}

func outputCreateResult(t *task.Task, cfg *config.Config) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}

	cat := task.ResolveCategory(cfg.Categories, t.Category)
	output.Messagef(os.Stdout, "Created task %s: %s", output.ShortID(t.ID), t.Title)
	output.Messagef(os.Stdout, "  When: %s %s | %s", t.Date, t.Time, output.FormatHours(t.Duration))
	output.Messagef(os.Stdout, "  Status: %s | Category: %s", t.Status, cat.Label)
	if t.Urgent {
		output.Messagef(os.Stdout, "  Urgent")
	}
	return nil
}

// resolveCreateTitle returns the task title from either the positional arg or --title flag.
func resolveCreateTitle(cmd *cobra.Command, args []string) (string, error) {
	flagTitle, _ := cmd.Flags().GetString("title")
	hasPositional := len(args) > 0
	hasFlag := flagTitle != ""

	switch {
	case hasPositional && hasFlag:
		return "", clierr.New(clierr.InvalidInput,
			"title provided both as argument and --title flag; use one or the other")
	case hasPositional:
		return args[0], nil
	case hasFlag:
		return flagTitle, nil
	default:
		return "", errors.New("title is required: provide it as an argument or with --title")
	}
}

// applyCreateFlags copies flag values onto the candidate. Field rules are
// checked by the registry, except status, which is parsed here to accept
// spelling variants.
func applyCreateFlags(cmd *cobra.Command, t *task.Task) error {
	if v, _ := cmd.Flags().GetString("date"); v != "" {
		t.Date = v
	}
	if v, _ := cmd.Flags().GetString("time"); v != "" {
		t.Time = v
	}
	t.Duration, _ = cmd.Flags().GetFloat64("duration")
	if v, _ := cmd.Flags().GetString("category"); v != "" {
		t.Category = v
	}
	if v, _ := cmd.Flags().GetString("status"); v != "" {
		st, err := task.ParseStatus(v)
		if err != nil {
			return err
		}
		t.Status = st
	}
	t.Urgent, _ = cmd.Flags().GetBool("urgent")
	t.CancelReason, _ = cmd.Flags().GetString("reason")
	t.Notes, _ = cmd.Flags().GetString("notes")
	return nil
}
