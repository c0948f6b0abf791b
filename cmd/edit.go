package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/registry"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var editCmd = &cobra.Command{
	Use:   "edit ID[,ID,...]",
	Short: "Edit a task",
	Long: `Modifies fields of an existing task. Only specified fields are changed.
Multiple IDs can be provided as a comma-separated list.

The merged record must still pass validation; a rejected edit leaves the task
unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().String("title", "", "new title")
	editCmd.Flags().String("date", "", "new date (YYYY-MM-DD)")
	editCmd.Flags().String("time", "", "new start time (HH:MM)")
	editCmd.Flags().Float64P("duration", "d", 0, "new duration in hours")
	editCmd.Flags().StringP("category", "c", "", "new category id")
	editCmd.Flags().String("status", "", "new status")
	editCmd.Flags().String("reason", "", "cancel reason")
	editCmd.Flags().Bool("urgent", false, "flag as urgent")
	editCmd.Flags().Bool("not-urgent", false, "clear the urgent flag")
	editCmd.Flags().String("notes", "", "new notes (replaces existing notes)")
	editCmd.Flags().StringP("append-notes", "a", "", "append text to the notes")
	editCmd.Flags().BoolP("timestamp", "t", false, "prefix a timestamp line when appending")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	_, reg, closeFn, err := openRegistry(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeFn()

	ids, err := resolveIDs(reg, args[0])
	if err != nil {
		return err
	}

	if len(ids) == 1 {
		return editSingleTask(reg, ids[0], cmd)
	}

	return runBatch(ids, func(id string) error {
		_, err := executeEdit(reg, id, cmd)
		return err
	})
}

// editSingleTask handles a single task edit with full output.
func editSingleTask(reg *registry.Registry, id string, cmd *cobra.Command) error {
	t, err := executeEdit(reg, id, cmd)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}

	output.Messagef(os.Stdout, "Updated task %s: %s", output.ShortID(t.ID), t.Title)
	return nil
}

// executeEdit builds a patch from flags and applies it through the registry.
func executeEdit(reg *registry.Registry, id string, cmd *cobra.Command) (task.Task, error) {
	current, ok := reg.Task(id)
	if !ok {
		return task.Task{}, task.NotFound(id)
	}

	patch, err := editPatch(cmd, &current, reg.Now())
	if err != nil {
		return task.Task{}, err
	}

	updated, err := reg.Update(id, patch)
	if err != nil {
		return task.Task{}, err
	}
	warnUnsaved(reg)
	return updated, nil
}

// editPatch converts changed flags into a patch. Unchanged flags stay nil.
func editPatch(cmd *cobra.Command, current *task.Task, now time.Time) (task.Patch, error) {
	var p task.Patch
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		p.Title = &v
	}
	if flags.Changed("date") {
		v, _ := flags.GetString("date")
		p.Date = &v
	}
	if flags.Changed("time") {
		v, _ := flags.GetString("time")
		p.Time = &v
	}
	if flags.Changed("duration") {
		v, _ := flags.GetFloat64("duration")
		p.Duration = &v
	}
	if flags.Changed("category") {
		v, _ := flags.GetString("category")
		p.Category = &v
	}
	if flags.Changed("status") {
		v, _ := flags.GetString("status")
		st, err := task.ParseStatus(v)
		if err != nil {
			return task.Patch{}, err
		}
		p.Status = &st
	}
	if flags.Changed("reason") {
		v, _ := flags.GetString("reason")
		p.CancelReason = &v
	}

	urgent, notUrgent := flags.Changed("urgent"), flags.Changed("not-urgent")
	if urgent && notUrgent {
		return task.Patch{}, clierr.New(clierr.InvalidInput, "cannot use --urgent and --not-urgent together")
	}
	if urgent || notUrgent {
		v := urgent
		p.Urgent = &v
	}

	notesSet, appendSet := flags.Changed("notes"), flags.Changed("append-notes")
	if notesSet && appendSet {
		return task.Patch{}, clierr.New(clierr.InvalidInput, "cannot use --notes and --append-notes together")
	}
	if notesSet {
		v, _ := flags.GetString("notes")
		p.Notes = &v
	}
	if appendSet {
		v, _ := flags.GetString("append-notes")
		ts, _ := flags.GetBool("timestamp")
		notes := appendNotes(current.Notes, v, ts, now)
		p.Notes = &notes
	}

	return p, nil
}

// appendNotes appends text to the existing notes, optionally prefixed with a timestamp line.
func appendNotes(existing, text string, addTimestamp bool, now time.Time) string {
	var b strings.Builder

	if existing != "" {
		b.WriteString(strings.TrimRight(existing, "\n"))
		b.WriteString("\n\n")
	}

	if addTimestamp {
		b.WriteString(now.Format("[[2006-01-02]] Mon 15:04"))
		b.WriteByte('\n')
	}

	b.WriteString(text)

	return b.String()
}
