package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/registry"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var markCmd = &cobra.Command{
	Use:     "mark ID[,ID,...] STATUS",
	Aliases: []string{"move"},
	Short:   "Change the status of a task",
	Long: `Changes the status of a task to planned, completed or canceled.
Canceling requires --reason with at least 5 characters.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.ExactArgs(2), //nolint:mnd // ID and STATUS
	RunE: runMark,
}

func init() {
	markCmd.Flags().String("reason", "", "cancel reason (required when canceling)")
	rootCmd.AddCommand(markCmd)
}

func runMark(cmd *cobra.Command, args []string) error {
	status, err := task.ParseStatus(args[1])
	if err != nil {
		return err
	}
	reason, _ := cmd.Flags().GetString("reason")

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
		return markSingleTask(reg, ids[0], status, reason)
	}

	return runBatch(ids, func(id string) error {
		_, _, err := executeMark(reg, id, status, reason)
		return err
	})
}

// markResult wraps a task with a changed flag for JSON output.
type markResult struct {
	task.Task
	Changed bool `json:"changed"`
}

// markSingleTask handles a single status change with full output.
func markSingleTask(reg *registry.Registry, id string, status task.Status, reason string) error {
	t, oldStatus, err := executeMark(reg, id, status, reason)
	if err != nil {
		return err
	}

	changed := oldStatus != ""
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, markResult{Task: t, Changed: changed})
	}
	if !changed {
		output.Messagef(os.Stdout, "Task %s is already %s", output.ShortID(t.ID), t.Status)
		return nil
	}

	output.Messagef(os.Stdout, "Marked task %s: %s -> %s", output.ShortID(t.ID), oldStatus, t.Status)
	return nil
}

// executeMark applies the status change. If the task already has the target
// status (and no new reason is given), oldStatus is empty and nothing is written.
func executeMark(reg *registry.Registry, id string, status task.Status, reason string) (task.Task, task.Status, error) {
	current, ok := reg.Task(id)
	if !ok {
		return task.Task{}, "", task.NotFound(id)
	}
	if current.Status == status && (reason == "" || reason == current.CancelReason) {
		return current, "", nil
	}

	patch := task.Patch{Status: &status}
	if status == task.StatusCanceled {
		patch.CancelReason = &reason
	}

	updated, err := reg.Update(id, patch)
	if err != nil {
		return task.Task{}, "", err
	}
	warnUnsaved(reg)
	return updated, current.Status, nil
}
