package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/registry"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var deleteCmd = &cobra.Command{
	Use:     "delete ID[,ID,...]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Removes a task from the registry. Prompts for confirmation in interactive mode.
Multiple IDs can be provided as a comma-separated list (requires --yes).
IDs may be abbreviated to any unique prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	_, reg, closeFn, err := openRegistry(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeFn()

	ids, err := resolveIDs(reg, args[0])
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")

	// Batch mode requires --yes.
	if len(ids) > 1 && !yes {
		return clierr.New(clierr.ConfirmationReq,
			"batch delete requires --yes")
	}

	if len(ids) == 1 {
		return deleteSingleTask(reg, ids[0], yes)
	}

	return runBatch(ids, func(id string) error {
		return executeDelete(reg, id)
	})
}

// deleteSingleTask handles a single task delete with confirmation and output.
func deleteSingleTask(reg *registry.Registry, id string, yes bool) error {
	t, ok := reg.Task(id)
	if !ok {
		return task.NotFound(id)
	}

	// Require confirmation in TTY mode unless --yes.
	if !yes {
		if !isInteractive() {
			return clierr.New(clierr.ConfirmationReq,
				"cannot prompt for confirmation (not a terminal); use --yes")
		}
		if !confirm(fmt.Sprintf("Delete task %s %q?", output.ShortID(t.ID), t.Title)) {
			fmt.Fprintln(os.Stderr, "Canceled.")
			return nil
		}
	}

	if err := executeDelete(reg, id); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"status": "deleted",
			"id":     t.ID,
			"title":  t.Title,
		})
	}

	output.Messagef(os.Stdout, "Deleted task %s: %s", output.ShortID(t.ID), t.Title)
	return nil
}

// executeDelete removes one task. Unlike the registry operation, the CLI
// reports an absent id as an error.
func executeDelete(reg *registry.Registry, id string) error {
	if !reg.Delete(id) {
		return task.NotFound(id)
	}
	warnUnsaved(reg)
	return nil
}

// confirm asks a yes/no question on stderr. It answers no when stdin is not
// a terminal.
func confirm(question string) bool {
	if !isInteractive() {
		return false
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
