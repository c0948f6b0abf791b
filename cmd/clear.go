package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all tasks",
	Long: `Removes every task and the stored snapshot. Settings fall back to the
configured defaults. Requires confirmation unless --yes is given.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().Bool("yes", false, "skip confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	_, reg, closeFn, err := openRegistry(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeFn()

	n := len(reg.Tasks())
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		if !isInteractive() {
			return clierr.New(clierr.ConfirmationReq, "clearing all tasks requires --yes when not interactive")
		}
		if !confirm(fmt.Sprintf("Delete all %d tasks? This cannot be undone.", n)) {
			output.Messagef(os.Stderr, "Canceled")
			return nil
		}
	}

	if err := reg.Wipe(); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"status": "cleared", "deleted": n})
	}
	output.Messagef(os.Stdout, "Deleted %d tasks", n)
	return nil
}
