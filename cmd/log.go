package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
)

var activityCmd = &cobra.Command{
	Use:     "log",
	Aliases: []string{"activity"},
	Short:   "Show recent registry activity",
	Args:    cobra.NoArgs,
	RunE:    runActivity,
}

func init() {
	activityCmd.Flags().IntP("limit", "n", 20, "number of entries to show (0 for all)") //nolint:mnd // default page size
	rootCmd.AddCommand(activityCmd)
}

func runActivity(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := board.ReadLog(cfg.Dir(), limit)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSONList(os.Stdout, entries)
	}
	output.ActivityTable(os.Stdout, entries)
	return nil
}
