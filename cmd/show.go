package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/board"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show task details",
	Long:  `Displays full details of a single task including its markdown notes.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	_, reg, closeFn, err := openRegistry(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := board.ResolveID(reg.Tasks(), args[0])
	if err != nil {
		return err
	}
	t, _ := reg.Task(id)

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, t)
	case output.FormatCompact:
		output.TaskDetailCompact(os.Stdout, &t)
	default:
		output.TaskDetail(os.Stdout, &t, reg.Settings().Categories)
	}
	return nil
}
