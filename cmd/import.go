package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the registry with an exported snapshot",
	Long: `Reads a snapshot previously written by 'export' and replaces all tasks
with it. Use - to read from stdin.

The import is all or nothing: if the file is malformed or any task fails
validation, the registry is left untouched. Settings missing from the file
keep their current values.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := readImportSource(args[0])
	if err != nil {
		return err
	}

	_, reg, closeFn, err := openRegistry(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeFn()

	res := reg.Import(data)
	if !res.Success {
		return res.Err
	}
	warnUnsaved(reg)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"status":   "imported",
			"tasks":    len(res.Data.Tasks),
			"capacity": res.Data.Settings.Capacity,
		})
	}
	output.Messagef(os.Stdout, "Imported %d tasks", len(res.Data.Tasks))
	return nil
}

func readImportSource(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied import path
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	return data, nil
}
