package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the registry as JSON",
	Long: `Writes the full registry snapshot (tasks, settings and view month) as a
pretty-printed JSON file named <registry>-YYYY-MM-DD.json in the current
directory. Use --out - to write to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "output path (default: dated filename in the current directory, - for stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	_, reg, closeFn, err := openRegistry(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	exp, err := reg.Export()
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "-" {
		_, err := os.Stdout.Write(exp.Data)
		return err
	}
	if out == "" {
		out = exp.Filename
	}

	const fileMode = 0o600
	if err := os.WriteFile(out, exp.Data, fileMode); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"path":  out,
			"tasks": len(reg.Tasks()),
		})
	}
	output.Messagef(os.Stdout, "Exported %d tasks to %s", len(reg.Tasks()), out)
	return nil
}
