package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new registry",
	Long: `Creates a registry directory with config.yml. The task data is created on
first use, seeded from the configured starter dataset.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "registry name (defaults to current directory name)")
	initCmd.Flags().String("backend", config.BackendFile, "storage backend ("+strings.Join(config.Backends(), ", ")+")")
	initCmd.Flags().Float64("capacity", config.DefaultCapacity, "daily capacity in hours")
	initCmd.Flags().String("seed", config.DefaultSeedSource, "starter dataset: embedded, none, a file path or an http(s) URL")
	initCmd.Flags().StringSlice("category", nil, "category as id:type[:label[:color]] (repeatable, replaces defaults)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := viper.GetString("dir")
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	// Check if already initialized.
	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.RegistryExists, "registry already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		name = filepath.Base(cwd)
	}

	cfg := config.NewDefault(name)
	cfg.SetDir(absDir)

	backend, _ := cmd.Flags().GetString("backend")
	if !slices.Contains(config.Backends(), backend) {
		return clierr.Newf(clierr.InvalidInput, "invalid --backend %q; valid: %s",
			backend, strings.Join(config.Backends(), ", "))
	}
	cfg.Store.Backend = backend

	capacity, _ := cmd.Flags().GetFloat64("capacity")
	if err := task.ValidateCapacity(capacity); err != nil {
		return err
	}
	cfg.Defaults.Capacity = capacity

	cfg.Seed.Source, _ = cmd.Flags().GetString("seed")

	if specs, _ := cmd.Flags().GetStringSlice("category"); len(specs) > 0 {
		categories, err := parseCategories(specs)
		if err != nil {
			return err
		}
		cfg.Categories = categories
	}

	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error())
	}

	const dirMode = 0o750
	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"status":     "initialized",
			"dir":        absDir,
			"name":       name,
			"config":     cfg.ConfigPath(),
			"backend":    cfg.Store.Backend,
			"categories": task.CategoryIDs(cfg.Categories),
		})
	}

	output.Messagef(os.Stdout, "Initialized registry %q in %s", name, absDir)
	output.Messagef(os.Stdout, "  Config:     %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Backend:    %s", cfg.Store.Backend)
	output.Messagef(os.Stdout, "  Capacity:   %s per day", output.FormatHours(cfg.Defaults.Capacity))
	output.Messagef(os.Stdout, "  Categories: %s", strings.Join(task.CategoryIDs(cfg.Categories), ", "))
	return nil
}

// parseCategories parses "id:type[:label[:color]]" specs.
func parseCategories(specs []string) ([]task.Category, error) {
	categories := make([]task.Category, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 4) //nolint:mnd // id:type:label:color
		if len(parts) < 2 || parts[0] == "" { //nolint:mnd // id and type are required
			return nil, clierr.Newf(clierr.InvalidInput, "invalid category %q (expected id:type[:label[:color]])", spec)
		}
		c := task.Category{
			ID:    parts[0],
			Type:  task.CategoryType(parts[1]),
			Label: parts[0],
		}
		if len(parts) > 2 && parts[2] != "" {
			c.Label = parts[2]
		}
		if len(parts) > 3 { //nolint:mnd // color present
			c.Color = parts[3]
		}
		categories = append(categories, c)
	}
	return categories, nil
}
