package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/config"
	"github.com/twiced-technology-gmbh/equilibrium/internal/output"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// capacityKey is the live daily capacity stored with the tasks, not in config.yml.
const capacityKey = "capacity"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify registry configuration",
	Long: `View the full configuration, get a specific key, or set a writable value.

The "capacity" key reads and writes the registry's current daily capacity.
"defaults.capacity" only applies to registries that have no data yet.`,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

func stringSetter(field func(*config.Config) *string) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		*field(c) = v
		return nil
	}
}

func configAccessors() map[string]configAccessor {
	return map[string]configAccessor{
		"version": {
			get: func(c *config.Config) any { return c.Version },
		},
		"name": {
			get:      func(c *config.Config) any { return c.Name },
			set:      stringSetter(func(c *config.Config) *string { return &c.Name }),
			writable: true,
		},
		"store.backend": {
			get: func(c *config.Config) any { return c.Store.Backend },
		},
		"store.key": {
			get: func(c *config.Config) any { return c.StoreKey() },
		},
		"seed.source": {
			get:      func(c *config.Config) any { return c.Seed.Source },
			set:      stringSetter(func(c *config.Config) *string { return &c.Seed.Source }),
			writable: true,
		},
		"seed.timeout": {
			get:      func(c *config.Config) any { return c.Seed.Timeout },
			set:      stringSetter(func(c *config.Config) *string { return &c.Seed.Timeout }),
			writable: true,
		},
		"defaults.time": {
			get:      func(c *config.Config) any { return c.Defaults.Time },
			set:      stringSetter(func(c *config.Config) *string { return &c.Defaults.Time }),
			writable: true,
		},
		"defaults.status": {
			get: func(c *config.Config) any { return c.Defaults.Status },
			set: func(c *config.Config, v string) error {
				st, err := task.ParseStatus(v)
				if err != nil {
					return err
				}
				c.Defaults.Status = string(st)
				return nil
			},
			writable: true,
		},
		"defaults.capacity": {
			get: func(c *config.Config) any { return c.Defaults.Capacity },
			set: func(c *config.Config, v string) error {
				f, err := parseCapacity(v)
				if err != nil {
					return err
				}
				c.Defaults.Capacity = f
				return nil
			},
			writable: true,
		},
		"categories": {
			get: func(c *config.Config) any { return c.Categories },
		},
		"search.timeout": {
			get:      func(c *config.Config) any { return c.Search.Timeout },
			set:      stringSetter(func(c *config.Config) *string { return &c.Search.Timeout }),
			writable: true,
		},
		"tui.title_width": {
			get: func(c *config.Config) any { return c.TitleWidth() },
			set: func(c *config.Config, v string) error {
				n, err := strconv.Atoi(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput,
						"invalid tui.title_width %q: must be an integer", v)
				}
				c.TUI.TitleWidth = n
				return nil // validation handles range check
			},
			writable: true,
		},
		"tui.load_thresholds": {
			get: func(c *config.Config) any { return c.TUI.LoadThresholds },
		},
		"trace.exporter": {
			get:      func(c *config.Config) any { return c.Trace.Exporter },
			set:      stringSetter(func(c *config.Config) *string { return &c.Trace.Exporter }),
			writable: true,
		},
	}
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"name",
		"store.backend",
		"store.key",
		"seed.source",
		"seed.timeout",
		"defaults.time",
		"defaults.status",
		"defaults.capacity",
		"categories",
		"search.timeout",
		"tui.title_width",
		"tui.load_thresholds",
		"trace.exporter",
	}
}

func parseCapacity(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, clierr.Newf(clierr.InvalidCapacity, "invalid capacity %q: must be a number", v)
	}
	if err := task.ValidateCapacity(f); err != nil {
		return 0, err
	}
	return f, nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, reg, closeFn, err := openRegistry(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	accessors := configAccessors()
	capacity := reg.Settings().Capacity

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors)+1)
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].get(cfg)
		}
		m[capacityKey] = capacity
		return output.JSON(os.Stdout, m)
	}

	// Table mode: key-value pairs.
	fmt.Fprintf(os.Stdout, "%-20s %s\n", capacityKey, output.FormatHours(capacity))
	for _, key := range allConfigKeys() {
		val := accessors[key].get(cfg)
		fmt.Fprintf(os.Stdout, "%-20s %v\n", key, formatConfigValue(val))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	var val any

	if key == capacityKey {
		_, reg, closeFn, err := openRegistry(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeFn()
		val = reg.Settings().Capacity
	} else {
		acc, ok := configAccessors()[key]
		if !ok {
			return unknownConfigKey(key)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		val = acc.get(cfg)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}

	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if key == capacityKey {
		return setCapacity(cmd, value)
	}

	acc, ok := configAccessors()[key]
	if !ok {
		return unknownConfigKey(key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error())
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	return printConfigSet(key, acc.get(cfg))
}

// setCapacity updates the live daily capacity through the registry.
func setCapacity(cmd *cobra.Command, value string) error {
	f, err := parseCapacity(value)
	if err != nil {
		return err
	}

	_, reg, closeFn, err := openRegistry(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := reg.SetCapacity(f); err != nil {
		return err
	}
	warnUnsaved(reg)
	return printConfigSet(capacityKey, reg.Settings().Capacity)
}

func printConfigSet(key string, val any) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": val})
	}
	output.Messagef(os.Stdout, "Set %s = %v", key, formatConfigValue(val))
	return nil
}

func unknownConfigKey(key string) error {
	return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key).
		WithDetails(map[string]any{"valid": append([]string{capacityKey}, allConfigKeys()...)})
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case []task.Category:
		parts := make([]string, 0, len(v))
		for _, c := range v {
			parts = append(parts, fmt.Sprintf("%s(%s)", c.ID, c.Type))
		}
		return strings.Join(parts, ", ")
	case []config.LoadThreshold:
		if len(v) == 0 {
			return "--"
		}
		parts := make([]string, 0, len(v))
		for _, lt := range v {
			parts = append(parts, fmt.Sprintf("%d%%=%s", lt.Percent, lt.Color))
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
