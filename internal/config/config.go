package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/store"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
	"github.com/twiced-technology-gmbh/equilibrium/internal/tracing"
)

const (
	fileMode = 0o600
	dirMode  = 0o750
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("no registry found (run 'equilibrium init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the registry configuration.
type Config struct {
	Version    int             `yaml:"version"`
	Name       string          `yaml:"name"`
	Store      StoreConfig     `yaml:"store"`
	Seed       SeedConfig      `yaml:"seed"`
	Defaults   DefaultsConfig  `yaml:"defaults"`
	Categories []task.Category `yaml:"categories"`
	Search     SearchConfig    `yaml:"search"`
	TUI        TUIConfig       `yaml:"tui,omitempty"`
	Trace      TraceConfig     `yaml:"trace,omitempty"`

	// dir is the absolute path to the registry directory (not serialized).
	dir string `yaml:"-"`
}

// StoreConfig selects where the snapshot lives.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Key     string `yaml:"key,omitempty"`
}

// SeedConfig selects the starter dataset for an empty registry.
type SeedConfig struct {
	Source  string `yaml:"source"`  // "embedded", a file path or an http(s) URL
	Timeout string `yaml:"timeout"` // duration string, e.g. "5s"
}

// DefaultsConfig holds default values for new tasks and fresh registries.
type DefaultsConfig struct {
	Time     string  `yaml:"time"`
	Status   string  `yaml:"status"`
	Capacity float64 `yaml:"capacity"`
}

// SearchConfig holds pattern search settings.
type SearchConfig struct {
	Timeout string `yaml:"timeout"`
}

// LoadThreshold maps a percentage of daily capacity to an ANSI color code.
// Today's load at or above the percent renders in this color.
type LoadThreshold struct {
	Percent int    `yaml:"percent" json:"percent"`
	Color   string `yaml:"color" json:"color"` // ANSI 256 color code, e.g. "34", "226", "196"
}

// TUIConfig holds dashboard display settings.
type TUIConfig struct {
	TitleWidth     int             `yaml:"title_width,omitempty"`
	LoadThresholds []LoadThreshold `yaml:"load_thresholds,omitempty"`
}

// TraceConfig selects the span exporter: none, file or stdout.
type TraceConfig struct {
	Exporter string `yaml:"exporter,omitempty"`
}

// Dir returns the absolute path to the registry directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the registry directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// DatabasePath returns the SQLite database path used by the sqlite backend.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.dir, DatabaseFileName)
}

// DebugLogPath returns the debug log location.
func (c *Config) DebugLogPath() string {
	return filepath.Join(c.dir, DebugLogFileName)
}

// TracePath returns the span log written by the file trace exporter.
func (c *Config) TracePath() string {
	return filepath.Join(c.dir, tracing.FileName)
}

// StoreKey returns the snapshot key.
func (c *Config) StoreKey() string {
	if c.Store.Key == "" {
		return store.DefaultKey
	}
	return c.Store.Key
}

// NewDefault creates a Config with default values.
func NewDefault(name string) *Config {
	if name == "" {
		name = DefaultName
	}
	return &Config{
		Version:    CurrentVersion,
		Name:       name,
		Store:      StoreConfig{Backend: BackendFile, Key: store.DefaultKey},
		Seed:       SeedConfig{Source: DefaultSeedSource, Timeout: DefaultSeedTimeout},
		Categories: append([]task.Category{}, DefaultCategories...),
		Search:     SearchConfig{Timeout: DefaultSearchTimeout},
		Trace:      TraceConfig{Exporter: tracing.ExporterNone},
		TUI: TUIConfig{
			TitleWidth:     DefaultTitleWidth,
			LoadThresholds: append([]LoadThreshold{}, DefaultLoadThresholds...),
		},
		Defaults: DefaultsConfig{
			Time:     task.DefaultTime,
			Status:   DefaultStatus,
			Capacity: DefaultCapacity,
		},
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if !slices.Contains(Backends(), c.Store.Backend) {
		return fmt.Errorf("%w: store.backend %q must be one of %v", ErrInvalid, c.Store.Backend, Backends())
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	if err := validateDuration("seed.timeout", c.Seed.Timeout); err != nil {
		return err
	}
	if err := validateDuration("search.timeout", c.Search.Timeout); err != nil {
		return err
	}
	if !tracing.Valid(c.Trace.Exporter) {
		return fmt.Errorf("%w: trace.exporter %q must be one of %v", ErrInvalid, c.Trace.Exporter, tracing.Exporters())
	}
	return c.validateTUI()
}

func (c *Config) validateDefaults() error {
	if !date.ValidClock(c.Defaults.Time) {
		return fmt.Errorf("%w: defaults.time %q must be HH:MM", ErrInvalid, c.Defaults.Time)
	}
	if !task.Status(c.Defaults.Status).Valid() {
		return fmt.Errorf("%w: defaults.status %q must be one of %v", ErrInvalid, c.Defaults.Status, task.Statuses())
	}
	if err := task.ValidateCapacity(c.Defaults.Capacity); err != nil {
		return fmt.Errorf("%w: defaults.capacity: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) validateCategories() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: at least 1 category is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.ID == "" {
			return fmt.Errorf("%w: categories[%d].id is required", ErrInvalid, i)
		}
		if seen[cat.ID] {
			return fmt.Errorf("%w: duplicate category id %q", ErrInvalid, cat.ID)
		}
		seen[cat.ID] = true
		if cat.Label == "" {
			return fmt.Errorf("%w: categories[%d].label is required", ErrInvalid, i)
		}
		if cat.Type != task.TypeWork && cat.Type != task.TypeLife {
			return fmt.Errorf("%w: category %q type must be work or life", ErrInvalid, cat.ID)
		}
	}
	return nil
}

func (c *Config) validateTUI() error {
	const minTitleWidth, maxTitleWidth = 10, 120
	if c.TUI.TitleWidth < minTitleWidth || c.TUI.TitleWidth > maxTitleWidth {
		return fmt.Errorf("%w: tui.title_width must be between %d and %d",
			ErrInvalid, minTitleWidth, maxTitleWidth)
	}
	for i, lt := range c.TUI.LoadThresholds {
		if lt.Percent < 0 {
			return fmt.Errorf("%w: tui.load_thresholds[%d].percent must be >= 0", ErrInvalid, i)
		}
		if lt.Color == "" {
			return fmt.Errorf("%w: tui.load_thresholds[%d].color is required", ErrInvalid, i)
		}
	}
	return nil
}

func validateDuration(key, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: invalid %s %q: %w", ErrInvalid, key, v, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, key)
	}
	return nil
}

// SeedTimeout returns the seed fetch timeout, or 0 if unparseable.
func (c *Config) SeedTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Seed.Timeout)
	return d
}

// SearchTimeout returns the per-match timeout, or 0 if unparseable.
func (c *Config) SearchTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Search.Timeout)
	return d
}

// LoadColor returns the color for a load percentage: the color of the highest
// threshold at or below percent. Returns "" when no threshold applies.
func (c *Config) LoadColor(percent int) string {
	thresholds := slices.Clone(c.TUI.LoadThresholds)
	if len(thresholds) == 0 {
		thresholds = slices.Clone(DefaultLoadThresholds)
	}
	slices.SortFunc(thresholds, func(a, b LoadThreshold) int { return a.Percent - b.Percent })

	color := ""
	for _, lt := range thresholds {
		if percent >= lt.Percent {
			color = lt.Color
		}
	}
	return color
}

// TitleWidth returns the configured title column width.
// Returns DefaultTitleWidth if the value is unset (zero).
func (c *Config) TitleWidth() int {
	if c.TUI.TitleWidth == 0 {
		return DefaultTitleWidth
	}
	return c.TUI.TitleWidth
}

// Category returns the configured category with id.
func (c *Config) Category(id string) (task.Category, bool) {
	return task.FindCategory(c.Categories, id)
}

// Init creates a new registry in the given directory with default settings.
func Init(dir, name string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, ConfigFileName)); err == nil {
		return nil, clierr.Newf(clierr.RegistryExists, "registry already exists in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	cfg := NewDefault(name)
	cfg.SetDir(absDir)

	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	log.Info(log.CatConfig, "registry initialized", "dir", absDir)
	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads and validates a config from the given registry directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		log.Info(log.CatConfig, "config migrated", "from", oldVersion, "to", cfg.Version)
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a registry directory
// containing config.yml. Returns the absolute path to the registry directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		// Also check if we're inside the registry directory itself.
		candidate = filepath.Join(dir, ConfigFileName)
		if filepath.Base(dir) == DefaultDir {
			if _, err := os.Stat(candidate); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.RegistryNotFound,
				"no registry found (run 'equilibrium init' to create one)")
		}
		dir = parent
	}
}

// UserDir returns the per-user registry directory, ~/.config/equilibrium.
func UserDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "equilibrium"), nil
}
