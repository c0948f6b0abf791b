package config

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/twiced-technology-gmbh/equilibrium/internal/tracing"
)

// migrate upgrades a config from its current version to CurrentVersion.
// Each migration function transforms the config one version forward.
// Returns nil if no migration is needed (already at current version).
// Returns an error if the config version is newer than what this binary supports.
func migrate(cfg *Config) error {
	if cfg.Version == CurrentVersion {
		return nil
	}
	if cfg.Version > CurrentVersion {
		return fmt.Errorf(
			"%w: config version %d is newer than supported version %d (upgrade equilibrium)",
			ErrInvalid, cfg.Version, CurrentVersion,
		)
	}
	if cfg.Version < 1 {
		return fmt.Errorf("%w: config version %d is invalid", ErrInvalid, cfg.Version)
	}

	for cfg.Version < CurrentVersion {
		fn, ok := migrations[cfg.Version]
		if !ok {
			return fmt.Errorf("%w: no migration path from version %d", ErrInvalid, cfg.Version)
		}
		if err := fn(cfg); err != nil {
			return fmt.Errorf("migrating config from v%d: %w", cfg.Version, err)
		}
	}

	return nil
}

// migrations maps each version to the function that migrates it to the next version.
// The migration function must increment cfg.Version after a successful migration.
var migrations = map[int]func(*Config) error{
	1: migrateV1ToV2,
	2: migrateV2ToV3,
	3: migrateV3ToV4,
}

// migrateV1ToV2 adds the store and seed sections.
func migrateV1ToV2(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendFile
	}
	if cfg.Seed.Source == "" {
		cfg.Seed.Source = DefaultSeedSource
	}
	if cfg.Seed.Timeout == "" {
		cfg.Seed.Timeout = DefaultSeedTimeout
	}
	cfg.Version = 2
	return nil
}

// migrateV2ToV3 adds search.timeout and the tui section.
func migrateV2ToV3(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	if cfg.Search.Timeout == "" {
		cfg.Search.Timeout = DefaultSearchTimeout
	}
	if cfg.TUI.TitleWidth == 0 {
		cfg.TUI.TitleWidth = DefaultTitleWidth
	}
	if len(cfg.TUI.LoadThresholds) == 0 {
		cfg.TUI.LoadThresholds = append([]LoadThreshold{}, DefaultLoadThresholds...)
	}
	cfg.Version = 3
	return nil
}

// migrateV3ToV4 adds the trace section and stores load thresholds in
// ascending percent order.
func migrateV3ToV4(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	if cfg.Trace.Exporter == "" {
		cfg.Trace.Exporter = tracing.ExporterNone
	}
	slices.SortStableFunc(cfg.TUI.LoadThresholds, func(a, b LoadThreshold) int {
		return cmp.Compare(a.Percent, b.Percent)
	})
	cfg.Version = 4
	return nil
}
