// Package config handles registry configuration.
package config

import "github.com/twiced-technology-gmbh/equilibrium/internal/task"

const (
	// DefaultDir is the default registry directory name.
	DefaultDir = ".equilibrium"
	// DefaultName is the registry name used when none is given.
	DefaultName = "equilibrium"
	// DefaultStatus is the default status for new tasks.
	DefaultStatus = "planned"
	// DefaultCapacity is the default daily capacity in hours.
	DefaultCapacity = 8.0
	// DefaultSeedSource bundles the starter dataset into the binary.
	DefaultSeedSource = "embedded"
	// DefaultSeedTimeout bounds the seed fetch.
	DefaultSeedTimeout = "5s"
	// DefaultSearchTimeout bounds a single pattern match.
	DefaultSearchTimeout = "250ms"
	// DefaultTitleWidth is the title column width in tables and the dashboard.
	DefaultTitleWidth = 40

	// BackendFile stores the snapshot as a JSON file in the registry directory.
	BackendFile = "file"
	// BackendSQLite stores the snapshot in a SQLite database.
	BackendSQLite = "sqlite"

	// ConfigFileName is the name of the config file within the registry directory.
	ConfigFileName = "config.yml"
	// DatabaseFileName is the SQLite database used by the sqlite backend.
	DatabaseFileName = "registry.db"
	// DebugLogFileName receives debug logs when --debug is set.
	DebugLogFileName = "debug.log"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 4
)

// Default slice values for a new registry (slices cannot be const).
var (
	DefaultCategories = []task.Category{
		{ID: "academic", Label: "Academic", Color: "39", Type: task.TypeWork},
		{ID: "work", Label: "Work", Color: "33", Type: task.TypeWork},
		{ID: "fitness", Label: "Fitness", Color: "42", Type: task.TypeLife},
		{ID: "social", Label: "Social", Color: "213", Type: task.TypeLife},
		{ID: "leisure", Label: "Leisure", Color: "141", Type: task.TypeLife},
	}

	// DefaultLoadThresholds color today's load by percent of capacity.
	DefaultLoadThresholds = []LoadThreshold{
		{Percent: 0, Color: "34"},    // green
		{Percent: 75, Color: "226"},  // yellow
		{Percent: 100, Color: "208"}, // orange
		{Percent: 125, Color: "196"}, // red
	}
)

// Backends returns the supported store backends.
func Backends() []string {
	return []string{BackendFile, BackendSQLite}
}
