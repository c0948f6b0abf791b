// Package output handles formatting CLI output as table, JSON, or compact.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Format represents an output format.
type Format int

const (
	// FormatAuto uses the default format (table).
	FormatAuto Format = iota
	// FormatJSON outputs JSON.
	FormatJSON
	// FormatTable outputs a human-readable table.
	FormatTable
	// FormatCompact outputs one-line-per-record compact format.
	FormatCompact
)

// EnvOutput names the environment variable that selects the default format.
const EnvOutput = "EQUILIBRIUM_OUTPUT"

// Detect returns the appropriate format based on flags and environment.
// Default is table when no explicit format is set.
func Detect(jsonFlag, tableFlag, compactFlag bool) Format {
	if jsonFlag {
		return FormatJSON
	}
	if compactFlag {
		return FormatCompact
	}
	if tableFlag {
		return FormatTable
	}

	return ParseFormat(os.Getenv(EnvOutput))
}

// ParseFormat maps a format name to a Format. Unknown names mean table.
func ParseFormat(s string) Format {
	switch s {
	case "json":
		return FormatJSON
	case "compact", "oneline":
		return FormatCompact
	default:
		return FormatTable
	}
}

// DisableColor strips all styling from output, including category colors.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	colorEnabled = false
}

// colorEnabled gates markdown rendering of notes, which styles independently
// of the lipgloss profile.
var colorEnabled = true
