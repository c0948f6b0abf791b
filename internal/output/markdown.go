package output

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// noMarginStyle removes document margins from the auto style.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// RenderNotes renders task notes as markdown wrapped to width. When color is
// disabled or rendering fails, the notes are returned as plain text.
func RenderNotes(notes string, width int) string {
	if !colorEnabled {
		return notes
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return notes
	}
	out, err := r.Render(notes)
	if err != nil {
		return notes
	}
	return strings.TrimRight(out, "\n")
}
