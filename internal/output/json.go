package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
)

// JSON writes data as indented JSON.
func JSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// JSONList writes items as a JSON array; nil encodes as [] rather than null.
func JSONList[T any](w io.Writer, items []T) error {
	if items == nil {
		items = []T{}
	}
	return JSON(w, items)
}

// ErrorResponse is the JSON envelope for a failed command.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// JSONError writes e as an ErrorResponse. Write failures are ignored: the
// process is about to exit with e's code either way.
func JSONError(w io.Writer, e *clierr.Error) {
	_ = JSON(w, ErrorResponse{Error: e.Message, Code: e.Code, Details: e.Details})
}

// BatchResult is the outcome for one id of a comma-separated batch.
type BatchResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}
