package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

const maxSlugLength = 50

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Export is a downloadable snapshot file.
type Export struct {
	Filename string
	Data     []byte
}

// ExportSnapshot renders s as pretty-printed JSON with a filename embedding the
// date of now. It does not modify s.
func ExportSnapshot(s *task.Snapshot, name string, now time.Time) (Export, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return Export{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	return Export{Filename: ExportFilename(name, now), Data: buf.Bytes()}, nil
}

// ExportFilename returns "<slug>-YYYY-MM-DD.json".
func ExportFilename(name string, now time.Time) string {
	slug := GenerateSlug(name)
	if slug == "" {
		slug = "equilibrium"
	}
	return slug + "-" + date.Format(now) + ".json"
}

// GenerateSlug converts a name to a filename-friendly slug.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		// Truncate at word boundary.
		truncated := slug[:maxSlugLength]
		if slug[maxSlugLength] != '-' {
			if idx := strings.LastIndex(truncated, "-"); idx > 0 {
				truncated = truncated[:idx]
			}
		}
		slug = strings.TrimRight(truncated, "-")
	}

	return slug
}

// ImportResult is the tagged outcome of ImportSnapshot.
type ImportResult struct {
	Success bool
	Data    *task.Snapshot
	Err     *clierr.Error
	// Malformed lists task entries that did not decode into a task. Their
	// slots in Data.Tasks hold zero values.
	Malformed []MalformedRecord
}

// MalformedRecord is a "tasks" entry whose JSON does not fit the task shape.
type MalformedRecord struct {
	Index int
	Err   error
}

// ImportSnapshot parses text as a snapshot. The only structural requirement is a
// JSON object with a "tasks" list; records themselves are not validated here.
// Entries that fail to decode are reported in Malformed, and an unreadable
// settings or viewDate section is left zero for the caller to default.
func ImportSnapshot(text []byte) ImportResult {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(text, &top); err != nil || top == nil {
		return importFailure("import must be a JSON object", err)
	}

	raw, ok := top["tasks"]
	if !ok {
		return importFailure(`import is missing the "tasks" field`, nil)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil || records == nil {
		return importFailure(`"tasks" must be a list`, err)
	}

	res := ImportResult{Success: true, Data: &task.Snapshot{Tasks: make([]task.Task, len(records))}}
	for i, rec := range records {
		if err := decodeRecord(rec, &res.Data.Tasks[i]); err != nil {
			res.Data.Tasks[i] = task.Task{}
			res.Malformed = append(res.Malformed, MalformedRecord{Index: i, Err: err})
		}
	}

	res.Data.Settings = decodeSettings(top["settings"])
	if v, ok := top["viewDate"]; ok {
		if err := json.Unmarshal(v, &res.Data.ViewDate); err != nil {
			log.Debug(log.CatStore, "ignoring unreadable viewDate", "error", err)
			res.Data.ViewDate = date.ViewMonth{}
		}
	}
	return res
}

// decodeRecord decodes one task entry. Only JSON objects are accepted.
func decodeRecord(raw json.RawMessage, t *task.Task) error {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("expected an object, got %s", raw)
	}
	return json.Unmarshal(raw, t)
}

// decodeSettings reads capacity and categories independently so that one
// unreadable field does not discard the other.
func decodeSettings(raw json.RawMessage) task.Settings {
	var s task.Settings
	if len(raw) == 0 {
		return s
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		log.Debug(log.CatStore, "ignoring unreadable settings", "error", err)
		return s
	}
	if v, ok := fields["capacity"]; ok {
		if err := json.Unmarshal(v, &s.Capacity); err != nil {
			log.Debug(log.CatStore, "ignoring unreadable capacity", "error", err)
			s.Capacity = 0
		}
	}
	if v, ok := fields["categories"]; ok {
		if err := json.Unmarshal(v, &s.Categories); err != nil {
			log.Debug(log.CatStore, "ignoring unreadable categories", "error", err)
			s.Categories = nil
		}
	}
	return s
}

func importFailure(msg string, cause error) ImportResult {
	details := map[string]any{}
	if cause != nil {
		details["cause"] = cause.Error()
	}
	return ImportResult{
		Err: clierr.New(clierr.ImportStructure, msg).WithDetails(details),
	}
}
