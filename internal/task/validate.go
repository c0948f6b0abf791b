package task

import (
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/date"
)

// Code identifies a failed validation rule.
type Code string

// Validation rule codes, in evaluation order.
const (
	TitleRequired        Code = "TitleRequired"
	TitlePadding         Code = "TitlePadding"
	TitleDuplicateWord   Code = "TitleDuplicateWord"
	DurationInvalid      Code = "DurationInvalid"
	DateInvalid          Code = "DateInvalid"
	CancelReasonRequired Code = "CancelReasonRequired"
	StatusInvalid        Code = "StatusInvalid"
	TimeInvalid          Code = "TimeInvalid"
	CategoryUnknown      Code = "CategoryUnknown"
)

// Field names used as keys in Errors.
const (
	FieldTitle        = "title"
	FieldDuration     = "duration"
	FieldDate         = "date"
	FieldCancelReason = "cancelReason"
	FieldStatus       = "status"
	FieldTime         = "time"
	FieldCategory     = "category"
)

// fieldOrder fixes which message is representative when several fields fail.
var fieldOrder = []string{
	FieldTitle, FieldDuration, FieldDate, FieldCancelReason,
	FieldStatus, FieldTime, FieldCategory,
}

// FieldOrder returns the validated field names in representative order.
func FieldOrder() []string {
	return slices.Clone(fieldOrder)
}

// MinCancelReason is the minimum trimmed length, in user-perceived characters,
// of a cancellation justification.
const MinCancelReason = 5

// durationStep is the quantum of a task duration, in hours.
const durationStep = 0.25

var (
	trailingWord = regexp.MustCompile(`\w+$`)
	leadingWord  = regexp.MustCompile(`^\w+`)
)

// FieldError is the first failing rule for one field.
type FieldError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Errors maps field names to their first failing rule. Empty means valid.
type Errors map[string]FieldError

// Error implements the error interface with the representative message.
func (e Errors) Error() string {
	_, fe, ok := e.First()
	if !ok {
		return "valid"
	}
	return fe.Message
}

// First returns the representative failure, using a fixed field order.
func (e Errors) First() (string, FieldError, bool) {
	for _, f := range fieldOrder {
		if fe, ok := e[f]; ok {
			return f, fe, true
		}
	}
	// Unknown field keys sort last, alphabetically.
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		return keys[0], e[keys[0]], true
	}
	return "", FieldError{}, false
}

// Has reports whether any field failed with code.
func (e Errors) Has(code Code) bool {
	for _, fe := range e {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// CLIError converts the mapping into a structured CLI error.
func (e Errors) CLIError() *clierr.Error {
	field, fe, _ := e.First()
	fields := make(map[string]any, len(e))
	for k, v := range e {
		fields[k] = v
	}
	return clierr.New(clierr.ValidationFailed, fe.Message).
		WithDetails(map[string]any{
			"field":  field,
			"code":   string(fe.Code),
			"fields": fields,
		})
}

// Validate checks a candidate record and returns every failing field.
// Only the first failing rule per field is reported. When categories is nil the
// category reference is not checked.
func Validate(t Task, categories []Category) Errors {
	errs := Errors{}

	if fe, ok := checkTitle(t.Title); !ok {
		errs[FieldTitle] = fe
	}
	if !validDuration(t.Duration) {
		errs[FieldDuration] = FieldError{DurationInvalid, "Duration must be a non-negative multiple of 0.25 hours."}
	}
	if !date.Valid(t.Date) {
		errs[FieldDate] = FieldError{DateInvalid, "Date must be a valid YYYY-MM-DD value."}
	}
	if t.Status == StatusCanceled && uniseg.GraphemeClusterCount(strings.TrimSpace(t.CancelReason)) < MinCancelReason {
		errs[FieldCancelReason] = FieldError{CancelReasonRequired, "Canceling requires a reason of at least 5 characters."}
	}
	if !t.Status.Valid() {
		errs[FieldStatus] = FieldError{StatusInvalid, "Status must be planned, completed or canceled."}
	}
	if t.Time != "" && !date.ValidClock(t.Time) {
		errs[FieldTime] = FieldError{TimeInvalid, "Time must be an HH:MM clock time."}
	}
	if categories != nil {
		if _, ok := FindCategory(categories, t.Category); !ok {
			errs[FieldCategory] = FieldError{CategoryUnknown, "Category must reference a configured category."}
		}
	}

	return errs
}

func checkTitle(title string) (FieldError, bool) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return FieldError{TitleRequired, "Title is required."}, false
	}
	if trimmed != title {
		return FieldError{TitlePadding, "Title must not start or end with whitespace."}, false
	}
	if HasDuplicateWord(title) {
		return FieldError{TitleDuplicateWord, "Title repeats the same word twice in a row."}, false
	}
	return FieldError{}, true
}

// HasDuplicateWord reports whether s contains two identical words (ASCII word
// characters, case-insensitive) separated only by whitespace, e.g. "Study Study".
func HasDuplicateWord(s string) bool {
	tokens := strings.Fields(s)
	for i := 1; i < len(tokens); i++ {
		left := trailingWord.FindString(tokens[i-1])
		right := leadingWord.FindString(tokens[i])
		if left != "" && strings.EqualFold(left, right) {
			return true
		}
	}
	return false
}

func validDuration(d float64) bool {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return false
	}
	steps := d / durationStep
	return steps == math.Trunc(steps)
}

// ParseStatus validates a status given on the command line.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "cancelled" {
		st = StatusCanceled
	}
	if !st.Valid() {
		return "", clierr.Newf(clierr.InvalidStatus, "invalid status %q", s).
			WithDetails(map[string]any{
				"status":  s,
				"allowed": Statuses(),
			})
	}
	return st, nil
}

// NotFound returns a CLIError for an unknown task id.
func NotFound(id string) *clierr.Error {
	return clierr.Newf(clierr.TaskNotFound, "task not found: %s", id).
		WithDetails(map[string]any{"id": id})
}

// ValidateTaskID returns a CLIError for malformed task id input.
func ValidateTaskID(input string) *clierr.Error {
	return clierr.Newf(clierr.InvalidTaskID, "invalid task ID %q", input).
		WithDetails(map[string]any{"input": input})
}

// ValidateCapacity checks a daily capacity value.
func ValidateCapacity(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return clierr.Newf(clierr.InvalidCapacity, "capacity must be a positive number of hours, got %v", v).
			WithDetails(map[string]any{"capacity": v})
	}
	return nil
}
