// Package date provides calendar-date and clock-time helpers for task records.
// Task dates travel as YYYY-MM-DD strings so that malformed input can reach the
// validator intact; this package owns the pattern checks and conversions.
package date

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Layout is the canonical calendar-date layout.
const Layout = "2006-01-02"

// ClockLayout is the canonical clock-time layout.
const ClockLayout = "15:04"

var (
	// Pattern-level only: day 31 is accepted in every month.
	dateRe  = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
	clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Valid reports whether s has the shape YYYY-MM-DD with month 01–12 and day 01–31.
func Valid(s string) bool {
	return dateRe.MatchString(s)
}

// ValidClock reports whether s is an HH:MM clock time.
func ValidClock(s string) bool {
	return clockRe.MatchString(s)
}

// Format returns t's calendar date as YYYY-MM-DD in t's location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Today returns today's date in local time.
func Today() string {
	return Format(time.Now())
}

// Date represents a calendar date without time or timezone.
// It is used for command-line range filters, where input must be a real date.
type Date struct {
	time.Time
}

// New creates a Date from year, month, day.
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Parse parses a YYYY-MM-DD string into a Date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(Layout)
}

// Contains reports whether the YYYY-MM-DD string s falls within [from, to].
// Zero bounds are open. Strings that do not parse never match a bounded range.
func Contains(s string, from, to *Date) bool {
	if from == nil && to == nil {
		return true
	}
	d, err := Parse(s)
	if err != nil {
		return false
	}
	if from != nil && d.Before(from.Time) {
		return false
	}
	if to != nil && d.After(to.Time) {
		return false
	}
	return true
}

// ViewMonth is the calendar cursor persisted with a snapshot.
type ViewMonth struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// CurrentMonth returns the ViewMonth containing t. Month is zero-based
// (January = 0) to stay compatible with snapshots written by other clients.
func CurrentMonth(t time.Time) ViewMonth {
	return ViewMonth{Month: int(t.Month()) - 1, Year: t.Year()}
}

// Valid reports whether the month index is within 0–11.
func (v ViewMonth) Valid() bool {
	return v.Month >= 0 && v.Month <= 11 && v.Year > 0
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
