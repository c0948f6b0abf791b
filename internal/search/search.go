// Package search compiles user-supplied patterns into matchers and filters task
// collections with them. Compilation never panics: an invalid pattern yields a nil
// Matcher, and a nil Matcher filters nothing out.
package search

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/twiced-technology-gmbh/equilibrium/internal/clierr"
	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
)

// DefaultMatchTimeout bounds a single match attempt against one record.
const DefaultMatchTimeout = 250 * time.Millisecond

// Options controls pattern compilation.
type Options struct {
	CaseSensitive bool          // default is case-insensitive
	Timeout       time.Duration // per-match timeout; zero means DefaultMatchTimeout
}

// CompileError reports a pattern that could not be compiled.
type CompileError struct {
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid search pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying parser error.
func (e *CompileError) Unwrap() error { return e.Err }

// CLIError converts the compile failure into a structured CLI error.
func (e *CompileError) CLIError() *clierr.Error {
	return clierr.New(clierr.InvalidPattern, e.Error()).
		WithDetails(map[string]any{"pattern": e.Pattern})
}

// Matcher is a compiled, reusable pattern. It holds no per-call state, so one
// Matcher can test any number of records in any order.
type Matcher struct {
	re            *regexp2.Regexp
	pattern       string
	caseSensitive bool
}

// Compile turns pattern into a Matcher using ECMAScript regular-expression syntax.
// On failure it returns a nil Matcher and a *CompileError; callers treat that as
// "no filtering" rather than "match nothing".
func Compile(pattern string, opts Options) (m *Matcher, err error) {
	defer func() {
		// regexp2 reports syntax errors as values; a parser panic is turned into
		// a compile error as well.
		if r := recover(); r != nil {
			m = nil
			err = &CompileError{Pattern: pattern, Err: fmt.Errorf("%v", r)}
		}
	}()

	flags := regexp2.RegexOptions(regexp2.ECMAScript)
	if !opts.CaseSensitive {
		flags |= regexp2.IgnoreCase
	}
	re, compileErr := regexp2.Compile(pattern, flags)
	if compileErr != nil {
		log.Debug(log.CatSearch, "pattern rejected", "pattern", pattern, "error", compileErr)
		return nil, &CompileError{Pattern: pattern, Err: compileErr}
	}
	re.MatchTimeout = opts.Timeout
	if re.MatchTimeout <= 0 {
		re.MatchTimeout = DefaultMatchTimeout
	}
	return &Matcher{re: re, pattern: pattern, caseSensitive: opts.CaseSensitive}, nil
}

// CompileOrNil is like Compile but drops the error, returning a nil Matcher
// (match everything) for an invalid pattern.
func CompileOrNil(pattern string, opts Options) *Matcher {
	m, _ := Compile(pattern, opts)
	return m
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string { return m.pattern }

// CaseSensitive reports whether the matcher distinguishes case.
func (m *Matcher) CaseSensitive() bool { return m.caseSensitive }

// Match reports whether the pattern matches anywhere in text.
// A match that exceeds the timeout counts as no match.
func (m *Matcher) Match(text string) bool {
	ok, err := m.re.MatchString(text)
	if err != nil {
		log.Warn(log.CatSearch, "match aborted", "pattern", m.pattern, "error", err)
		return false
	}
	return ok
}

// MatchTask reports whether the pattern matches the task's searchable text.
func (m *Matcher) MatchTask(t *task.Task) bool {
	return m.Match(t.SearchText())
}

// Filter returns the tasks matched by m, preserving order.
// A nil matcher returns tasks unchanged.
func Filter(tasks []task.Task, m *Matcher) []task.Task {
	if m == nil {
		return tasks
	}
	result := make([]task.Task, 0, len(tasks))
	for i := range tasks {
		if m.MatchTask(&tasks[i]) {
			result = append(result, tasks[i])
		}
	}
	return result
}

// Span is a half-open range of rune offsets within a string.
type Span struct {
	Start int
	End   int
}

// Highlight returns the non-overlapping match spans of m within text.
// Empty matches are skipped.
func Highlight(text string, m *Matcher) []Span {
	if m == nil {
		return nil
	}
	var spans []Span
	match, err := m.re.FindStringMatch(text)
	for err == nil && match != nil {
		if match.Length > 0 {
			spans = append(spans, Span{Start: match.Index, End: match.Index + match.Length})
		}
		match, err = m.re.FindNextMatch(match)
	}
	if err != nil {
		log.Warn(log.CatSearch, "highlight aborted", "pattern", m.pattern, "error", err)
	}
	return spans
}
