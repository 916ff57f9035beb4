// Package report defines the structured diagnostic report built from a
// command's output, and the Builder contract implemented by analyzers.
// Reports can be queried by package, symbol, or file.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/deixis/verdict/internal/runner"
)

// Kind classifies a diagnostic line.
type Kind string

const (
	Error    Kind = "error"
	Warning  Kind = "warning"
	TestFail Kind = "test_fail"
	Note     Kind = "note"
)

// Line is a single diagnostic extracted from command output.
type Line struct {
	Kind    Kind   `json:"kind" msgpack:"kind"`
	Source  string `json:"source" msgpack:"source"` // analyzer that produced it, e.g. "gotest"
	Package string `json:"package,omitempty" msgpack:"package,omitempty"`
	File    string `json:"file,omitempty" msgpack:"file,omitempty"`
	Line    int    `json:"line,omitempty" msgpack:"line,omitempty"`
	Col     int    `json:"col,omitempty" msgpack:"col,omitempty"`
	Symbol  string `json:"symbol,omitempty" msgpack:"symbol,omitempty"` // e.g. "TestAdd"
	Code    string `json:"code,omitempty" msgpack:"code,omitempty"`     // e.g. "SA4006", "E0384"
	Message string `json:"message" msgpack:"message"`
	Output  string `json:"output,omitempty" msgpack:"output,omitempty"` // full test output (test failures only)
}

// Location formats file:line:col, omitting the parts that are unknown.
func (l Line) Location() string {
	switch {
	case l.File == "":
		return ""
	case l.Line == 0:
		return l.File
	case l.Col == 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
	}
}

// Stats holds aggregate counts over a report's lines.
// Errors counts every error-level line, test failures included.
type Stats struct {
	Errors    int `json:"errors" msgpack:"errors"`
	Warnings  int `json:"warnings" msgpack:"warnings"`
	TestFails int `json:"test_fails" msgpack:"test_fails"`
	Notes     int `json:"notes" msgpack:"notes"`
}

// Add counts one line of the given kind.
func (s *Stats) Add(k Kind) {
	switch k {
	case Error:
		s.Errors++
	case TestFail:
		s.Errors++
		s.TestFails++
	case Warning:
		s.Warnings++
	case Note:
		s.Notes++
	}
}

func (s Stats) String() string {
	parts := []string{
		plural(s.Errors, "error"),
		plural(s.Warnings, "warning"),
	}
	if s.TestFails > 0 {
		parts = append(parts, plural(s.TestFails, "test failure"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Report is a structured diagnostic report.
type Report struct {
	Lines []Line `json:"lines" msgpack:"lines"`
	Stats Stats  `json:"stats" msgpack:"stats"`
}

// New returns a report holding lines, with stats computed from them.
func New(lines ...Line) *Report {
	r := &Report{}
	for _, l := range lines {
		r.Add(l)
	}
	return r
}

// Add appends a line and updates the stats.
func (r *Report) Add(l Line) {
	r.Lines = append(r.Lines, l)
	r.Stats.Add(l.Kind)
}

// Reverse reverses the order of the diagnostic lines in place.
func (r *Report) Reverse() {
	slices.Reverse(r.Lines)
}

// HasErrors reports whether the report found at least one error.
func (r *Report) HasErrors() bool {
	return r.Stats.Errors > 0
}

// Builder parses the full, ordered output of a command into a Report.
// An error means no report could be built at all.
type Builder interface {
	Build(lines []runner.Line) (*Report, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(lines []runner.Line) (*Report, error)

// Build calls f(lines).
func (f BuilderFunc) Build(lines []runner.Line) (*Report, error) {
	return f(lines)
}
