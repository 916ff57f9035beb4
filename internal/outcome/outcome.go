// Package outcome decides whether a command's parsed report can be
// trusted, or whether its raw output has to be kept instead.
//
// An Outcome is exactly one of *Report, *Failure, or None. Consumers
// branch with a type switch:
//
//	switch o := o.(type) {
//	case *outcome.Report:
//		// o.Report holds structured diagnostics
//	case *outcome.Failure:
//		// o.ErrorCode and o.Lines hold the raw output
//	case outcome.None:
//		// nothing has run yet
//	}
package outcome

import (
	"fmt"
	"slices"

	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

// Kind names the active variant of an Outcome.
type Kind string

const (
	KindReport  Kind = "report"
	KindFailure Kind = "failure"
	KindNone    Kind = "none"
)

// Outcome is the result of classifying one command run.
type Outcome interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Reverse reverses the active variant's line order in place.
	Reverse()
	// LinesLen returns the number of lines held by the active variant.
	LinesLen() int

	isOutcome()
}

// Report is a trusted, structured result.
type Report struct {
	Report *report.Report
}

func (*Report) Kind() Kind { return KindReport }

// Reverse reverses the report's diagnostic lines.
func (r *Report) Reverse() { r.Report.Reverse() }

// LinesLen counts diagnostic lines, not raw output lines.
func (r *Report) LinesLen() int { return len(r.Report.Lines) }

func (*Report) isOutcome() {}

// Failure is raw output kept verbatim because the process reported a
// failure that the report did not account for.
type Failure struct {
	ErrorCode int           `json:"error_code" msgpack:"error_code"`
	Lines     []runner.Line `json:"lines" msgpack:"lines"`
}

func (*Failure) Kind() Kind { return KindFailure }

// Reverse reverses the raw lines.
func (f *Failure) Reverse() { slices.Reverse(f.Lines) }

func (f *Failure) LinesLen() int { return len(f.Lines) }

func (*Failure) isOutcome() {}

// None means no command has completed yet.
type None struct{}

func (None) Kind() Kind    { return KindNone }
func (None) Reverse()      {}
func (None) LinesLen() int { return 0 }
func (None) isOutcome()    {}

// ParseError is returned by Classify when the builder could not produce a
// report at all. It is distinct from a Failure outcome.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("building report: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Classify builds a report from lines and decides whether to trust it.
//
// status may be nil when the process state is unknown. A status without
// an exit code (signal termination) counts as a clean exit here, since
// there is no code to report.
//
// The report is trusted unless the process exited with a nonzero code
// while the report found no errors; in that case the report most likely
// missed the real cause and a Failure holding the original lines is
// returned.
func Classify(lines []runner.Line, status *runner.ExitStatus, b report.Builder) (Outcome, error) {
	code, hasCode := status.ExitCode()
	failed := hasCode && code != 0

	r, err := b.Build(lines)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if r == nil {
		r = report.New()
	}

	if failed && r.Stats.Errors == 0 {
		return &Failure{ErrorCode: code, Lines: lines}, nil
	}
	return &Report{Report: r}, nil
}
