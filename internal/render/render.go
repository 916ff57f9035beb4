// Package render turns outcomes and run records into the plain-text form
// shown by the CLI and returned by MCP tools.
//
// Raw output of a Failure is printed verbatim, one line per captured
// line. Stdout lines are indented by two spaces and stderr lines are
// marked with "! ".
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/deixis/verdict/internal/outcome"
	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

// DefaultMaxOutputLines is the number of output lines shown per
// diagnostic when Options.MaxOutputLines is zero.
const DefaultMaxOutputLines = 20

// Options controls rendering.
type Options struct {
	Color          bool
	MaxOutputLines int // per diagnostic; negative hides diagnostic output
}

func (o Options) maxOutputLines() int {
	if o.MaxOutputLines == 0 {
		return DefaultMaxOutputLines
	}
	return o.MaxOutputLines
}

type palette struct {
	err, warn, note, ok, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
		note: color.New(color.FgCyan),
		ok:   color.New(color.FgGreen),
		dim:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.note, p.ok, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Text renders o.
func Text(o outcome.Outcome, opts Options) string {
	p := newPalette(opts.Color)
	var b strings.Builder

	switch o := o.(type) {
	case *outcome.Report:
		writeReport(&b, o.Report, p, opts)
	case *outcome.Failure:
		fmt.Fprintln(&b, p.err.Sprintf("command failed (code %d), showing raw output", o.ErrorCode))
		fmt.Fprintln(&b)
		writeRaw(&b, o.Lines, p)
	case outcome.None:
		fmt.Fprintln(&b, "no result yet")
	default:
		panic(fmt.Sprintf("render: unexpected outcome %T", o))
	}
	return b.String()
}

func writeReport(b *strings.Builder, r *report.Report, p palette, opts Options) {
	if r.HasErrors() {
		fmt.Fprintf(b, "Status: %s\n", p.err.Sprint(r.Stats.String()))
	} else if r.Stats.Warnings > 0 {
		fmt.Fprintf(b, "Status: %s\n", p.warn.Sprint(r.Stats.String()))
	} else {
		fmt.Fprintf(b, "Status: %s\n", p.ok.Sprint("OK"))
	}
	if len(r.Lines) == 0 {
		return
	}
	fmt.Fprintln(b)
	writeLines(b, r.Lines, p, opts)
}

// Lines renders diagnostic lines without a status header, as used when
// drilling into a stored report.
func Lines(lines []report.Line, opts Options) string {
	var b strings.Builder
	writeLines(&b, lines, newPalette(opts.Color), opts)
	return b.String()
}

func writeLines(b *strings.Builder, lines []report.Line, p palette, opts Options) {
	limit := opts.maxOutputLines()
	for _, l := range lines {
		fmt.Fprintln(b, lineText(l, p))
		if l.Output == "" || limit < 0 {
			continue
		}
		for _, out := range strings.Split(truncateLines(l.Output, limit), "\n") {
			fmt.Fprintf(b, "      %s\n", out)
		}
	}
}

func lineText(l report.Line, p palette) string {
	var label string
	switch l.Kind {
	case report.Error:
		label = p.err.Sprint("error")
	case report.TestFail:
		label = p.err.Sprint("FAIL")
	case report.Warning:
		label = p.warn.Sprint("warning")
	case report.Note:
		label = p.note.Sprint("note")
	default:
		label = string(l.Kind)
	}

	var where []string
	if l.Symbol != "" {
		sym := l.Symbol
		if l.Package != "" {
			sym = l.Package + "." + l.Symbol
		}
		where = append(where, sym)
	}
	if loc := l.Location(); loc != "" {
		where = append(where, loc)
	}

	msg := l.Message
	if l.Code != "" {
		msg = fmt.Sprintf("[%s] %s", l.Code, msg)
	}
	if len(where) == 0 {
		return fmt.Sprintf("%s: %s", label, msg)
	}
	return fmt.Sprintf("%s %s: %s", label, strings.Join(where, " "), msg)
}

func writeRaw(b *strings.Builder, lines []runner.Line, p palette) {
	for _, l := range lines {
		if l.Stream == runner.Stderr {
			fmt.Fprintf(b, "%s%s\n", p.dim.Sprint("! "), l.Content)
			continue
		}
		fmt.Fprintf(b, "  %s\n", l.Content)
	}
}

// Summary renders rec as a single line: job, result, exit status, and
// duration, followed by the run ID.
func Summary(rec *outcome.Record) string {
	var detail string
	switch rec.Kind {
	case outcome.KindReport:
		if rec.Report != nil {
			detail = rec.Report.Stats.String()
		}
	case outcome.KindFailure:
		if rec.Failure != nil {
			detail = fmt.Sprintf("command failed (code %d), %d raw lines", rec.Failure.ErrorCode, len(rec.Failure.Lines))
		}
	default:
		detail = "no result"
	}

	var notes []string
	switch {
	case rec.TimedOut:
		notes = append(notes, "timed out")
	case rec.Status != nil:
		notes = append(notes, rec.Status.String())
	}
	if rec.Truncated {
		notes = append(notes, "output truncated")
	}
	if rec.Duration > 0 {
		notes = append(notes, rec.Duration.Round(time.Millisecond).String())
	}

	s := fmt.Sprintf("%s: %s", rec.Job, detail)
	if len(notes) > 0 {
		s += " (" + strings.Join(notes, ", ") + ")"
	}
	if rec.RunID != "" {
		s += " run " + rec.RunID
	}
	return s
}

// truncateLines returns the first maxLines lines of s, noting how many
// were dropped.
func truncateLines(s string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-maxLines)
}
