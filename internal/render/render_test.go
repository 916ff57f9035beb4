package render

import (
	"strings"
	"testing"
	"time"

	"github.com/deixis/verdict/internal/outcome"
	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

func TestText_CleanReport(t *testing.T) {
	got := Text(&outcome.Report{Report: report.New()}, Options{})
	if got != "Status: OK\n" {
		t.Errorf("Text() = %q, want %q", got, "Status: OK\n")
	}
}

func TestText_ReportWithDiagnostics(t *testing.T) {
	r := report.New(
		report.Line{Kind: report.Error, Source: "gobuild", Package: "example.com/calc", File: "calc.go", Line: 7, Col: 2, Message: "undefined: sum"},
		report.Line{Kind: report.TestFail, Source: "gotest", Package: "example.com/calc", Symbol: "TestAdd", File: "calc_test.go", Line: 12, Message: "got 3, want 4", Output: "=== RUN   TestAdd\n    calc_test.go:12: got 3, want 4\n--- FAIL: TestAdd (0.00s)\n"},
		report.Line{Kind: report.Warning, Source: "staticcheck", File: "util.go", Line: 3, Code: "SA4006", Message: "value never used"},
	)
	got := Text(&outcome.Report{Report: r}, Options{})

	for _, want := range []string{
		"Status: 2 errors, 1 warning, 1 test failure\n",
		"error calc.go:7:2: undefined: sum\n",
		"FAIL example.com/calc.TestAdd calc_test.go:12: got 3, want 4\n",
		"      calc_test.go:12: got 3, want 4\n",
		"warning util.go:3: [SA4006] value never used\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Text() missing %q\ngot:\n%s", want, got)
		}
	}
}

func TestText_WarningsOnly(t *testing.T) {
	r := report.New(report.Line{Kind: report.Warning, Message: "unused"})
	got := Text(&outcome.Report{Report: r}, Options{})
	if !strings.HasPrefix(got, "Status: 0 errors, 1 warning\n") {
		t.Errorf("Text() = %q", got)
	}
	if !strings.Contains(got, "warning: unused\n") {
		t.Errorf("Text() = %q, want bare warning line", got)
	}
}

func TestText_Failure(t *testing.T) {
	f := &outcome.Failure{ErrorCode: 134, Lines: []runner.Line{
		runner.StdoutLine("starting"),
		runner.StderrLine("panic: out of memory"),
	}}
	got := Text(f, Options{})
	want := "command failed (code 134), showing raw output\n\n  starting\n! panic: out of memory\n"
	if got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestText_None(t *testing.T) {
	if got := Text(outcome.None{}, Options{}); got != "no result yet\n" {
		t.Errorf("Text(None) = %q", got)
	}
}

func TestText_Color(t *testing.T) {
	f := &outcome.Failure{ErrorCode: 1, Lines: []runner.Line{runner.StdoutLine("x")}}
	plain := Text(f, Options{})
	colored := Text(f, Options{Color: true})
	if strings.Contains(plain, "\x1b[") {
		t.Errorf("plain output contains escape codes: %q", plain)
	}
	if !strings.Contains(colored, "\x1b[") {
		t.Errorf("colored output has no escape codes: %q", colored)
	}
}

func TestText_OutputTruncated(t *testing.T) {
	var out strings.Builder
	for range 30 {
		out.WriteString("line\n")
	}
	r := report.New(report.Line{Kind: report.TestFail, Symbol: "TestBig", Message: "boom", Output: out.String()})

	got := Text(&outcome.Report{Report: r}, Options{MaxOutputLines: 5})
	if !strings.Contains(got, "... (25 more lines)") {
		t.Errorf("Text() missing truncation marker:\n%s", got)
	}

	hidden := Text(&outcome.Report{Report: r}, Options{MaxOutputLines: -1})
	if strings.Contains(hidden, "      line") {
		t.Errorf("Text() with negative MaxOutputLines shows output:\n%s", hidden)
	}
}

func TestLines(t *testing.T) {
	got := Lines([]report.Line{{Kind: report.Note, Message: "see docs"}}, Options{})
	if got != "note: see docs\n" {
		t.Errorf("Lines() = %q", got)
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		rec  *outcome.Record
		want string
	}{
		{
			name: "report",
			rec: &outcome.Record{
				RunID: "r1", Job: "test", Kind: outcome.KindReport,
				Report:   report.New(report.Line{Kind: report.Error}),
				Status:   runner.Exited(1),
				Duration: 1500 * time.Millisecond,
			},
			want: "test: 1 error, 0 warnings (exit code 1, 1.5s) run r1",
		},
		{
			name: "failure",
			rec: &outcome.Record{
				RunID: "r2", Job: "build", Kind: outcome.KindFailure,
				Failure: &outcome.Failure{ErrorCode: 2, Lines: make([]runner.Line, 3)},
				Status:  runner.Exited(2),
			},
			want: "build: command failed (code 2), 3 raw lines (exit code 2) run r2",
		},
		{
			name: "timed out",
			rec: &outcome.Record{
				Job: "lint", Kind: outcome.KindReport, Report: report.New(),
				TimedOut: true, Truncated: true,
			},
			want: "lint: 0 errors, 0 warnings (timed out, output truncated)",
		},
		{
			name: "signal",
			rec: &outcome.Record{
				Job: "vet", Kind: outcome.KindReport, Report: report.New(),
				Status: runner.Signaled("killed"),
			},
			want: "vet: 0 errors, 0 warnings (signal: killed)",
		},
		{
			name: "none",
			rec:  &outcome.Record{Job: "test"},
			want: "test: no result",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.rec); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateLines(t *testing.T) {
	if got := truncateLines("a\nb\n", 5); got != "a\nb" {
		t.Errorf("truncateLines() = %q", got)
	}
	if got := truncateLines("a\nb\nc", 2); got != "a\nb\n... (1 more lines)" {
		t.Errorf("truncateLines() = %q", got)
	}
}
