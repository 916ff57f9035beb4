package outcome

import (
	"slices"
	"testing"

	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

func TestRecord_RoundTripVariants(t *testing.T) {
	rep := &Report{Report: report.New(report.Line{Kind: report.Error, Message: "x"})}
	fail := &Failure{ErrorCode: 134, Lines: stdout("panic: out of memory")}

	tests := []struct {
		name string
		in   Outcome
		kind Kind
	}{
		{"report", rep, KindReport},
		{"failure", fail, KindFailure},
		{"none", None{}, KindNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("run-1", "test", tt.in)
			if rec.Kind != tt.kind {
				t.Fatalf("Kind = %s, want %s", rec.Kind, tt.kind)
			}
			out, err := rec.Outcome()
			if err != nil {
				t.Fatalf("Outcome: %v", err)
			}
			if out.Kind() != tt.kind {
				t.Errorf("Outcome().Kind() = %s, want %s", out.Kind(), tt.kind)
			}
			if out.LinesLen() != tt.in.LinesLen() {
				t.Errorf("LinesLen() = %d, want %d", out.LinesLen(), tt.in.LinesLen())
			}
		})
	}
}

func TestRecord_OutcomeDoesNotAlias(t *testing.T) {
	lines := []runner.Line{runner.StdoutLine("a"), runner.StderrLine("b")}
	rec := NewRecord("run-1", "build", &Failure{ErrorCode: 2, Lines: slices.Clone(lines)})

	out, err := rec.Outcome()
	if err != nil {
		t.Fatal(err)
	}
	out.Reverse()
	if !slices.Equal(rec.Failure.Lines, lines) {
		t.Errorf("reversing the rebuilt outcome changed the record: %v", rec.Failure.Lines)
	}
}

func TestRecord_Corrupt(t *testing.T) {
	for _, rec := range []*Record{
		{RunID: "r", Kind: KindReport},
		{RunID: "r", Kind: KindFailure},
		{RunID: "r", Kind: "bogus"},
	} {
		if _, err := rec.Outcome(); err == nil {
			t.Errorf("Outcome() for %+v: expected error", rec)
		}
	}
}

func TestRecord_Failed(t *testing.T) {
	tests := []struct {
		name string
		o    Outcome
		want bool
	}{
		{"failure", &Failure{ErrorCode: 1}, true},
		{"report with errors", &Report{Report: report.New(report.Line{Kind: report.Error})}, true},
		{"report with warnings", &Report{Report: report.New(report.Line{Kind: report.Warning})}, false},
		{"none", None{}, false},
	}
	for _, tt := range tests {
		if got := NewRecord("r", "j", tt.o).Failed(); got != tt.want {
			t.Errorf("%s: Failed() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
