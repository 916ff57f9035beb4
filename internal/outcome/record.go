package outcome

import (
	"fmt"
	"slices"
	"time"

	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

// Record is the persisted form of a classified run. Exactly one of Report
// and Failure is set, according to Kind.
type Record struct {
	RunID     string             `json:"run_id" msgpack:"run_id"`
	Job       string             `json:"job" msgpack:"job"`
	Command   []string           `json:"command" msgpack:"command"`
	Kind      Kind               `json:"kind" msgpack:"kind"`
	Status    *runner.ExitStatus `json:"status,omitempty" msgpack:"status,omitempty"`
	TimedOut  bool               `json:"timed_out,omitempty" msgpack:"timed_out,omitempty"`
	Truncated bool               `json:"truncated,omitempty" msgpack:"truncated,omitempty"`
	StartedAt time.Time          `json:"started_at" msgpack:"started_at"`
	Duration  time.Duration      `json:"duration" msgpack:"duration"`

	Report  *report.Report `json:"report,omitempty" msgpack:"report,omitempty"`
	Failure *Failure       `json:"failure,omitempty" msgpack:"failure,omitempty"`
}

// NewRecord wraps o in a Record for run runID of job.
func NewRecord(runID, job string, o Outcome) *Record {
	rec := &Record{RunID: runID, Job: job, Kind: KindNone}
	switch o := o.(type) {
	case *Report:
		rec.Kind = KindReport
		rec.Report = o.Report
	case *Failure:
		rec.Kind = KindFailure
		rec.Failure = o
	}
	return rec
}

// Outcome rebuilds the outcome held by the record. The returned value does
// not share line slices with the record, so it can be reversed freely.
func (r *Record) Outcome() (Outcome, error) {
	switch r.Kind {
	case KindReport:
		if r.Report == nil {
			return nil, fmt.Errorf("run %s: report record has no report", r.RunID)
		}
		return &Report{Report: &report.Report{
			Lines: slices.Clone(r.Report.Lines),
			Stats: r.Report.Stats,
		}}, nil
	case KindFailure:
		if r.Failure == nil {
			return nil, fmt.Errorf("run %s: failure record has no failure", r.RunID)
		}
		return &Failure{
			ErrorCode: r.Failure.ErrorCode,
			Lines:     slices.Clone(r.Failure.Lines),
		}, nil
	case KindNone, "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("run %s: unknown outcome kind %q", r.RunID, r.Kind)
	}
}

// Failed reports whether the run should be surfaced as failing: either an
// untrusted report, or a trusted report that found errors.
func (r *Record) Failed() bool {
	switch r.Kind {
	case KindFailure:
		return true
	case KindReport:
		return r.Report != nil && r.Report.HasErrors()
	}
	return false
}
