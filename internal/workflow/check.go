package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/verdict/internal/render"
)

// Step statuses reported by Check.
const (
	StatusPass        = "pass"
	StatusFail        = "fail"
	StatusError       = "error"
	StatusUnavailable = "unavailable"
)

// CheckResult holds the outcome of every job in a check.
type CheckResult struct {
	Steps []StepResult
}

// StepResult holds the outcome of a single job.
type StepResult struct {
	Job    string
	Status string // pass, fail, error, unavailable
	Detail string // error text when the job could not produce an outcome
	Run    *Run   // nil unless the job produced an outcome
}

// Check runs jobs concurrently (the configured default jobs when jobs is
// empty) and reports each one. Unlike RunAll it never returns a job error;
// errors become steps with status error or unavailable.
func (e *Engine) Check(ctx context.Context, jobs []string, packages []string) *CheckResult {
	if len(jobs) == 0 {
		jobs = e.Config.DefaultJobList()
	}
	jobs = unique(jobs)

	steps := make([]StepResult, len(jobs))
	e.each(ctx, jobs, packages, func(i int, r *Run, err error) {
		steps[i] = stepFor(jobs[i], r, err)
	})
	return &CheckResult{Steps: steps}
}

func stepFor(job string, r *Run, err error) StepResult {
	if err != nil {
		var unavail ErrToolUnavailable
		if errors.As(err, &unavail) {
			return StepResult{Job: job, Status: StatusUnavailable, Detail: err.Error()}
		}
		return StepResult{Job: job, Status: StatusError, Detail: err.Error()}
	}
	if r.Record.Failed() {
		return StepResult{Job: job, Status: StatusFail, Run: r}
	}
	return StepResult{Job: job, Status: StatusPass, Run: r}
}

// Failed reports whether any step did not pass.
func (c *CheckResult) Failed() bool {
	for _, s := range c.Steps {
		if s.Status != StatusPass {
			return true
		}
	}
	return false
}

func (c *CheckResult) String() string {
	var b strings.Builder
	if c.Failed() {
		fmt.Fprintln(&b, "Status: FAIL")
	} else {
		fmt.Fprintln(&b, "Status: PASS")
	}
	fmt.Fprintln(&b)

	for _, s := range c.Steps {
		switch {
		case s.Run != nil:
			fmt.Fprintf(&b, "[%s] %s\n", s.Status, render.Summary(s.Run.Record))
		default:
			fmt.Fprintf(&b, "[%s] %s: %s\n", s.Status, s.Job, firstLine(s.Detail))
		}
	}
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
