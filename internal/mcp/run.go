package mcp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/verdict/internal/outcome"
	"github.com/deixis/verdict/internal/render"
	"github.com/deixis/verdict/internal/workflow"
)

type runParams struct {
	Job      string   `json:"job" jsonschema:"name of the job to run, as listed by vd_jobs (e.g. test, build, vet, staticcheck, lint)"`
	Packages []string `json:"packages,omitempty" jsonschema:"Go import paths of packages (e.g. example.com/foo/bar/...) or absolute directory paths. Defaults to all packages in the workspace. Ignored by jobs that do not take packages."`
	Reverse  bool     `json:"reverse,omitempty" jsonschema:"list lines in reverse order, most relevant last"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.Job == "" {
		return errorResult("job is required")
	}

	r, err := h.engine.Run(ctx, params.Job, params.Packages)
	if err != nil {
		var unavail workflow.ErrToolUnavailable
		switch {
		case errors.As(err, &unavail):
			return errorResult(fmt.Sprintf("%v\n\nAction: install %s and re-run vd_run.", err, unavail.Name))
		case errors.Is(err, workflow.ErrUnknownJob):
			return errorResult(fmt.Sprintf("%v. Use vd_jobs to list available jobs.", err))
		}
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}
	if params.Reverse {
		r.Outcome.Reverse()
	}
	return textResult(formatRun(r))
}

func formatRun(r *workflow.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\n", r.Record.Job)
	fmt.Fprintf(&b, "Run: %s\n", r.Record.RunID)
	fmt.Fprintf(&b, "Exit: %s\n", exitText(r.Record))
	fmt.Fprintln(&b)
	b.WriteString(render.Text(r.Outcome, render.Options{}))

	if rep, ok := r.Outcome.(*outcome.Report); ok && len(rep.Report.Lines) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Inspect with vd_inspect(run_id=%q, filter=\"<package, package.Symbol, or file>\").\n", r.Record.RunID)
	}
	return b.String()
}

func exitText(rec *outcome.Record) string {
	var notes []string
	if rec.TimedOut {
		notes = append(notes, "timed out")
	} else {
		notes = append(notes, rec.Status.String())
	}
	if rec.Truncated {
		notes = append(notes, "output truncated")
	}
	return strings.Join(notes, ", ")
}

type jobsParams struct{}

func (h *handler) jobsHandler(ctx context.Context, req *mcp.CallToolRequest, _ jobsParams) (*mcp.CallToolResult, any, error) {
	cfg := h.engine.Config
	defaults := cfg.DefaultJobList()

	var b strings.Builder
	fmt.Fprintln(&b, "Jobs:")
	for _, name := range cfg.JobNames() {
		job, _ := cfg.Job(name)
		marker := ""
		if slices.Contains(defaults, name) {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "  %s%s: %s [analyzer: %s]", name, marker, strings.Join(job.Command, " "), job.Analyzer)
		if last := h.engine.Slot(name).Load(); last.Kind() != outcome.KindNone {
			fmt.Fprintf(&b, " last: %s", last.Kind())
		}
		fmt.Fprintln(&b)
	}
	return textResult(b.String())
}

type lastParams struct {
	Job string `json:"job" jsonschema:"name of the job"`
}

func (h *handler) lastHandler(ctx context.Context, req *mcp.CallToolRequest, params lastParams) (*mcp.CallToolResult, any, error) {
	if params.Job == "" {
		return errorResult("job is required")
	}
	o, err := h.engine.Last(params.Job)
	if err != nil {
		return errorResult(err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\n", params.Job)
	if h.engine.Slot(params.Job).Busy() {
		fmt.Fprintln(&b, "A run is in progress.")
	}
	fmt.Fprintln(&b)
	b.WriteString(render.Text(o, render.Options{}))
	return textResult(b.String())
}
