package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/verdict/internal/outcome"
	"github.com/deixis/verdict/internal/render"
	"github.com/deixis/verdict/internal/store"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a vd_run result"`
	Filter string `json:"filter,omitempty" jsonschema:"import path for package scope (e.g. example.com/foo), importpath.Symbol for a specific test (e.g. example.com/foo.TestAdd), or a file name (e.g. calc.go). Empty returns the whole run."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errorResult(fmt.Sprintf("Run %s not found. Run IDs are only kept for the lifetime of the server.", params.RunID))
		}
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}
	o, err := rec.Outcome()
	if err != nil {
		return errorResult(err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s, %s)\n", rec.RunID, rec.Job, rec.Kind)

	rep, ok := o.(*outcome.Report)
	if !ok || params.Filter == "" {
		fmt.Fprintln(&b)
		b.WriteString(render.Text(o, render.Options{}))
		return textResult(b.String())
	}

	lines := rep.Report.Filter(params.Filter)
	if len(lines) == 0 {
		return textResult(fmt.Sprintf("No diagnostics found for %s in run %s (%s).", params.Filter, rec.RunID, rec.Job))
	}
	fmt.Fprintf(&b, "%s: %d lines\n", params.Filter, len(lines))
	fmt.Fprintln(&b)
	b.WriteString(render.Lines(lines, render.Options{MaxOutputLines: -1}))

	// Full output of failed tests, untruncated.
	for _, l := range lines {
		if l.Output == "" {
			continue
		}
		name := l.Symbol
		if name == "" {
			name = l.Package
		}
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Output of %s:\n", name)
		for _, line := range strings.Split(strings.TrimRight(l.Output, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	return textResult(b.String())
}
