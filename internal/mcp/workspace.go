package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/verdict/internal/runner"
)

type workspaceParams struct{}

// goModule is the subset of `go list -m -json` that the summary shows.
type goModule struct {
	Path      string `json:"Path"`
	Dir       string `json:"Dir"`
	GoVersion string `json:"GoVersion"`
}

func (h *handler) workspaceHandler(ctx context.Context, _ *mcp.CallToolRequest, _ workspaceParams) (*mcp.CallToolResult, any, error) {
	mod, err := h.goModule(ctx)
	if err != nil {
		return errorResult(err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Module: %s\n", mod.Path)
	if mod.GoVersion != "" {
		fmt.Fprintf(&b, "Go: %s\n", mod.GoVersion)
	}
	fmt.Fprintf(&b, "Root: %s\n", h.engine.RepoRoot)
	if h.engine.Workspace != h.engine.RepoRoot {
		fmt.Fprintf(&b, "Workspace: %s\n", h.engine.Workspace)
	}

	b.WriteString("\nJobs:\n")
	defaults := h.engine.Config.DefaultJobList()
	for _, name := range h.engine.Config.JobNames() {
		marker := " "
		if slices.Contains(defaults, name) {
			marker = "*"
		}
		fmt.Fprintf(&b, " %s %s (last: %s)\n", marker, name, h.engine.Slot(name).Load().Kind())
	}

	pkgs, err := h.goPackages(ctx)
	if err != nil {
		// Module info is still useful on its own.
		fmt.Fprintf(&b, "\nPackages: unavailable (%v)\n", err)
		return textResult(b.String())
	}
	fmt.Fprintf(&b, "\nPackages (%d):\n", len(pkgs))
	for _, pkg := range pkgs {
		fmt.Fprintf(&b, "  %s\n", pkg)
	}
	return textResult(b.String())
}

func (h *handler) goModule(ctx context.Context) (*goModule, error) {
	res, err := h.engine.Runner.Run(ctx, runner.Command{Argv: []string{"go", "list", "-m", "-json"}})
	if err != nil {
		return nil, fmt.Errorf("querying module info: %w", err)
	}
	if !res.Status.Success() {
		return nil, fmt.Errorf("go list -m -json %s:\n%s", res.Status, res.Stderr())
	}
	var mod goModule
	if err := json.Unmarshal([]byte(res.Stdout()), &mod); err != nil {
		return nil, fmt.Errorf("parsing module info: %w", err)
	}
	return &mod, nil
}

func (h *handler) goPackages(ctx context.Context) ([]string, error) {
	res, err := h.engine.Runner.Run(ctx, runner.Command{Argv: []string{"go", "list", "./..."}})
	if err != nil {
		return nil, err
	}
	if !res.Status.Success() {
		return nil, fmt.Errorf("go list %s", res.Status)
	}
	var pkgs []string
	for _, l := range res.Lines {
		if l.Stream != runner.Stdout {
			continue
		}
		if pkg := strings.TrimSpace(l.Content); pkg != "" {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs, nil
}
