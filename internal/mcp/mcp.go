// Package mcp provides the verdict MCP server, registering all tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/deixis/verdict"
	"github.com/deixis/verdict/internal/config"
	"github.com/deixis/verdict/internal/log"
	"github.com/deixis/verdict/internal/runner"
	"github.com/deixis/verdict/internal/store"
	"github.com/deixis/verdict/internal/workflow"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	engine *workflow.Engine
	runner *runner.Runner // retained for updateWorkspaceFromRoots
	store  store.Store
	logger *zap.Logger
}

// ServerOption configures the verdict MCP server.
type ServerOption func(*handler)

// WithLogger sets the logger used by the server and its engine.
func WithLogger(l *zap.Logger) ServerOption {
	return func(h *handler) {
		h.logger = l
	}
}

// WithRepoRoot sets the module root when it differs from the workspace.
func WithRepoRoot(root string) ServerOption {
	return func(h *handler) {
		h.engine.RepoRoot = root
	}
}

// NewServer creates an MCP server with all verdict tools registered.
// r.Workspace is expected to be the repository root.
func NewServer(cfg *config.Config, r *runner.Runner, st store.Store, workspace string, opts ...ServerOption) *mcp.Server {
	h := &handler{
		engine: &workflow.Engine{
			Config:    cfg,
			Runner:    r,
			Store:     st,
			Workspace: workspace,
			RepoRoot:  workspace, // MCP defaults to workspace; updated via roots
		},
		runner: r,
		store:  st,
	}
	for _, o := range opts {
		o(h)
	}
	h.logger = log.Or(h.logger)
	h.engine.Logger = h.logger

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "verdict", Version: verdict.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vd_jobs",
		Description: "List the jobs that can be run, with their analyzer, command, and latest result.",
	}, h.jobsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "vd_run",
		Description: `Run a job (e.g. test, build, vet, staticcheck, lint) and return its classified result.

The result is either a structured report of diagnostics, or, when the command failed without
any diagnostic explaining why, its raw output. Results are stored for drill-down via vd_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "vd_inspect",
		Description: `Drill into a stored run from vd_run.

Use the run_id from the vd_run output. filter may be an import path (e.g. example.com/foo) for
all diagnostics in a package, importpath.Symbol (e.g. example.com/foo.TestAdd) for a specific
test, or a file name (e.g. calc.go). Runs that failed without diagnostics return their raw output.`,
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vd_last",
		Description: "Return the latest result of a job in this session without running it again.",
	}, h.lastHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vd_workspace",
		Description: "Summarise the Go workspace: module path, Go version, and package list.",
	}, h.workspaceHandler)

	return s
}

// updateWorkspaceFromRoots queries the client for MCP roots and updates the
// handler's engine, runner, and config if a valid root is returned.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		h.logger.Warn("ignoring client root", zap.String("root", workspace), zap.Error(err))
		return
	}

	h.runner.Workspace = loaded.RepoRoot
	h.runner.Timeout = loaded.Config.Timeout()
	h.runner.MaxOutput = loaded.Config.MaxOutputBytes()

	h.engine.Config = loaded.Config
	h.engine.Workspace = workspace
	h.engine.RepoRoot = loaded.RepoRoot
	h.logger.Info("workspace updated from client root", zap.String("workspace", workspace), zap.String("repo_root", loaded.RepoRoot))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
