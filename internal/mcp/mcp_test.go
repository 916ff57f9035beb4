package mcp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/verdict/internal/config"
	"github.com/deixis/verdict/internal/runner"
	"github.com/deixis/verdict/internal/store"
)

// shellJobs are jobs that only need sh, so the tests do not depend on the
// Go toolchain or linters being installed.
var shellJobs = map[string]config.Job{
	"clean": {
		Command:  []string{"sh", "-c", "echo compiling; echo 'warning: unused variable x'"},
		Analyzer: "generic",
	},
	"broken": {
		Command:  []string{"sh", "-c", "echo '# example.com/calc'; echo './calc.go:3:5: undefined: sum'; echo './util.go:9:1: missing return'; exit 1"},
		Analyzer: "gobuild",
	},
	"crash": {
		Command:  []string{"sh", "-c", "echo starting; echo 'fatal error: out of memory' >&2; exit 3"},
		Analyzer: "generic",
	},
}

// setup creates a full verdict MCP server + client over in-memory transports.
func setup(t *testing.T, workspaceDir string, cfgOverride *config.Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	cfg := cfgOverride
	if cfg == nil {
		cfg = &config.Config{Jobs: shellJobs}
	}

	st := store.NewLRUStore(5, store.NewDiskStore(t.TempDir()))
	r := &runner.Runner{
		Workspace: workspaceDir,
		Timeout:   30 * time.Second,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	server := NewServer(cfg, r, st, workspaceDir)

	ct, sst := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, sst, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// runID extracts the ID from the "Run: <id>" line of a vd_run result.
func runID(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if id, ok := strings.CutPrefix(line, "Run: "); ok {
			return id
		}
	}
	t.Fatalf("no Run ID found in output:\n%s", text)
	return ""
}

// --- vd_jobs ---

func TestVdJobs(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	text := resultText(callTool(t, cs, "vd_jobs", nil))
	for _, want := range []string{
		"broken: sh -c",
		"[analyzer: gobuild]",
		"test (default): go test -json [analyzer: gotest]",
		"staticcheck: staticcheck -f json",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

// --- vd_run ---

func TestVdRun_Report(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "vd_run", map[string]any{"job": "clean"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{"Job: clean", "Run: ", "Exit: exit code 0", "Status: 0 errors, 1 warning", "warning: unused variable x"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestVdRun_ErrorsCorroborateExit(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	text := resultText(callTool(t, cs, "vd_run", map[string]any{"job": "broken"}))
	for _, want := range []string{
		"Exit: exit code 1",
		"Status: 2 errors, 0 warnings",
		"error calc.go:3:5: undefined: sum",
		"vd_inspect",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestVdRun_Reverse(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	text := resultText(callTool(t, cs, "vd_run", map[string]any{"job": "broken", "reverse": true}))
	calc := strings.Index(text, "calc.go:3:5")
	util := strings.Index(text, "util.go:9:1")
	if calc < 0 || util < 0 || util > calc {
		t.Errorf("expected util.go before calc.go when reversed, got:\n%s", text)
	}
}

func TestVdRun_FailureShowsRawOutput(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	text := resultText(callTool(t, cs, "vd_run", map[string]any{"job": "crash"}))
	for _, want := range []string{
		"command failed (code 3), showing raw output",
		"  starting\n",
		"! fatal error: out of memory\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "vd_inspect(") {
		t.Errorf("raw output should not suggest drill-down, got:\n%s", text)
	}
}

func TestVdRun_UnknownJob(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "vd_run", map[string]any{"job": "deploy"})
	if !res.IsError {
		t.Fatal("expected IsError for unknown job")
	}
	if !strings.Contains(resultText(res), "vd_jobs") {
		t.Errorf("expected vd_jobs hint, got:\n%s", resultText(res))
	}
}

func TestVdRun_MissingJob(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "vd_run",
		Arguments: map[string]any{},
	})
	if err == nil {
		t.Error("expected error for missing job")
	}
}

func TestVdRun_AnalyzerError(t *testing.T) {
	cfg := &config.Config{Jobs: map[string]config.Job{
		"garbled": {Command: []string{"sh", "-c", "echo '{not json'"}, Analyzer: "gotest"},
	}}
	cs := setup(t, t.TempDir(), cfg)
	res := callTool(t, cs, "vd_run", map[string]any{"job": "garbled"})
	if !res.IsError {
		t.Fatalf("expected IsError for unparseable output, got:\n%s", resultText(res))
	}
	if !strings.Contains(resultText(res), "building report") {
		t.Errorf("expected parse error, got:\n%s", resultText(res))
	}
}

// --- vd_last ---

func TestVdLast(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)

	before := resultText(callTool(t, cs, "vd_last", map[string]any{"job": "crash"}))
	if !strings.Contains(before, "no result yet") {
		t.Errorf("expected no result before first run, got:\n%s", before)
	}

	callTool(t, cs, "vd_run", map[string]any{"job": "crash"})
	after := resultText(callTool(t, cs, "vd_last", map[string]any{"job": "crash"}))
	if !strings.Contains(after, "command failed (code 3)") {
		t.Errorf("expected latest failure, got:\n%s", after)
	}

	jobs := resultText(callTool(t, cs, "vd_jobs", nil))
	if !strings.Contains(jobs, "last: failure") {
		t.Errorf("expected vd_jobs to show the latest result, got:\n%s", jobs)
	}
}

func TestVdLast_UnknownJob(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "vd_last", map[string]any{"job": "deploy"})
	if !res.IsError {
		t.Error("expected IsError for unknown job")
	}
}

// --- vd_inspect ---

func TestVdInspect_MissingRunID(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "vd_inspect",
		Arguments: map[string]any{"filter": "example.com/calc"},
	})
	if err == nil {
		t.Error("expected error for missing run_id")
	}
}

func TestVdInspect_InvalidRunID(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "vd_inspect", map[string]any{
		"run_id": "nonexistent-id",
		"filter": "example.com/foo",
	})
	if !res.IsError {
		t.Error("expected IsError for invalid run_id")
	}
}

func TestVdInspect_UnknownRunID(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	res := callTool(t, cs, "vd_inspect", map[string]any{"run_id": "0b7a3c1e-6f2d-4a8e-9c55-1d2e3f4a5b6c"})
	if !res.IsError || !strings.Contains(resultText(res), "not found") {
		t.Errorf("expected not found error, got:\n%s", resultText(res))
	}
}

func TestVdInspect_Filters(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	id := runID(t, resultText(callTool(t, cs, "vd_run", map[string]any{"job": "broken"})))

	tests := []struct {
		filter string
		want   []string
		absent []string
	}{
		{filter: "", want: []string{"Status: 2 errors", "calc.go:3:5", "util.go:9:1"}},
		{filter: "util.go", want: []string{"util.go: 1 lines", "missing return"}, absent: []string{"calc.go"}},
		{filter: "example.com/calc", want: []string{"example.com/calc: 2 lines"}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			res := callTool(t, cs, "vd_inspect", map[string]any{"run_id": id, "filter": tt.filter})
			text := resultText(res)
			if res.IsError {
				t.Fatalf("unexpected error: %s", text)
			}
			if !strings.Contains(text, "Run: "+id+" (broken, report)") {
				t.Errorf("expected run header, got:\n%s", text)
			}
			for _, want := range tt.want {
				if !strings.Contains(text, want) {
					t.Errorf("expected %q, got:\n%s", want, text)
				}
			}
			for _, absent := range tt.absent {
				if strings.Contains(text, absent) {
					t.Errorf("unexpected %q, got:\n%s", absent, text)
				}
			}
		})
	}
}

func TestVdInspect_NoMatch(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	id := runID(t, resultText(callTool(t, cs, "vd_run", map[string]any{"job": "broken"})))
	text := resultText(callTool(t, cs, "vd_inspect", map[string]any{"run_id": id, "filter": "other.go"}))
	if !strings.Contains(text, "No diagnostics found for other.go") {
		t.Errorf("expected no diagnostics, got:\n%s", text)
	}
}

func TestVdInspect_FailureReturnsRawOutput(t *testing.T) {
	cs := setup(t, t.TempDir(), nil)
	id := runID(t, resultText(callTool(t, cs, "vd_run", map[string]any{"job": "crash"})))
	text := resultText(callTool(t, cs, "vd_inspect", map[string]any{"run_id": id, "filter": "anything"}))
	if !strings.Contains(text, "! fatal error: out of memory") {
		t.Errorf("expected raw output, got:\n%s", text)
	}
}

// --- vd_workspace ---

func TestVdWorkspace(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go not available")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/calc\n\ngo 1.22\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "calc.go"), []byte("package calc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cs := setup(t, dir, nil)
	res := callTool(t, cs, "vd_workspace", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Module: example.com/calc") {
		t.Errorf("expected module path, got:\n%s", text)
	}
	if !strings.Contains(text, "Packages (1):") {
		t.Errorf("expected one package, got:\n%s", text)
	}
	if !strings.Contains(text, "clean (last: none)") {
		t.Errorf("expected job listing, got:\n%s", text)
	}
}
