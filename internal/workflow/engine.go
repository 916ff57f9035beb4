// Package workflow runs configured jobs and classifies their output. It is
// consumed by both the MCP server and the CLI commands.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/deixis/verdict/internal/config"
	"github.com/deixis/verdict/internal/outcome"
	"github.com/deixis/verdict/internal/runner"
	"github.com/deixis/verdict/internal/store"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, c runner.Command) (*runner.Result, error)
}

var (
	// ErrUnknownJob is returned when a job name is neither configured nor built in.
	ErrUnknownJob = errors.New("unknown job")
	// ErrJobBusy is returned when a job is asked to run while a previous
	// run of the same job is still in flight.
	ErrJobBusy = errors.New("job is already running")
)

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config    *config.Config
	Runner    CommandRunner // its workspace is RepoRoot
	Store     store.Store   // optional; records are not persisted when nil
	Workspace string        // cwd; commands run from here and ./... scopes to here
	RepoRoot  string        // module root, used for absolute-path resolution
	Logger    *zap.Logger

	// LookupTool resolves the argv prefix of a tool job. Defaults to
	// ResolveTool.
	LookupTool func(name string) []string

	slots sync.Map // job name -> *outcome.Slot
}

// Slot returns the outcome slot of the named job, creating it on first use.
func (e *Engine) Slot(job string) *outcome.Slot {
	s, _ := e.slots.LoadOrStore(job, &outcome.Slot{})
	return s.(*outcome.Slot)
}

// Last returns the latest outcome of job, or outcome.None if it has not
// completed a run in this process. The returned value must not be modified.
func (e *Engine) Last(job string) (outcome.Outcome, error) {
	if _, ok := e.Config.Job(job); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
	return e.Slot(job).Load(), nil
}

// ResolvePackages normalises package arguments so that tools work
// identically regardless of how packages are specified. It accepts
// three input styles:
//
//   - Go import paths (e.g. "example.com/foo/bar/..."): passed through.
//   - Absolute directory paths (e.g. "/home/user/proj/bar"): converted
//     to a "./…" pattern relative to the repo root.
//   - Relative patterns (e.g. "./bar/..."): passed through unchanged.
//
// When the list is empty it defaults to "./..." (all packages in the
// workspace), matching the behaviour of `go test ./...`.
func (e *Engine) ResolvePackages(packages []string) []string {
	if len(packages) == 0 {
		return []string{"./..."}
	}

	resolved := make([]string, 0, len(packages))
	for _, p := range packages {
		if !filepath.IsAbs(p) {
			resolved = append(resolved, p)
			continue
		}
		base := e.RepoRoot
		if base == "" {
			base = e.Workspace
		}
		rel, err := filepath.Rel(base, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			// Outside repo root: skip silently.
			continue
		}
		pattern := "./" + rel
		if !strings.HasSuffix(pattern, "...") {
			pattern += "/..."
		}
		resolved = append(resolved, pattern)
	}

	if len(resolved) == 0 {
		return []string{"./..."}
	}
	return resolved
}

// command builds the runner command for job.
func (e *Engine) command(name string, job config.Job, packages []string) (runner.Command, error) {
	if len(job.Command) == 0 {
		return runner.Command{}, fmt.Errorf("job %q has no command", name)
	}

	argv := append([]string(nil), job.Command...)
	if job.Tool {
		lookup := e.LookupTool
		if lookup == nil {
			lookup = ResolveTool
		}
		prefix := lookup(job.Command[0])
		if prefix == nil {
			return runner.Command{}, NewErrToolUnavailable(job.Command[0])
		}
		argv = append(append([]string(nil), prefix...), job.Command[1:]...)
	}
	if job.Packages {
		argv = append(argv, e.ResolvePackages(packages)...)
	}

	return runner.Command{Argv: argv, Cwd: e.jobDir(job), Env: job.Env}, nil
}

// jobDir returns the job's working directory relative to the repo root.
// Jobs without a configured cwd run in the workspace.
func (e *Engine) jobDir(job config.Job) string {
	if job.Cwd != "" {
		return job.Cwd
	}
	if e.RepoRoot == "" || e.Workspace == "" {
		return ""
	}
	rel, err := filepath.Rel(e.RepoRoot, e.Workspace)
	if err != nil || rel == "." {
		return ""
	}
	return rel
}

// ResolveTool returns the argv prefix for invoking a named tool.
// It checks "go tool <name>" first (Go 1.24+ tool directive in go.mod),
// then falls back to exec.LookPath on the system PATH.
// Returns nil if the tool is not available.
func ResolveTool(name string) []string {
	goPath, err := exec.LookPath("go")
	if err == nil {
		// Probe with -h; exit code 0 or 2 (flag help) both indicate the tool exists.
		cmd := exec.Command(goPath, "tool", name, "-h")
		if err := cmd.Run(); err == nil {
			return []string{goPath, "tool", name}
		} else if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() != 0 {
			return []string{goPath, "tool", name}
		}
	}

	if toolPath, err := exec.LookPath(name); err == nil {
		return []string{toolPath}
	}
	return nil
}

// toolInfo holds install metadata for a known tool.
type toolInfo struct {
	// ImportPath is the Go module path for go get -tool / go install.
	ImportPath string
	// AltInstall is an alternative install URL or instruction.
	AltInstall string
	// NoGoInstall is true if go get -tool / go install is not recommended.
	NoGoInstall bool
}

// knownTools maps tool binary names to their install metadata.
var knownTools = map[string]toolInfo{
	"staticcheck":   {ImportPath: "honnef.co/go/tools/cmd/staticcheck@latest"},
	"golangci-lint": {AltInstall: "https://golangci-lint.run/welcome/install/", NoGoInstall: true},
	"gofumpt":       {ImportPath: "mvdan.cc/gofumpt@latest"},
	"govulncheck":   {ImportPath: "golang.org/x/vuln/cmd/govulncheck@latest"},
	"deadcode":      {ImportPath: "golang.org/x/tools/cmd/deadcode@latest"},
}

// ErrToolUnavailable is returned when a tool job's binary is not installed.
// It includes actionable install instructions when the tool is known.
type ErrToolUnavailable struct {
	Name string
	Info *toolInfo
}

func NewErrToolUnavailable(name string) ErrToolUnavailable {
	e := ErrToolUnavailable{Name: name}
	if info, ok := knownTools[name]; ok {
		e.Info = &info
	}
	return e
}

func (e ErrToolUnavailable) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is required but not installed.", e.Name)

	if e.Info == nil {
		return b.String()
	}
	fmt.Fprintln(&b)

	switch {
	case e.Info.NoGoInstall && e.Info.AltInstall != "":
		fmt.Fprintf(&b, "\nInstall: %s", e.Info.AltInstall)
		fmt.Fprintf(&b, "\nNote: go get -tool and go install are not recommended for %s.", e.Name)
	case e.Info.ImportPath != "":
		importPath := strings.TrimSuffix(e.Info.ImportPath, "@latest")
		fmt.Fprintf(&b, "\nInstall:")
		fmt.Fprintf(&b, "\n  go get -tool %s   # adds to go.mod (recommended)", importPath)
		fmt.Fprintf(&b, "\n  go install %s     # installs globally", e.Info.ImportPath)
	}
	return b.String()
}
