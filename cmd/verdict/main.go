// Command verdict runs project commands and reports whether their output
// can be trusted as a list of diagnostics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deixis/verdict"
	"github.com/deixis/verdict/internal/config"
	"github.com/deixis/verdict/internal/log"
	"github.com/deixis/verdict/internal/render"
	"github.com/deixis/verdict/internal/runner"
	"github.com/deixis/verdict/internal/store"
	"github.com/deixis/verdict/internal/workflow"
)

// errFailed signals that a job ran and failed; the process exits with
// status 1 without printing anything further.
var errFailed = errors.New("failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errFailed):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "verdict: %v\n", err)
		os.Exit(2)
	}
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	dir     string
	verbose bool
	noColor bool
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "verdict",
		Short:         "Run project commands and classify their output",
		Long:          "verdict runs jobs such as go test or golangci-lint and reports their diagnostics,\nor their raw output when the command failed without explaining why.",
		Version:       verdict.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&g.dir, "dir", "C", "", "run as if started in this directory")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRunCmd(g),
		newCheckCmd(g),
		newInspectCmd(g),
		newJobsCmd(g),
		newMCPCmd(g),
		newVersionCmd(g),
	)
	return root
}

// env is everything a command needs to run jobs.
type env struct {
	loaded *config.LoadResult
	engine *workflow.Engine
	runner *runner.Runner
	store  *store.DiskStore
	logger *zap.Logger
}

func (g *globalOptions) workspace() (string, error) {
	if g.dir != "" {
		return filepath.Abs(g.dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determining workspace: %w", err)
	}
	return wd, nil
}

func (g *globalOptions) renderOptions() render.Options {
	return render.Options{Color: !g.noColor && !color.NoColor}
}

// newEnv loads the configuration and wires the engine. A positive
// timeoutOverride replaces the configured timeout.
func (g *globalOptions) newEnv(timeoutOverride time.Duration) (*env, error) {
	workspace, err := g.workspace()
	if err != nil {
		return nil, err
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	level := cfg.Level()
	if g.verbose {
		level = "debug"
	}
	logger, err := log.New(level, g.stderr)
	if err != nil {
		return nil, err
	}

	dir := cfg.StoreDir
	if dir == "" {
		if dir, err = store.CacheDir("verdict"); err != nil {
			return nil, fmt.Errorf("locating run store: %w", err)
		}
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(loaded.RepoRoot, dir)
	}
	st := store.NewDiskStore(dir)

	timeout := cfg.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}
	r := &runner.Runner{
		Workspace: loaded.RepoRoot,
		Timeout:   timeout,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	return &env{
		loaded: loaded,
		runner: r,
		store:  st,
		logger: logger,
		engine: &workflow.Engine{
			Config:    cfg,
			Runner:    r,
			Store:     st,
			Workspace: workspace,
			RepoRoot:  loaded.RepoRoot,
			Logger:    logger,
		},
	}, nil
}
