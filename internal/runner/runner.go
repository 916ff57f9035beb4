// Package runner provides safe command execution with workspace bounds,
// timeouts, and output size limits. Output is captured line by line with
// its stream of origin, in the order lines arrive.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Command describes a process to run.
type Command struct {
	Argv []string // binary name (resolved via PATH) followed by arguments
	Cwd  string   // relative to the workspace root; empty means the root
	Env  []string // extra KEY=VALUE entries appended to the environment
}

// Runner executes commands safely within a workspace boundary.
type Runner struct {
	Workspace string
	Timeout   time.Duration
	MaxOutput int // bytes
}

// Run executes c. Cwd is resolved relative to the workspace root and must
// remain within it.
//
// When the runner's own timeout kills the process, Run returns a Result
// with a nil Status and TimedOut set. When ctx itself is cancelled, Run
// returns ctx's error.
func (r *Runner) Run(ctx context.Context, c Command) (*Result, error) {
	if len(c.Argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	dir, err := r.resolveDir(c.Cwd)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()

	cmd := exec.CommandContext(runCtx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	// Grandchildren may hold the pipes open after a kill.
	cmd.WaitDelay = 2 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		// Binary not found or other exec error.
		return nil, fmt.Errorf("executing %s: %w", c.Argv[0], err)
	}

	col := &collector{limit: r.MaxOutput}
	var g errgroup.Group
	g.Go(func() error { return col.read(stdout, Stdout) })
	g.Go(func() error { return col.read(stderr, Stderr) })
	readErr := g.Wait()

	runErr := cmd.Wait()
	duration := time.Since(start)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("running %s: %w", c.Argv[0], ctx.Err())
	}

	res := &Result{
		RunID:     runID,
		Lines:     col.lines,
		Truncated: col.truncated,
		Duration:  duration,
	}

	if runCtx.Err() != nil {
		res.TimedOut = true
		return res, nil
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading output of %s: %w", c.Argv[0], readErr)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("executing %s: %w", c.Argv[0], runErr)
		}
		res.Status = statusFromProcessState(exitErr.ProcessState)
		return res, nil
	}
	res.Status = statusFromProcessState(cmd.ProcessState)
	return res, nil
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Workspace, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Workspace, cwd))
	}

	// Ensure dir is within workspace.
	rel, err := filepath.Rel(r.Workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("cwd %q is outside workspace %q", cwd, r.Workspace)
	}
	return dir, nil
}

// collector accumulates lines from both pipes in arrival order, keeping at
// most limit bytes of content across both streams. A line is read in
// bufio-sized chunks, so memory stays bounded by the limit even when the
// child writes a single line without a newline. Output past the limit is
// read and dropped so the child never blocks on a full pipe.
type collector struct {
	mu        sync.Mutex
	limit     int
	size      int
	lines     []Line
	truncated bool
}

func (c *collector) read(rd io.Reader, stream Stream) error {
	br := bufio.NewReader(rd)
	var (
		line    []byte
		partial bool // part of the current line was dropped
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}
		if len(chunk) > 0 && !partial {
			n := c.reserve(len(chunk))
			line = append(line, chunk[:n]...)
			partial = n < len(chunk)
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err == nil || len(line) > 0 {
			c.add(stream, line)
		}
		line, partial = line[:0], false
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// reserve claims up to n bytes of the output budget and returns how many
// were granted. Running out of budget marks the output truncated.
func (c *collector) reserve(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit <= 0 {
		return n
	}
	room := max(c.limit-c.size, 0)
	if n > room {
		n = room
		c.truncated = true
	}
	c.size += n
	return n
}

// add records a completed line. Once the budget has run out, lines with
// nothing kept are dropped entirely.
func (c *collector) add(stream Stream, content []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.truncated && len(content) == 0 {
		return
	}
	c.lines = append(c.lines, Line{Stream: stream, Content: strings.TrimRight(string(content), "\r")})
}
