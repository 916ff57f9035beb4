package runner

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Stream identifies which pipe a line was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Line is one line of captured process output, without its trailing newline.
type Line struct {
	Stream  Stream `json:"stream" msgpack:"stream"`
	Content string `json:"content" msgpack:"content"`
}

// StdoutLine and StderrLine build a Line for the given stream.
func StdoutLine(content string) Line { return Line{Stream: Stdout, Content: content} }
func StderrLine(content string) Line { return Line{Stream: Stderr, Content: content} }

// ExitStatus is the terminal status of a process. A process killed by a
// signal has no exit code; HasCode is false and Signal names the signal.
type ExitStatus struct {
	Code    int    `json:"code" msgpack:"code"`
	HasCode bool   `json:"has_code" msgpack:"has_code"`
	Signal  string `json:"signal,omitempty" msgpack:"signal,omitempty"`
}

// Exited returns the status of a process that returned code.
func Exited(code int) *ExitStatus {
	return &ExitStatus{Code: code, HasCode: true}
}

// Signaled returns the status of a process terminated by a signal.
func Signaled(signal string) *ExitStatus {
	return &ExitStatus{Signal: signal}
}

// ExitCode returns the exit code and whether one is available.
// It is safe to call on a nil status.
func (s *ExitStatus) ExitCode() (int, bool) {
	if s == nil || !s.HasCode {
		return 0, false
	}
	return s.Code, true
}

// Success reports whether the process exited with code 0.
func (s *ExitStatus) Success() bool {
	code, ok := s.ExitCode()
	return ok && code == 0
}

func (s *ExitStatus) String() string {
	switch {
	case s == nil:
		return "unknown"
	case s.HasCode:
		return fmt.Sprintf("exit code %d", s.Code)
	case s.Signal != "":
		return "signal: " + s.Signal
	default:
		return "no exit code"
	}
}

// statusFromProcessState converts an os.ProcessState into an ExitStatus.
func statusFromProcessState(ps *os.ProcessState) *ExitStatus {
	if ps == nil {
		return nil
	}
	if code := ps.ExitCode(); code >= 0 {
		return Exited(code)
	}
	// ProcessState.String reports "signal: killed" and similar.
	return Signaled(strings.TrimPrefix(ps.String(), "signal: "))
}

// Result holds the output of a command execution.
type Result struct {
	RunID     string        // unique identifier for this run
	Lines     []Line        // captured output in arrival order (may be truncated)
	Status    *ExitStatus   // nil when the process was not awaited to completion
	TimedOut  bool          // true if the runner's timeout killed the process
	Truncated bool          // true if output exceeded the size cap
	Duration  time.Duration // wall time from start to exit
}

// Stdout returns the stdout lines joined with newlines.
func (r *Result) Stdout() string { return r.text(Stdout) }

// Stderr returns the stderr lines joined with newlines.
func (r *Result) Stderr() string { return r.text(Stderr) }

func (r *Result) text(stream Stream) string {
	var b strings.Builder
	for _, l := range r.Lines {
		if l.Stream != stream {
			continue
		}
		b.WriteString(l.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
