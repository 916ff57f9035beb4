package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deixis/verdict/internal/analyzer"
	"github.com/deixis/verdict/internal/log"
	"github.com/deixis/verdict/internal/outcome"
)

// Run is one completed, classified job run.
type Run struct {
	Record *outcome.Record
	// Outcome is owned by the caller and may be reversed freely.
	Outcome outcome.Outcome
}

// Run executes the named job over packages, classifies its output, stores
// the record and publishes the outcome to the job's slot.
//
// A runner error, a tool that is not installed, an analyzer that could
// not build a report or a record that could not be saved are returned as
// errors; the slot keeps its previous outcome in that case, so every
// published outcome has a stored record.
func (e *Engine) Run(ctx context.Context, name string, packages []string) (*Run, error) {
	job, ok := e.Config.Job(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	b, err := analyzer.Lookup(job.Analyzer)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", name, err)
	}
	cmd, err := e.command(name, job, packages)
	if err != nil {
		return nil, err
	}

	slot := e.Slot(name)
	if !slot.Begin() {
		return nil, fmt.Errorf("%w: %q", ErrJobBusy, name)
	}
	defer slot.End()

	logger := log.Or(e.Logger).With(zap.String("job", name))
	logger.Debug("job started", zap.Strings("argv", cmd.Argv), zap.String("cwd", cmd.Cwd))

	started := time.Now()
	res, err := e.Runner.Run(ctx, cmd)
	if err != nil {
		logger.Warn("job did not run", zap.Error(err))
		return nil, fmt.Errorf("running job %q: %w", name, err)
	}

	o, err := outcome.Classify(res.Lines, res.Status, b)
	if err != nil {
		logger.Warn("job output could not be analyzed", zap.String("run_id", res.RunID), zap.Error(err))
		return nil, fmt.Errorf("job %q (run %s): %w", name, res.RunID, err)
	}

	rec := outcome.NewRecord(res.RunID, name, o)
	rec.Command = cmd.Argv
	rec.Status = res.Status
	rec.TimedOut = res.TimedOut
	rec.Truncated = res.Truncated
	rec.StartedAt = started
	rec.Duration = res.Duration

	// The slot and the caller each get their own copy so that neither can
	// disturb the stored record.
	published, err := rec.Outcome()
	if err != nil {
		return nil, err
	}
	owned, err := rec.Outcome()
	if err != nil {
		return nil, err
	}
	if e.Store != nil {
		if err := e.Store.Save(rec); err != nil {
			logger.Warn("saving run failed", zap.String("run_id", rec.RunID), zap.Error(err))
			return nil, fmt.Errorf("job %q: %w", name, err)
		}
	}
	slot.Store(published)

	logger.Info("job finished",
		zap.String("run_id", rec.RunID),
		zap.String("kind", string(rec.Kind)),
		zap.Stringer("status", rec.Status),
		zap.Bool("timed_out", rec.TimedOut),
		zap.Int("lines", owned.LinesLen()),
		zap.Duration("duration", rec.Duration),
	)
	return &Run{Record: rec, Outcome: owned}, nil
}

// RunAll runs jobs concurrently, at most Config.Parallelism at a time.
// Every job runs to completion; runs[i] is nil when jobs[i] failed, and
// the returned error joins every failure. Duplicate names run once.
func (e *Engine) RunAll(ctx context.Context, jobs []string, packages []string) ([]*Run, error) {
	jobs = unique(jobs)
	runs := make([]*Run, len(jobs))
	errs := make([]error, len(jobs))
	e.each(ctx, jobs, packages, func(i int, r *Run, err error) {
		runs[i], errs[i] = r, err
	})
	return runs, errors.Join(errs...)
}

// each runs jobs concurrently and reports each result through done,
// which is called from the job's goroutine with the job's index.
func (e *Engine) each(ctx context.Context, jobs []string, packages []string, done func(i int, r *Run, err error)) {
	var g errgroup.Group
	g.SetLimit(e.Config.Parallelism())
	for i, name := range jobs {
		g.Go(func() error {
			r, err := e.Run(ctx, name, packages)
			done(i, r, err)
			return nil
		})
	}
	_ = g.Wait()
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
