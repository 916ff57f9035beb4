package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/deixis/verdict/internal/outcome"
	"github.com/deixis/verdict/internal/render"
	"github.com/deixis/verdict/internal/workflow"
)

type runOptions struct {
	json    bool
	reverse bool
	timeout time.Duration
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [job] [packages...]",
		Short: "Run one job and print its classified result",
		Long: `Run one job and print its classified result.

The job defaults to the first default job. Packages are Go package patterns
or directories, and default to ./... for jobs that take packages.

Exit status is 1 when the command failed without diagnostics or the report
contains errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.newEnv(opts.timeout)
			if err != nil {
				return err
			}
			job := e.loaded.Config.DefaultJobList()[0]
			var packages []string
			if len(args) > 0 {
				job, packages = args[0], args[1:]
			}

			r, err := e.engine.Run(cmd.Context(), job, packages)
			if err != nil {
				return err
			}
			if opts.reverse {
				r.Outcome.Reverse()
			}
			if err := writeRun(g, r, opts.json); err != nil {
				return err
			}
			if r.Record.Failed() {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "output the run record as JSON")
	cmd.Flags().BoolVar(&opts.reverse, "reverse", false, "list lines in reverse order")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "override configured timeout (e.g. 5m)")
	return cmd
}

func writeRun(g *globalOptions, r *workflow.Run, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(g.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(withOutcome(r.Record, r.Outcome))
	}
	fmt.Fprintln(g.stdout, render.Summary(r.Record))
	fmt.Fprintln(g.stdout)
	fmt.Fprint(g.stdout, render.Text(r.Outcome, g.renderOptions()))
	return nil
}

// withOutcome returns a copy of rec carrying o, so that a reversed outcome
// is reflected in JSON output.
func withOutcome(rec *outcome.Record, o outcome.Outcome) *outcome.Record {
	out := *rec
	switch o := o.(type) {
	case *outcome.Report:
		out.Report = o.Report
	case *outcome.Failure:
		out.Failure = o
	}
	return &out
}
