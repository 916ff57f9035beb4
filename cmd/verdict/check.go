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

type checkOptions struct {
	jobs    []string
	json    bool
	timeout time.Duration
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [packages...]",
		Short: "Run the default jobs concurrently",
		Long: `Run the default jobs (build, vet, test unless configured) concurrently and
summarise each one. Failing jobs are printed in full.

Exit status is 1 when any job failed, could not run, or reported errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.newEnv(opts.timeout)
			if err != nil {
				return err
			}
			result := e.engine.Check(cmd.Context(), opts.jobs, args)

			if opts.json {
				if err := writeCheckJSON(g, result); err != nil {
					return err
				}
			} else {
				writeCheck(g, result)
			}
			if result.Failed() {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&opts.jobs, "jobs", nil, "jobs to run instead of the default jobs")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output results as JSON")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "override configured timeout (e.g. 5m)")
	return cmd
}

func writeCheck(g *globalOptions, result *workflow.CheckResult) {
	fmt.Fprint(g.stdout, result.String())
	for _, s := range result.Steps {
		if s.Status != workflow.StatusFail || s.Run == nil {
			continue
		}
		fmt.Fprintln(g.stdout)
		fmt.Fprintf(g.stdout, "== %s ==\n", s.Job)
		fmt.Fprint(g.stdout, render.Text(s.Run.Outcome, g.renderOptions()))
	}
}

type checkStepJSON struct {
	Job    string          `json:"job"`
	Status string          `json:"status"`
	Detail string          `json:"detail,omitempty"`
	Record *outcome.Record `json:"record,omitempty"`
}

func writeCheckJSON(g *globalOptions, result *workflow.CheckResult) error {
	steps := make([]checkStepJSON, 0, len(result.Steps))
	for _, s := range result.Steps {
		js := checkStepJSON{Job: s.Job, Status: s.Status, Detail: s.Detail}
		if s.Run != nil {
			js.Record = s.Run.Record
		}
		steps = append(steps, js)
	}
	enc := json.NewEncoder(g.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"failed": result.Failed(),
		"steps":  steps,
	})
}
