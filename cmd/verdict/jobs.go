package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newJobsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List the jobs that can be run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.newEnv(0)
			if err != nil {
				return err
			}
			cfg := e.loaded.Config
			defaults := cfg.DefaultJobList()

			tw := tabwriter.NewWriter(g.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB\tANALYZER\tDEFAULT\tCOMMAND")
			for _, name := range cfg.JobNames() {
				job, _ := cfg.Job(name)
				def := ""
				if slices.Contains(defaults, name) {
					def = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, job.Analyzer, def, strings.Join(job.Command, " "))
			}
			return tw.Flush()
		},
	}
}
