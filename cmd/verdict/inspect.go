package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deixis/verdict/internal/outcome"
	"github.com/deixis/verdict/internal/render"
)

func newInspectCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <run-id> [filter]",
		Short: "Show a stored run, optionally narrowed to a package, symbol, or file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.newEnv(0)
			if err != nil {
				return err
			}
			rec, err := e.store.Load(args[0])
			if err != nil {
				return err
			}
			o, err := rec.Outcome()
			if err != nil {
				return err
			}

			fmt.Fprintln(g.stdout, render.Summary(rec))
			fmt.Fprintln(g.stdout)

			rep, ok := o.(*outcome.Report)
			if !ok || len(args) < 2 {
				fmt.Fprint(g.stdout, render.Text(o, g.renderOptions()))
				return nil
			}
			lines := rep.Report.Filter(args[1])
			if len(lines) == 0 {
				fmt.Fprintf(g.stdout, "No diagnostics found for %s.\n", args[1])
				return nil
			}
			fmt.Fprint(g.stdout, render.Lines(lines, g.renderOptions()))
			return nil
		},
	}
}
