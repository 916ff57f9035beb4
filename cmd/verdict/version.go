package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deixis/verdict"
)

func newVersionCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(g.stdout, verdict.Version)
		},
	}
}
