package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "frontier %s\n", version.Version)
			fmt.Fprintf(out, "  commit:  %s\n", version.Commit)
			fmt.Fprintf(out, "  built:   %s\n", version.BuildDate)
		},
	}
}
