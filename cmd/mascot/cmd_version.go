package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Aliases:           []string{"v"},
		Short:             "Show version information",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mascot %s\n", formatVersion())
			if buildTime != "" {
				fmt.Fprintf(out, "  Build: %s\n", buildTime)
			}
			fmt.Fprintf(out, "  Go: %s\n", runtime.Version())
		},
	}
}

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}
