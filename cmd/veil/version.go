package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=...". GitCommit and BuildDate fall
// back to the VCS stamp the go tool embeds.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			commit, date := buildStamp()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Veil %s\n", Version)
			tw := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
			fmt.Fprintf(tw, "Git Commit:\t%s\n", commit)
			fmt.Fprintf(tw, "Build Date:\t%s\n", date)
			fmt.Fprintf(tw, "Go Version:\t%s\n", runtime.Version())
			fmt.Fprintf(tw, "OS/Arch:\t%s/%s\n", runtime.GOOS, runtime.GOARCH)
			tw.Flush()
		},
	}
}

func buildStamp() (commit, date string) {
	commit, date = GitCommit, BuildDate
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, date
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "unknown":
			commit = s.Value
		case s.Key == "vcs.time" && date == "unknown":
			date = s.Value
		}
	}
	return commit, date
}
