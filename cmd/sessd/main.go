// Package main implements the sessd CLI: the hook executable and the
// developer-facing commands for the session workflow layer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sessiond/pkg/git"
)

var (
	// projectFlag overrides project root discovery
	projectFlag string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sessd",
	Short: "Workflow enforcement for Claude Code sessions",
	Long: `sessd keeps a coding session honest: discussion before implementation,
one task at a time, on the branch the task calls for.

It runs as a set of Claude Code hooks (see 'sessd install') and offers
commands to inspect and adjust the session state by hand.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "", "project root (default: discovered from the working directory)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sessd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sessd %s\n", version)
	},
}

// projectRoot resolves the project root from the flag, an event cwd, or
// the process working directory, in that order.
func projectRoot(eventCWD string) string {
	if projectFlag != "" {
		return projectFlag
	}
	start := eventCWD
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		start = wd
	}
	return git.ProjectRoot(start)
}
