package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "foreman",
	Short: "Agent Orchestration & Task Distribution Engine",
	Long: `Foreman coordinates a fleet of Claude-backed agents working through a
project task board. It matches tasks to agents with pluggable
distribution strategies, tracks dependencies and quality gates, and
monitors progress with completion forecasts.

Core capabilities:
- Distributes tasks by capability, load, or weighted confidence scoring
- Resolves task dependency graphs and flags the critical path
- Enforces quality gates before marking work complete
- Forecasts completion dates and raises timeline-risk alerts`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
