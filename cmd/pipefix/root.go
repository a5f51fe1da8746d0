package main

import (
	"github.com/spf13/cobra"

	"github.com/pipefix/pipefix/pkg/report"
)

var (
	rootDir   string
	colorMode string
	verbose   bool

	// exitCode is set by subcommands that finish but found issues.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "pipefix",
	Short: "Pipefix - CI pipeline analyzer and fixer",
	Long: `Pipefix analyzes CI pipeline definitions for syntax problems, caching
mistakes, step-ordering issues, and dependency-graph inefficiencies, and can
apply safe, non-conflicting fixes automatically.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		report.SetupColor(colorMode)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Repository root to operate on")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Colorize output: auto, always, never")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
