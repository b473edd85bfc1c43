package cmd

import (
	"github.com/spf13/cobra"
)

var (
	traceFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "feylon",
	Short: "Feylon compiler and reference interpreter",
	Long: `feylon is a compiler and reference interpreter for Feylon, a small
concatenative, stack-based programming language.

It exposes four operations on a source file:
  simulate  compile, type-check, and interpret it directly
  compile   compile and emit it through a named backend
  test      run it and diff stdout/exit-code against a sidecar file
  dump      link it and print its .cfc string representation`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "trace every pipeline stage to stderr")
}
