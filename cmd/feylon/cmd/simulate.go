package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShiftingDawn/Feylon/pkg/compiler"
)

var (
	simulateUnsafe bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <file>",
	Short: "Compile, type-check, and interpret a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().BoolVar(&simulateUnsafe, "unsafe", false, "skip the type-check stage")
}

func runSimulate(_ *cobra.Command, args []string) error {
	file := args[0]
	opts := compiler.Options{Unsafe: simulateUnsafe, Trace: traceFlag}
	if d := compiler.Simulate(file, os.Stdout, opts); d != nil {
		printDiagnostic(file, d)
		return fmt.Errorf("simulation failed")
	}
	return nil
}
