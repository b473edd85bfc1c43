package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShiftingDawn/Feylon/pkg/backend"
	"github.com/ShiftingDawn/Feylon/pkg/check"
	"github.com/ShiftingDawn/Feylon/pkg/compiler"
)

var dumpUnsafe bool

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Link a source file and print its .cfc string representation",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVar(&dumpUnsafe, "unsafe", false, "skip the type-check stage")
}

func runDump(_ *cobra.Command, args []string) error {
	file := args[0]
	opts := compiler.Options{Unsafe: dumpUnsafe, Trace: traceFlag}

	linked, d := compiler.Link(file, opts)
	if d != nil {
		printDiagnostic(file, d)
		return fmt.Errorf("link failed")
	}

	if !opts.Unsafe {
		if d := check.Check(linked, opts.AllowedOverflow); d != nil {
			printDiagnostic(file, d)
			return fmt.Errorf("type check failed")
		}
	}

	return backend.StringEmitter{}.Emit(os.Stdout, linked)
}
