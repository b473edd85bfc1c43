package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShiftingDawn/Feylon/pkg/compiler"
)

var (
	compileUse    string
	compileUnsafe bool
	compileOut    string
)

var compileCmd = &cobra.Command{
	Use:   "compile <file>",
	Short: "Compile a source file and emit it via a backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVar(&compileUse, "use", "string", "backend to emit through")
	compileCmd.Flags().BoolVar(&compileUnsafe, "unsafe", false, "skip the type-check stage")
	compileCmd.Flags().StringVarP(&compileOut, "output", "o", "", "output file (default: stdout)")
}

func runCompile(_ *cobra.Command, args []string) error {
	file := args[0]
	opts := compiler.Options{Unsafe: compileUnsafe, Trace: traceFlag}

	out := os.Stdout
	if compileOut != "" {
		f, err := os.Create(compileOut)
		if err != nil {
			return fmt.Errorf("cannot create %q: %w", compileOut, err)
		}
		defer f.Close()
		out = f
	}

	if d := compiler.Compile(file, compileUse, out, opts); d != nil {
		printDiagnostic(file, d)
		return fmt.Errorf("compilation failed")
	}
	return nil
}
