package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShiftingDawn/Feylon/pkg/compiler"
)

var (
	testUnsafe bool
	testPrint  bool
	testAll    bool
)

var testCmd = &cobra.Command{
	Use:   "test <file>",
	Short: "Run a source file and diff its output against a sidecar file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().BoolVar(&testUnsafe, "unsafe", false, "skip the type-check stage")
	testCmd.Flags().BoolVar(&testPrint, "print", false, "print captured stdout/stderr even on success")
	testCmd.Flags().BoolVar(&testAll, "all", false, "report a failed comparison without returning an error")
}

func runTest(_ *cobra.Command, args []string) error {
	file := args[0]
	opts := compiler.Options{Unsafe: testUnsafe, Trace: traceFlag}

	result, err := compiler.Test(file, opts)
	if err != nil {
		return err
	}

	if testPrint || !result.Passed {
		fmt.Printf("stdout:\n%s", result.Stdout)
		if result.Stderr != "" {
			fmt.Printf("stderr:\n%s\n", result.Stderr)
		}
	}

	if !result.Passed {
		fmt.Fprintf(os.Stderr, "FAIL %s (exit=%d)\n", file, result.ExitCode)
		if !testAll {
			return fmt.Errorf("test failed")
		}
		return nil
	}

	fmt.Printf("PASS %s\n", file)
	return nil
}
