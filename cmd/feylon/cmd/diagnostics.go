package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ShiftingDawn/Feylon/pkg/diag"
)

// printDiagnostic renders d against file's source (when readable) with a
// colored caret, matching the teacher's errors.FormatErrors(errs, true)
// pretty-printing call sites.
func printDiagnostic(file string, d *diag.Diagnostic) {
	var lines []string
	if contents, err := os.ReadFile(file); err == nil {
		lines = strings.Split(string(contents), "\n")
	}
	fmt.Fprintln(os.Stderr, d.Format(lines, true))
}
