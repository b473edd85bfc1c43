// Command feylon is the driver binary: a single cobra-based CLI exposing
// compile, simulate, test, and dump, replacing the teacher's cmd/nux,
// cmd/luxc, cmd/luxrepl trio with one multi-command binary.
package main

import (
	"fmt"
	"os"

	"github.com/ShiftingDawn/Feylon/cmd/feylon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
