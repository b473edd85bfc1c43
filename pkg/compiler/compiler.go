// Package compiler provides the thin orchestration gluing the pipeline
// stages (lexer, tokenizer, evaluator, linker, type checker,
// interpreter) into the three operations spec.md §6 names as the core's
// external surface: Compile, Simulate, and Test. Grounded on the
// teacher's (rmay-nuxvm pkg/lux.Compile) single top-level entry point
// that a CLI command calls directly.
package compiler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShiftingDawn/Feylon/pkg/backend"
	"github.com/ShiftingDawn/Feylon/pkg/check"
	"github.com/ShiftingDawn/Feylon/pkg/diag"
	"github.com/ShiftingDawn/Feylon/pkg/eval"
	"github.com/ShiftingDawn/Feylon/pkg/lexer"
	"github.com/ShiftingDawn/Feylon/pkg/link"
	"github.com/ShiftingDawn/Feylon/pkg/source"
	"github.com/ShiftingDawn/Feylon/pkg/token"
	"github.com/ShiftingDawn/Feylon/pkg/vm"
)

// Options configures a pipeline run. AllowedOverflow and Unsafe are the
// supplemented features from SPEC_FULL.md §5.
type Options struct {
	Unsafe          bool
	AllowedOverflow int
	Trace           bool
}

// Backends maps a --use backend name to its Emitter. "string" is the
// only fully-implemented backend (spec.md §1: native assembly backends
// are interchangeable sinks outside this repo's scope).
var Backends = map[string]backend.Emitter{
	"string": backend.StringEmitter{},
}

// Link runs the pipeline through the linker, returning the linked
// program. Shared by Compile, Simulate, and Test.
func Link(file string, opts Options) (*link.Result, *diag.Diagnostic) {
	contents, err := os.ReadFile(file)
	if err != nil {
		return nil, diag.New(diag.ImportNotFound, source.Word{File: file}, "cannot read %q: %v", file, err)
	}
	words, d := lexer.Lex(file, string(contents), opts.Trace)
	if d != nil {
		return nil, d
	}
	toks, _, d := token.Tokenize(file, words, filepath.Dir(file), opts.Trace)
	if d != nil {
		return nil, d
	}
	evalRes, d := eval.Eval(toks)
	if d != nil {
		return nil, d
	}
	return link.Link(evalRes, opts.Trace)
}

// Compile links file and emits it through the named backend.
func Compile(file, backendName string, w io.Writer, opts Options) *diag.Diagnostic {
	linked, d := Link(file, opts)
	if d != nil {
		return d
	}
	if !opts.Unsafe {
		if d := check.Check(linked, opts.AllowedOverflow); d != nil {
			return d
		}
	}
	emitter, ok := Backends[backendName]
	if !ok {
		return diag.New(diag.UndefinedReference, source.Word{File: file}, "unknown backend %q", backendName)
	}
	if err := emitter.Emit(w, linked); err != nil {
		return diag.New(diag.UndefinedReference, source.Word{File: file}, "backend error: %v", err)
	}
	return nil
}

// Simulate links file, optionally type-checks it, and interprets it.
func Simulate(file string, out io.Writer, opts Options) *diag.Diagnostic {
	linked, d := Link(file, opts)
	if d != nil {
		return d
	}
	if !opts.Unsafe {
		if d := check.Check(linked, opts.AllowedOverflow); d != nil {
			return d
		}
	}
	machine := vm.New(linked, out, opts.Trace)
	if err := machine.Run(); err != nil {
		return diag.New(diag.UndefinedReference, source.Word{File: file}, "runtime error: %v", err)
	}
	return nil
}

// Sidecar is the parsed form of a `<file>.txt` test expectation, per
// spec.md §6.
type Sidecar struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ParseSidecar parses the test sidecar format: line 1 is the decimal
// expected exit code; subsequent lines are `out:`/`err:` directives that
// switch the capture buffer, or literal lines for the current stream
// (initially stdout).
func ParseSidecar(contents string) (Sidecar, error) {
	lines := strings.Split(contents, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return Sidecar{}, fmt.Errorf("empty sidecar")
	}
	var sc Sidecar
	if _, err := fmt.Sscanf(strings.TrimSpace(lines[0]), "%d", &sc.ExitCode); err != nil {
		return Sidecar{}, fmt.Errorf("invalid exit code line: %v", err)
	}
	var stdout, stderr strings.Builder
	cur := &stdout
	for _, line := range lines[1:] {
		switch line {
		case "out:":
			cur = &stdout
		case "err:":
			cur = &stderr
		default:
			cur.WriteString(line)
			cur.WriteString("\n")
		}
	}
	sc.Stdout = stdout.String()
	sc.Stderr = stderr.String()
	return sc, nil
}

// TestResult is the outcome of running Test against a sidecar.
type TestResult struct {
	Passed   bool
	Stdout   string
	Stderr   string
	ExitCode int
	Diag     *diag.Diagnostic
}

// Test runs file and diffs its stdout against the sidecar
// `<file>.txt`, per spec.md §6's test-runner external collaborator
// contract (the pipeline side of it implemented here; textual
// diffing/reporting is this function's job, process spawning is not
// needed since the interpreter runs in-process).
func Test(file string, opts Options) (*TestResult, error) {
	sidecarPath := file + ".txt"
	contents, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read sidecar %q: %w", sidecarPath, err)
	}
	expected, err := ParseSidecar(string(contents))
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	d := Simulate(file, &out, opts)
	res := &TestResult{Stdout: out.String(), Diag: d}
	if d != nil {
		res.ExitCode = 1
		res.Stderr = d.Error()
	}
	res.Passed = res.ExitCode == expected.ExitCode && res.Stdout == expected.Stdout
	return res, nil
}
