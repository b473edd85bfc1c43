package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ShiftingDawn/Feylon/pkg/eval"
	"github.com/ShiftingDawn/Feylon/pkg/lexer"
	"github.com/ShiftingDawn/Feylon/pkg/link"
	"github.com/ShiftingDawn/Feylon/pkg/token"
	"github.com/ShiftingDawn/Feylon/pkg/vm"
)

func run(t *testing.T, src string) string {
	t.Helper()
	words, d := lexer.Lex("test.fey", src)
	require.Nil(t, d)
	toks, _, d := token.Tokenize("test.fey", words, ".")
	require.Nil(t, d)
	er, d := eval.Eval(toks)
	require.Nil(t, d)
	lr, d := link.Link(er)
	require.Nil(t, d)

	var out bytes.Buffer
	machine := vm.New(lr, &out)
	require.NoError(t, machine.Run())
	return out.String()
}

func TestRunArithmetic(t *testing.T) {
	require.Equal(t, "3\n", run(t, "1 2 + dump"))
}

func TestRunIfElse(t *testing.T) {
	require.Equal(t, "8\n", run(t, "1 2 > if 7 dump else 8 dump end"))
}

func TestRunWhileLoop(t *testing.T) {
	require.Equal(t, "3\n2\n1\n", run(t, "3 while dup 0 > do dup dump 1 - end drop"))
}

func TestRunConstant(t *testing.T) {
	require.Equal(t, "20\n", run(t, "const N 10 end N 2 * dump"))
}

func TestRunFunction(t *testing.T) {
	require.Equal(t, "5\n", run(t, "function add (int int -> int) + end\n2 3 add dump"))
}

func TestRunMemoryRoundTrip(t *testing.T) {
	require.Equal(t, "42\n", run(t, "memory cell 8 end 42 cell store64 cell load64 dump"))
}

func TestRunVarBlock(t *testing.T) {
	require.Equal(t, "7\n", run(t, "3 4 var x y in x y + dump end"))
}
