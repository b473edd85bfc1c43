package check_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ShiftingDawn/Feylon/pkg/check"
	"github.com/ShiftingDawn/Feylon/pkg/eval"
	"github.com/ShiftingDawn/Feylon/pkg/lexer"
	"github.com/ShiftingDawn/Feylon/pkg/link"
	"github.com/ShiftingDawn/Feylon/pkg/token"
)

func compileToLinked(t *testing.T, src string) *link.Result {
	t.Helper()
	words, d := lexer.Lex("test.fey", src)
	require.Nil(t, d)
	toks, _, d := token.Tokenize("test.fey", words, ".")
	require.Nil(t, d)
	er, d := eval.Eval(toks)
	require.Nil(t, d)
	lr, d := link.Link(er)
	require.Nil(t, d)
	return lr
}

func TestCheckArithmeticOK(t *testing.T) {
	lr := compileToLinked(t, "1 2 + dump")
	require.Nil(t, check.Check(lr, 0))
}

func TestCheckIfElseOK(t *testing.T) {
	lr := compileToLinked(t, "1 2 > if 7 dump else 8 dump end")
	require.Nil(t, check.Check(lr, 0))
}

func TestCheckWhileLoopOK(t *testing.T) {
	lr := compileToLinked(t, "3 while dup 0 > do dup dump 1 - end drop")
	require.Nil(t, check.Check(lr, 0))
}

func TestCheckFunctionOK(t *testing.T) {
	lr := compileToLinked(t, "function add (int int -> int) + end\n2 3 add dump")
	require.Nil(t, check.Check(lr, 0))
}

func TestCheckTypeMismatch(t *testing.T) {
	lr := compileToLinked(t, "1 true +")
	d := check.Check(lr, 0)
	require.NotNil(t, d)
	require.Equal(t, "TYPE_MISMATCH", string(d.Code))
}

func TestCheckUnhandledStackData(t *testing.T) {
	lr := compileToLinked(t, "1 2")
	d := check.Check(lr, 0)
	require.NotNil(t, d)
	require.Equal(t, "UNHANDLED_STACK_DATA", string(d.Code))
}

func TestCheckAllowedOverflow(t *testing.T) {
	lr := compileToLinked(t, "1 2")
	require.Nil(t, check.Check(lr, 2))
}
