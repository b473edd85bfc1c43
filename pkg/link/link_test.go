package link_test

import (
	"testing"

	"github.com/stretchr/testify/require"

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

func TestLinkArithmetic(t *testing.T) {
	lr := compileToLinked(t, "1 2 + dump")
	require.Len(t, lr.Instructions, 4)
	require.Equal(t, link.PushInt, lr.Instructions[0].Op)
	require.Equal(t, link.PushInt, lr.Instructions[1].Op)
	require.Equal(t, link.IntrinsicOp, lr.Instructions[2].Op)
	require.Equal(t, token.Add, lr.Instructions[2].Intrinsic)
	require.Equal(t, link.IntrinsicOp, lr.Instructions[3].Op)
	require.Equal(t, token.Dump, lr.Instructions[3].Intrinsic)
}

func TestLinkIfElse(t *testing.T) {
	lr := compileToLinked(t, "1 2 > if 7 dump else 8 dump end")
	var jumpNeqCount, jumpCount int
	for _, ins := range lr.Instructions {
		if ins.Op == link.JumpNeq {
			jumpNeqCount++
		}
		if ins.Op == link.Jump {
			jumpCount++
		}
	}
	require.Equal(t, 1, jumpNeqCount)
	require.Equal(t, 1, jumpCount)
}

func TestLinkWhileLoop(t *testing.T) {
	lr := compileToLinked(t, "3 while dup 0 > do dup dump 1 - end drop")
	var doCount, jumpCount int
	for _, ins := range lr.Instructions {
		if ins.Op == link.Do {
			doCount++
		}
		if ins.Op == link.Jump {
			jumpCount++
		}
	}
	require.Equal(t, 1, doCount)
	require.Equal(t, 1, jumpCount)
}

func TestLinkFunction(t *testing.T) {
	lr := compileToLinked(t, "function add (int int -> int) + end\n2 3 add dump")
	require.Len(t, lr.Instructions, 8)
	require.Equal(t, link.Jump, lr.Instructions[0].Op)
	require.Equal(t, 4, lr.Instructions[0].Data)
	require.Equal(t, link.Function, lr.Instructions[1].Op)
	require.Equal(t, link.Return, lr.Instructions[3].Op)
	require.Equal(t, link.Call, lr.Instructions[6].Op)
	require.Equal(t, 1, lr.Instructions[6].Data)
}

func TestLinkConstant(t *testing.T) {
	lr := compileToLinked(t, "const N 10 end N 2 * dump")
	require.Equal(t, link.PushInt, lr.Instructions[0].Op)
	require.Equal(t, uint64(10), lr.Instructions[0].PushIntVal)
}

// TestPropertyJumpAddrBounds checks spec.md §8 property 4 against every
// linked sample in the corpus: every JumpAddr-tagged instruction operand
// must land inside the linked stream, never before or past its end.
func TestPropertyJumpAddrBounds(t *testing.T) {
	sources := []string{
		"1 2 + dump",
		"1 2 > if 7 dump else 8 dump end",
		"3 while dup 0 > do dup dump 1 - end drop",
		"function add (int int -> int) + end\n2 3 add dump",
		"1 if 1 dump end",
		"function f (-> int) 1 end\nfunction g (-> int) f end\ng dump",
	}
	for _, src := range sources {
		lr := compileToLinked(t, src)
		for _, ins := range lr.Instructions {
			if ins.DataKind != link.DataJumpAddr {
				continue
			}
			require.GreaterOrEqualf(t, ins.Data, 0, "source %q: instruction %d jump target %d is negative", src, ins.SelfIndex, ins.Data)
			require.LessOrEqualf(t, ins.Data, len(lr.Instructions), "source %q: instruction %d jump target %d exceeds stream length %d", src, ins.SelfIndex, ins.Data, len(lr.Instructions))
		}
	}
}

// TestPropertyTotalMemorySize checks the memory-size half of spec.md §8
// property 7 at the linker boundary: TotalMemorySize passes through from
// the evaluator unchanged and equals the sum of declared sizes. The
// offset/disjointness half of the property is checked directly against
// eval.Result.Memories in pkg/eval, since Result here doesn't retain
// per-region offsets.
func TestPropertyTotalMemorySize(t *testing.T) {
	lr := compileToLinked(t, "memory a 4 end memory b 2 2 * end memory c 1 end a load8 drop")
	require.Equal(t, uint64(4+4+1), lr.TotalMemorySize)
}
