package eval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ShiftingDawn/Feylon/pkg/eval"
	"github.com/ShiftingDawn/Feylon/pkg/lexer"
	"github.com/ShiftingDawn/Feylon/pkg/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	words, d := lexer.Lex("test.fey", src)
	require.Nil(t, d)
	toks, _, d := token.Tokenize("test.fey", words, ".")
	require.Nil(t, d)
	return toks
}

func TestEvalConstantUnionRule(t *testing.T) {
	toks := tokenize(t, "const N 10 2 * 3 - end")
	r, d := eval.Eval(toks)
	require.Nil(t, d)
	require.Equal(t, uint64(17), r.Constants["N"].Value)
	require.Equal(t, token.Int, r.Constants["N"].Type)
}

func TestEvalConstantReferencingPriorConstant(t *testing.T) {
	toks := tokenize(t, "const A 4 end const B A A + end")
	r, d := eval.Eval(toks)
	require.Nil(t, d)
	require.Equal(t, uint64(4), r.Constants["A"].Value)
	require.Equal(t, uint64(8), r.Constants["B"].Value)
}

func TestEvalMemorySizeUnionRuleAndLayout(t *testing.T) {
	toks := tokenize(t, "memory a 4 2 * end memory b 1 end")
	r, d := eval.Eval(toks)
	require.Nil(t, d)
	require.Equal(t, eval.MemEntry{Offset: 0, Size: 8}, r.Memories["a"])
	require.Equal(t, eval.MemEntry{Offset: 8, Size: 1}, r.Memories["b"])
	require.Equal(t, uint64(9), r.TotalMemorySize)
}

func TestEvalDropsConstAndMemoryBlocksFromTokenStream(t *testing.T) {
	toks := tokenize(t, "const N 1 end N dump")
	r, d := eval.Eval(toks)
	require.Nil(t, d)
	require.Len(t, r.Tokens, 2)
	require.Equal(t, token.ConstRef, r.Tokens[0].Kind)
	require.Equal(t, token.IntrinsicOp, r.Tokens[1].Kind)
}

func TestEvalUndefinedConstantOnSelfReference(t *testing.T) {
	toks := tokenize(t, "const A A end")
	_, d := eval.Eval(toks)
	require.NotNil(t, d)
	require.Equal(t, "UNDEFINED_CONSTANT", string(d.Code))
}

func TestEvalIllegalIntrinsicInConstexpr(t *testing.T) {
	toks := tokenize(t, "const N 1 dup end")
	_, d := eval.Eval(toks)
	require.NotNil(t, d)
	require.Equal(t, "ILLEGAL_INTRINSIC_IN_CONSTEXPR", string(d.Code))
}

func TestEvalConstexprNotSingleValue(t *testing.T) {
	toks := tokenize(t, "const N 1 2 end")
	_, d := eval.Eval(toks)
	require.NotNil(t, d)
	require.Equal(t, "CONSTEXPR_NOT_SINGLE_VALUE", string(d.Code))
}

func TestEvalIllegalTokenInConstexpr(t *testing.T) {
	toks := tokenize(t, "const N true end")
	_, d := eval.Eval(toks)
	require.NotNil(t, d)
	require.Equal(t, "ILLEGAL_TOKEN_IN_CONSTEXPR", string(d.Code))
}

// TestPropertyMemoryOffsetsDisjointAndOrdered checks spec.md §8 property 7:
// total_memory_size equals the sum of declared memory sizes, and offsets
// are disjoint and ordered by declaration.
func TestPropertyMemoryOffsetsDisjointAndOrdered(t *testing.T) {
	toks := tokenize(t, "memory a 4 end memory b 2 2 * end memory c 1 end memory d 3 end")
	r, d := eval.Eval(toks)
	require.Nil(t, d)

	order := []string{"a", "b", "c", "d"}
	var sum uint64
	var prevEnd uint64
	for _, name := range order {
		entry, ok := r.Memories[name]
		require.Truef(t, ok, "memory %q missing from evaluated result", name)
		require.Equalf(t, prevEnd, entry.Offset, "memory %q offset %d does not immediately follow the prior region ending at %d", name, entry.Offset, prevEnd)
		prevEnd = entry.Offset + entry.Size
		sum += entry.Size
	}
	require.Equal(t, sum, r.TotalMemorySize)
}
