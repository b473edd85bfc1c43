// Package check implements spec.md §4.5: the type checker. It performs
// an abstract interpretation of the linked instruction stream over a
// small type lattice (INT, PTR, BOOL), proving every instruction's
// operand stack shape without running the program.
//
// Grounded on _examples/original_source/src/checker.rs (Context{stack,
// ptr, outs}, check_arity, check_signature trying declared signatures
// in order, check_outputs with its allowed_overflow tolerance) and on
// spec.md §9's design note 2, which models the Rust source's nested
// mutable context list as a work queue of (ip, stack, outs) records.
package check

import (
	"fmt"

	"github.com/ShiftingDawn/Feylon/pkg/diag"
	"github.com/ShiftingDawn/Feylon/pkg/link"
	"github.com/ShiftingDawn/Feylon/pkg/source"
	"github.com/ShiftingDawn/Feylon/pkg/token"
)

// context is one symbolic trace of a control-flow path: a type stack, a
// variable-type stack mirroring the runtime's variable frame, an
// instruction pointer, and the expected output types on termination.
type context struct {
	ip       int
	stack    []token.DataType
	varTypes []token.DataType
	outs     []token.DataType
}

func (c context) clone() context {
	c2 := c
	c2.stack = append([]token.DataType{}, c.stack...)
	c2.varTypes = append([]token.DataType{}, c.varTypes...)
	return c2
}

func (c *context) push(t token.DataType) { c.stack = append(c.stack, t) }

func (c *context) pop(word source.Word, what string) (token.DataType, *diag.Diagnostic) {
	if len(c.stack) == 0 {
		return 0, diag.New(diag.ArityUnderflow, word, "not enough operands for %s", what)
	}
	t := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return t, nil
}

// signature is one candidate (ins, outs) shape for an intrinsic.
type signature struct {
	ins  []token.DataType
	outs []token.DataType
	// matchOut, if non-nil, computes the result type from the matched
	// input types (used for +/- where the result matches the first
	// input per spec.md §9 open question 1).
	matchOut func(ins []token.DataType) []token.DataType
}

// intrinsicSignatures lists, per intrinsic, the candidate signatures
// tried in declaration order (spec.md §4.5 "tie-breaks").
var intrinsicSignatures = map[token.Intrinsic][]signature{
	token.Dump: {{ins: []token.DataType{token.Int}}},
	token.Drop: {
		{ins: []token.DataType{token.Int}},
		{ins: []token.DataType{token.Ptr}},
		{ins: []token.DataType{token.Bool}},
	},
	token.Dup: {
		{ins: []token.DataType{token.Int}, outs: []token.DataType{token.Int, token.Int}},
		{ins: []token.DataType{token.Ptr}, outs: []token.DataType{token.Ptr, token.Ptr}},
		{ins: []token.DataType{token.Bool}, outs: []token.DataType{token.Bool, token.Bool}},
	},
	token.Over: {
		{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int, token.Int, token.Int}},
		{ins: []token.DataType{token.Ptr, token.Int}, outs: []token.DataType{token.Ptr, token.Int, token.Ptr}},
	},
	token.Swap: {
		{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int, token.Int}},
		{ins: []token.DataType{token.Ptr, token.Int}, outs: []token.DataType{token.Int, token.Ptr}},
		{ins: []token.DataType{token.Int, token.Ptr}, outs: []token.DataType{token.Ptr, token.Int}},
	},
	token.Rot: {
		{ins: []token.DataType{token.Int, token.Int, token.Int}, outs: []token.DataType{token.Int, token.Int, token.Int}},
	},

	token.Add: {
		{ins: []token.DataType{token.Int, token.Int}, matchOut: func(ins []token.DataType) []token.DataType { return []token.DataType{token.Int} }},
		{ins: []token.DataType{token.Ptr, token.Int}, matchOut: func(ins []token.DataType) []token.DataType { return []token.DataType{token.Ptr} }},
	},
	token.Sub: {
		{ins: []token.DataType{token.Int, token.Int}, matchOut: func(ins []token.DataType) []token.DataType { return []token.DataType{token.Int} }},
		{ins: []token.DataType{token.Ptr, token.Int}, matchOut: func(ins []token.DataType) []token.DataType { return []token.DataType{token.Ptr} }},
	},
	token.Mul:    {{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int}}},
	token.Div:    {{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int}}},
	token.Mod:    {{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int}}},
	token.Shl:    {{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int}}},
	token.Shr:    {{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int}}},
	token.BitAnd: {{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int}}},
	token.BitOr:  {{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int}}},
	token.BitXor: {{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Int}}},

	token.Eq:  comparisonSignatures(),
	token.Neq: comparisonSignatures(),
	token.Lt:  comparisonSignatures(),
	token.Gt:  comparisonSignatures(),
	token.Le:  comparisonSignatures(),
	token.Ge:  comparisonSignatures(),

	token.Load8:  {{ins: []token.DataType{token.Ptr}, outs: []token.DataType{token.Int}}},
	token.Load16: {{ins: []token.DataType{token.Ptr}, outs: []token.DataType{token.Int}}},
	token.Load32: {{ins: []token.DataType{token.Ptr}, outs: []token.DataType{token.Int}}},
	token.Load64: {{ins: []token.DataType{token.Ptr}, outs: []token.DataType{token.Int}}},

	token.Store8:  {{ins: []token.DataType{token.Int, token.Ptr}}},
	token.Store16: {{ins: []token.DataType{token.Int, token.Ptr}}},
	token.Store32: {{ins: []token.DataType{token.Int, token.Ptr}}},
	token.Store64: {{ins: []token.DataType{token.Int, token.Ptr}}},
}

func comparisonSignatures() []signature {
	return []signature{
		{ins: []token.DataType{token.Int, token.Int}, outs: []token.DataType{token.Bool}},
		{ins: []token.DataType{token.Ptr, token.Ptr}, outs: []token.DataType{token.Bool}},
		{ins: []token.DataType{token.Bool, token.Bool}, outs: []token.DataType{token.Bool}},
	}
}

// Check runs the type checker over a linked instruction stream.
// allowedOverflow is the number of extra values output validation
// tolerates left on the stack (spec.md §4.5, §8 property 1).
func Check(linked *link.Result, allowedOverflow int) *diag.Diagnostic {
	c := &checker{linked: linked, allowedOverflow: allowedOverflow, doVisits: map[int]int{}, doShape: map[int]string{}}

	callSignature := map[int]token.Signature{}
	for _, info := range linked.Functions {
		callSignature[info.EntryIndex] = info.Signature
	}

	c.queue = append(c.queue, context{ip: 0})
	for idx, sig := range callSignature {
		c.queue = append(c.queue, context{ip: idx, stack: typesOf(sig.Ins), outs: typesOf(sig.Outs)})
	}

	for len(c.queue) > 0 {
		ctx := c.queue[0]
		c.queue = c.queue[1:]
		if d := c.step(ctx, callSignature); d != nil {
			return d
		}
	}
	return nil
}

func typesOf(positions []token.TypedPos) []token.DataType {
	out := make([]token.DataType, len(positions))
	for i, p := range positions {
		out[i] = p.Type
	}
	return out
}

type checker struct {
	linked          *link.Result
	allowedOverflow int
	queue           []context
	doVisits        map[int]int
	doShape         map[int]string
}

func shapeKey(stack []token.DataType) string {
	s := ""
	for _, t := range stack {
		s += fmt.Sprintf("%d,", t)
	}
	return s
}

// step advances ctx by exactly one instruction, possibly enqueuing a
// forked context, and returns a diagnostic on type error.
func (c *checker) step(ctx context, callSignature map[int]token.Signature) *diag.Diagnostic {
	if ctx.ip >= len(c.linked.Instructions) {
		return c.validateOutputs(ctx, ctx.ip)
	}
	ins := c.linked.Instructions[ctx.ip]

	switch ins.Op {
	case link.PushInt:
		ctx.push(token.Int)
	case link.PushPtr, link.PushMem:
		ctx.push(token.Ptr)
	case link.PushBool:
		ctx.push(token.Bool)
	case link.PushString:
		ctx.push(token.Int)
		ctx.push(token.Ptr)

	case link.IntrinsicOp:
		if d := c.applyIntrinsic(&ctx, ins); d != nil {
			return d
		}

	case link.Function:
		// entry marker only; reached via the per-function seeded context.

	case link.Return:
		return c.validateOutputs(ctx, ctx.ip)

	case link.Call:
		sig, ok := callSignature[ins.Data]
		if !ok {
			return diag.New(diag.UndefinedReference, ins.Word, "call to unresolved function")
		}
		for i := len(sig.Ins) - 1; i >= 0; i-- {
			got, d := ctx.pop(ins.Word, "function call")
			if d != nil {
				return d
			}
			if got != sig.Ins[i].Type {
				return typeMismatch(ins.Word, i, "call", sig.Ins[i])
			}
		}
		for _, out := range sig.Outs {
			ctx.push(out.Type)
		}

	case link.PushVars:
		popped := make([]token.DataType, 0, ins.Data)
		for i := 0; i < ins.Data; i++ {
			t, d := ctx.pop(ins.Word, "var")
			if d != nil {
				return d
			}
			popped = append(popped, t)
		}
		// popped is in pop order (last-declared first); reverse to
		// declaration order so the last-declared variable ends up on
		// top of the var-type stack, matching the runtime's var stack.
		for i, j := 0, len(popped)-1; i < j; i, j = i+1, j-1 {
			popped[i], popped[j] = popped[j], popped[i]
		}
		ctx.varTypes = append(ctx.varTypes, popped...)
	case link.PopVars:
		if ins.Data > len(ctx.varTypes) {
			return diag.New(diag.ArityUnderflow, ins.Word, "popping more variables than are in scope")
		}
		ctx.varTypes = ctx.varTypes[:len(ctx.varTypes)-ins.Data]
	case link.ApplyVar:
		idx := len(ctx.varTypes) - 1 - ins.Data
		if idx < 0 || idx >= len(ctx.varTypes) {
			return diag.New(diag.ArityUnderflow, ins.Word, "variable index out of range")
		}
		ctx.push(ctx.varTypes[idx])

	case link.Jump:
		ctx.ip = ins.Data
		c.queue = append(c.queue, ctx)
		return nil

	case link.JumpNeq:
		if _, d := ctx.pop(ins.Word, "if/while condition"); d != nil {
			return d
		}
		fork := ctx.clone()
		fork.ip = ins.Data
		c.queue = append(c.queue, fork)
		ctx.ip++
		c.queue = append(c.queue, ctx)
		return nil

	case link.Do:
		if _, d := ctx.pop(ins.Word, "do condition"); d != nil {
			return d
		}
		visits := c.doVisits[ctx.ip]
		c.doVisits[ctx.ip] = visits + 1
		if visits == 0 {
			c.doShape[ctx.ip] = shapeKey(ctx.stack)
			fork := ctx.clone()
			fork.ip = ins.Data
			c.queue = append(c.queue, fork)
			ctx.ip++
			c.queue = append(c.queue, ctx)
			return nil
		}
		if shapeKey(ctx.stack) != c.doShape[ctx.ip] {
			return diag.New(diag.LoopMutatesStack, ins.Word, "loop body does not preserve the stack shape")
		}
		return nil
	}

	ctx.ip++
	c.queue = append(c.queue, ctx)
	return nil
}

func (c *checker) applyIntrinsic(ctx *context, ins link.Instruction) *diag.Diagnostic {
	sigs, ok := intrinsicSignatures[ins.Intrinsic]
	if !ok {
		return diag.New(diag.TypeMismatch, ins.Word, "no signature for intrinsic %q", token.IntrinsicName(ins.Intrinsic))
	}
	if len(ctx.stack) < len(sigs[0].ins) {
		return diag.New(diag.ArityUnderflow, ins.Word, "not enough operands for %q", token.IntrinsicName(ins.Intrinsic))
	}
	var lastErr *diag.Diagnostic
	for _, sig := range sigs {
		if len(ctx.stack) < len(sig.ins) {
			continue
		}
		start := len(ctx.stack) - len(sig.ins)
		matched := true
		for i, want := range sig.ins {
			if ctx.stack[start+i] != want {
				matched = false
				lastErr = typeMismatch(ins.Word, i, token.IntrinsicName(ins.Intrinsic), token.TypedPos{Word: ins.Word, Type: want})
				break
			}
		}
		if !matched {
			continue
		}
		got := append([]token.DataType{}, ctx.stack[start:]...)
		ctx.stack = ctx.stack[:start]
		outs := sig.outs
		if sig.matchOut != nil {
			outs = sig.matchOut(got)
		}
		for _, o := range outs {
			ctx.push(o)
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return diag.New(diag.TypeMismatch, ins.Word, "no matching signature for intrinsic %q", token.IntrinsicName(ins.Intrinsic))
}

func typeMismatch(word source.Word, argIdx int, op string, expected token.TypedPos) *diag.Diagnostic {
	return diag.New(diag.TypeMismatch, word,
		"Argument %d of %s is expected to be type '%s' but received a different type instead.",
		argIdx, op, expected.Type).
		WithRelated(expected.Word, "Expected argument is defined here")
}

func (c *checker) validateOutputs(ctx context, at int) *diag.Diagnostic {
	var word source.Word
	if at > 0 && at-1 < len(c.linked.Instructions) {
		word = c.linked.Instructions[at-1].Word
	} else if len(c.linked.Instructions) > 0 {
		word = c.linked.Instructions[0].Word
	}
	n := len(ctx.outs)
	if len(ctx.stack) < n {
		return diag.New(diag.MissingStackData, word, "missing stack data: expected %d values, found %d", n, len(ctx.stack))
	}
	base := len(ctx.stack) - n
	for i, want := range ctx.outs {
		if ctx.stack[base+i] != want {
			return typeMismatch(word, i, "return", token.TypedPos{Word: word, Type: want})
		}
	}
	if len(ctx.stack)-c.allowedOverflow > n {
		return diag.New(diag.UnhandledStackData, word, "unhandled stack data: %d value(s) left on the stack", len(ctx.stack)-n)
	}
	return nil
}
