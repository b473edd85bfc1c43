// Package eval implements spec.md §4.3: compile-time evaluation of
// constant and memory-size expressions over a restricted subset of the
// language, removing Const/Memory blocks from the token stream and
// populating immutable lookup tables.
//
// Grounded on _examples/original_source/src/evaluator.rs (a restricted
// constant-expression stack machine) per spec.md §9 open question 3,
// which resolves the `+`/`-`/`*` union rule for both constants and
// memory sizes.
package eval

import (
	"github.com/ShiftingDawn/Feylon/pkg/diag"
	"github.com/ShiftingDawn/Feylon/pkg/token"
)

// ConstEntry is an evaluated, immutable constant.
type ConstEntry struct {
	Type  token.DataType
	Value uint64
}

// MemEntry is an evaluated memory region: its byte offset into the
// single contiguous memory area, and its byte size.
type MemEntry struct {
	Offset uint64
	Size   uint64
}

// Result is the evaluator's output: the token stream with Const/Memory
// blocks removed, and the evaluated tables.
type Result struct {
	Tokens          []token.Token
	Constants       map[string]ConstEntry
	Memories        map[string]MemEntry
	TotalMemorySize uint64
}

// Eval runs the evaluator over a tokenizer output stream.
func Eval(tokens []token.Token) (*Result, *diag.Diagnostic) {
	r := &Result{
		Constants: map[string]ConstEntry{},
		Memories:  map[string]MemEntry{},
	}

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		switch tok.Kind {
		case token.Const:
			body, next, d := sliceBody(tokens, i+1)
			if d != nil {
				return nil, d
			}
			val, d := evalConstExpr(body, r.Constants)
			if d != nil {
				return nil, d
			}
			r.Constants[tok.Name] = ConstEntry{Type: token.Int, Value: val}
			i = next

		case token.Memory:
			body, next, d := sliceBody(tokens, i+1)
			if d != nil {
				return nil, d
			}
			size, d := evalConstExpr(body, r.Constants)
			if d != nil {
				return nil, d
			}
			r.Memories[tok.Name] = MemEntry{Offset: r.TotalMemorySize, Size: size}
			r.TotalMemorySize += size
			i = next

		default:
			r.Tokens = append(r.Tokens, tok)
			i++
		}
	}
	return r, nil
}

// sliceBody returns the tokens strictly between start and the matching
// End (which is consumed), plus the index just past that End.
func sliceBody(tokens []token.Token, start int) ([]token.Token, int, *diag.Diagnostic) {
	for j := start; j < len(tokens); j++ {
		if tokens[j].Kind == token.End {
			return tokens[start:j], j + 1, nil
		}
	}
	w := tokens[start-1].Word
	return nil, 0, diag.New(diag.IncompleteConst, w, "unterminated const/memory block")
}

// evalConstExpr runs the restricted constant-expression stack machine:
// PushInt, ConstRef, and the arithmetic intrinsics +, -, * only.
func evalConstExpr(body []token.Token, consts map[string]ConstEntry) (uint64, *diag.Diagnostic) {
	var stack []uint64
	for _, tok := range body {
		switch tok.Kind {
		case token.PushInt:
			stack = append(stack, uint64(tok.IntVal))
		case token.ConstRef:
			entry, ok := consts[tok.Name]
			if !ok {
				return 0, diag.New(diag.UndefinedConstant, tok.Word, "undefined constant %q", tok.Name)
			}
			stack = append(stack, entry.Value)
		case token.IntrinsicOp:
			switch tok.Intrinsic {
			case token.Add, token.Sub, token.Mul:
				if len(stack) < 2 {
					return 0, diag.New(diag.IllegalTokenInConstexpr, tok.Word, "not enough operands for %q in constant expression", token.IntrinsicName(tok.Intrinsic))
				}
				b := stack[len(stack)-1]
				a := stack[len(stack)-2]
				stack = stack[:len(stack)-2]
				var res uint64
				switch tok.Intrinsic {
				case token.Add:
					res = a + b
				case token.Sub:
					res = a - b
				case token.Mul:
					res = a * b
				}
				stack = append(stack, res)
			default:
				return 0, diag.New(diag.IllegalIntrinsicInConstexpr, tok.Word, "intrinsic %q is not legal in a constant expression", token.IntrinsicName(tok.Intrinsic))
			}
		default:
			return 0, diag.New(diag.IllegalTokenInConstexpr, tok.Word, "token is not legal in a constant expression")
		}
	}
	if len(stack) != 1 {
		var loc token.Token
		if len(body) > 0 {
			loc = body[0]
		}
		return 0, diag.New(diag.ConstexprNotSingleValue, loc.Word, "constant expression must evaluate to exactly one value, got %d", len(stack))
	}
	return stack[0], nil
}
