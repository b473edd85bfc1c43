// Package link implements spec.md §4.4: the linker. It walks the
// post-evaluation token stream and emits a linear array of linked
// instructions with fully-resolved numeric operands, maintaining a
// block stack, a function table, and a flat variable-name stack.
//
// Grounded on _examples/original_source/src/linker.rs for the overall
// block-stack/patch-on-End shape, generalized per spec.md §4.4 to also
// handle functions and variable blocks, and restructured as a two-pass
// emit-then-patch walk in the style of the teacher's
// (rmay-nuxvm pkg/lux.Compiler) compile() method — here patching
// `JumpAddr`/`Count`/`Index` fields on a []Instruction slice instead of
// byte offsets in a []byte buffer.
package link

import (
	"fmt"
	"os"

	"github.com/ShiftingDawn/Feylon/pkg/diag"
	"github.com/ShiftingDawn/Feylon/pkg/eval"
	"github.com/ShiftingDawn/Feylon/pkg/source"
	"github.com/ShiftingDawn/Feylon/pkg/token"
)

// Op is one of the linked-instruction opcodes from spec.md §3.
type Op int

const (
	PushInt Op = iota
	PushPtr
	PushMem
	PushBool
	PushString
	IntrinsicOp
	Function
	Call
	Return
	PushVars
	PopVars
	ApplyVar
	Jump
	JumpNeq
	Do
)

func (o Op) String() string {
	names := [...]string{
		"PushInt", "PushPtr", "PushMem", "PushBool", "PushString",
		"Intrinsic", "Function", "Call", "Return", "PushVars",
		"PopVars", "ApplyVar", "Jump", "JumpNeq", "Do",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "?"
}

// DataKind tags which operand field of Instruction.Data is meaningful.
type DataKind int

const (
	DataNone DataKind = iota
	DataJumpAddr
	DataCount
	DataIndex
)

// Instruction is a linked instruction: (word, self_index, instruction, data).
type Instruction struct {
	Word      source.Word
	SelfIndex int
	Op        Op
	DataKind  DataKind
	Data      int

	Intrinsic   token.Intrinsic
	PushIntVal  uint64
	PushBoolVal bool
	PushStrVal  string
}

// FunctionInfo is the linker's function table entry.
type FunctionInfo struct {
	EntryIndex int
	Signature  token.Signature
}

// Result is the linker's output.
type Result struct {
	Instructions    []Instruction
	Functions       map[string]FunctionInfo
	TotalMemorySize uint64
}

type openBlock struct {
	kind  token.Kind // If, Else, While, Do, Function, Var
	index int        // index of the patchable instruction (or loop head for While)
}

type linker struct {
	trace     bool
	evalRes   *eval.Result
	out       []Instruction
	blocks    []openBlock
	functions map[string]FunctionInfo
	varStack  []string
}

// Link runs the linker over the evaluator's output.
func Link(evalRes *eval.Result, trace ...bool) (*Result, *diag.Diagnostic) {
	t := false
	if len(trace) > 0 {
		t = trace[0]
	}
	l := &linker{trace: t, evalRes: evalRes, functions: map[string]FunctionInfo{}}
	if d := l.preScanFunctions(); d != nil {
		return nil, d
	}
	if d := l.run(); d != nil {
		return nil, d
	}
	if len(l.blocks) > 0 {
		b := l.blocks[len(l.blocks)-1]
		return nil, diag.New(diag.DanglingEnd, l.out[b.index].Word, "unclosed %v block at end of file", b.kind)
	}
	return &Result{Instructions: l.out, Functions: l.functions, TotalMemorySize: evalRes.TotalMemorySize}, nil
}

// preScanFunctions populates the function table with a placeholder entry
// for every declared function before any body is linked, so a
// recursive self-call resolves once the enclosing Function instruction
// is emitted. Entry indices are filled in for real when each Function
// token is linked.
func (l *linker) preScanFunctions() *diag.Diagnostic {
	for _, tok := range l.evalRes.Tokens {
		if tok.Kind == token.Function {
			if _, dup := l.functions[tok.Name]; dup {
				return diag.New(diag.DuplicateName, tok.Word, "function %q declared twice", tok.Name)
			}
			l.functions[tok.Name] = FunctionInfo{EntryIndex: -1, Signature: tok.Signature}
		}
	}
	return nil
}

func (l *linker) emit(ins Instruction) int {
	ins.SelfIndex = len(l.out)
	l.out = append(l.out, ins)
	if l.trace {
		fmt.Fprintf(os.Stderr, "link[%d]: %s\n", ins.SelfIndex, ins.Op)
	}
	return ins.SelfIndex
}

func (l *linker) run() *diag.Diagnostic {
	for _, tok := range l.evalRes.Tokens {
		switch tok.Kind {
		case token.PushInt:
			l.emit(Instruction{Word: tok.Word, Op: PushInt, PushIntVal: uint64(tok.IntVal)})
		case token.PushBool:
			l.emit(Instruction{Word: tok.Word, Op: PushBool, PushBoolVal: tok.BoolVal})
		case token.PushString:
			l.emit(Instruction{Word: tok.Word, Op: PushString, PushStrVal: tok.StrVal})

		case token.IntrinsicOp:
			l.emit(Instruction{Word: tok.Word, Op: IntrinsicOp, Intrinsic: tok.Intrinsic})

		case token.ConstRef:
			entry := l.evalRes.Constants[tok.Name]
			if entry.Type == token.Bool {
				l.emit(Instruction{Word: tok.Word, Op: PushBool, PushBoolVal: entry.Value != 0})
			} else {
				l.emit(Instruction{Word: tok.Word, Op: PushInt, PushIntVal: entry.Value})
			}

		case token.MemoryRef:
			mem := l.evalRes.Memories[tok.Name]
			l.emit(Instruction{Word: tok.Word, Op: PushMem, DataKind: DataIndex, Data: int(mem.Offset)})

		case token.Function:
			jumpIdx := l.emit(Instruction{Word: tok.Word, Op: Jump, DataKind: DataJumpAddr})
			entryIdx := l.emit(Instruction{Word: tok.Word, Op: Function})
			info := l.functions[tok.Name]
			info.EntryIndex = entryIdx
			l.functions[tok.Name] = info
			l.blocks = append(l.blocks, openBlock{kind: token.Function, index: jumpIdx})

		case token.FunctionRef:
			info, ok := l.functions[tok.Name]
			if !ok {
				return diag.New(diag.UndefinedReference, tok.Word, "undefined function %q", tok.Name)
			}
			l.emit(Instruction{Word: tok.Word, Op: Call, DataKind: DataJumpAddr, Data: info.EntryIndex})

		case token.Var:
			idx := l.emit(Instruction{Word: tok.Word, Op: PushVars, DataKind: DataCount, Data: len(tok.VarNames)})
			l.blocks = append(l.blocks, openBlock{kind: token.Var, index: idx})
			for _, n := range tok.VarNames {
				l.varStack = append(l.varStack, n)
			}

		case token.VarRef:
			idx := -1
			for i := len(l.varStack) - 1; i >= 0; i-- {
				if l.varStack[i] == tok.Name {
					idx = len(l.varStack) - 1 - i
					break
				}
			}
			if idx < 0 {
				return diag.New(diag.UndefinedReference, tok.Word, "undefined variable %q", tok.Name)
			}
			l.emit(Instruction{Word: tok.Word, Op: ApplyVar, DataKind: DataIndex, Data: idx})

		case token.If:
			idx := l.emit(Instruction{Word: tok.Word, Op: JumpNeq, DataKind: DataJumpAddr})
			l.blocks = append(l.blocks, openBlock{kind: token.If, index: idx})

		case token.Else:
			top, err := l.pop(token.If, tok.Word)
			if err != nil {
				return err
			}
			jumpIdx := l.emit(Instruction{Word: tok.Word, Op: Jump, DataKind: DataJumpAddr})
			l.out[top.index].Data = jumpIdx + 1
			l.blocks = append(l.blocks, openBlock{kind: token.Else, index: jumpIdx})

		case token.While:
			l.blocks = append(l.blocks, openBlock{kind: token.While, index: len(l.out)})

		case token.Do:
			whileB, err := l.pop(token.While, tok.Word)
			if err != nil {
				return err
			}
			idx := l.emit(Instruction{Word: tok.Word, Op: Do, DataKind: DataJumpAddr, Data: whileB.index})
			l.blocks = append(l.blocks, openBlock{kind: token.Do, index: idx})

		case token.End:
			if len(l.blocks) == 0 {
				return diag.New(diag.DanglingEnd, tok.Word, "'end' without matching block opener")
			}
			top := l.blocks[len(l.blocks)-1]
			l.blocks = l.blocks[:len(l.blocks)-1]
			switch top.kind {
			case token.Function:
				l.emit(Instruction{Word: tok.Word, Op: Return})
				l.out[top.index].Data = len(l.out)
			case token.Var:
				count := l.out[top.index].Data
				l.emit(Instruction{Word: tok.Word, Op: PopVars, DataKind: DataCount, Data: count})
				l.varStack = l.varStack[:len(l.varStack)-count]
			case token.If, token.Else:
				l.out[top.index].Data = len(l.out)
			case token.Do:
				loopHead := l.out[top.index].Data
				l.out[top.index].Data = len(l.out) + 1
				l.emit(Instruction{Word: tok.Word, Op: Jump, DataKind: DataJumpAddr, Data: loopHead})
			default:
				return diag.New(diag.InvalidEndTarget, tok.Word, "'end' references an invalid block")
			}
		}
	}
	return nil
}

func (l *linker) pop(kind token.Kind, at source.Word) (openBlock, *diag.Diagnostic) {
	if len(l.blocks) == 0 || l.blocks[len(l.blocks)-1].kind != kind {
		return openBlock{}, diag.New(danglingCodeFor(kind), at, "unmatched block closer")
	}
	top := l.blocks[len(l.blocks)-1]
	l.blocks = l.blocks[:len(l.blocks)-1]
	return top, nil
}

// danglingCodeFor names the diagnostic code for a closer with no matching
// opener of kind, per spec.md §7's distinct DANGLING_ELSE/DANGLING_DO codes.
func danglingCodeFor(kind token.Kind) diag.Code {
	switch kind {
	case token.While:
		return diag.DanglingDo
	case token.If:
		return diag.DanglingElse
	default:
		return diag.DanglingElse
	}
}
