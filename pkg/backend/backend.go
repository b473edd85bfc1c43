// Package backend implements the one fully-specified output sink from
// spec.md §6: the ".cfc" string representation, one linked instruction
// per line in the form "[<index>]<mnemonic>(<operand>) //<source-word-location>".
//
// Grounded on _examples/original_source/src/compiler_string.rs by name
// and purpose; the family of sibling backends in compiler_asm_elf64.rs,
// compiler_asm_win64.rs, compiler_fasm.rs, compiler_fasm_win_amd64.rs
// establishes the "backend takes the linked stream, emits text" shape
// captured here by the Emitter interface, even though those native
// targets remain out of scope (spec.md §1).
package backend

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/ShiftingDawn/Feylon/pkg/link"
	"github.com/ShiftingDawn/Feylon/pkg/token"
)

// Emitter turns a linked program into backend-specific output. The
// string representation below is the only implementation in scope;
// the interface exists so a real assembly backend could be added
// without touching the pipeline.
type Emitter interface {
	Emit(w io.Writer, prog *link.Result) error
}

// StringEmitter implements the .cfc text format.
type StringEmitter struct{}

func (StringEmitter) Emit(w io.Writer, prog *link.Result) error {
	bw := bufio.NewWriter(w)
	for _, ins := range prog.Instructions {
		operand := operandOf(ins)
		mnemonic := ins.Op.String()
		if _, err := fmt.Fprintf(bw, "[%d]%s(%s) //%s\n", ins.SelfIndex, mnemonic, operand, ins.Word); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func operandOf(ins link.Instruction) string {
	switch ins.Op {
	case link.PushInt:
		return strconv.FormatUint(ins.PushIntVal, 10)
	case link.PushBool:
		return strconv.FormatBool(ins.PushBoolVal)
	case link.PushString:
		return strconv.Quote(ins.PushStrVal)
	case link.PushMem:
		return strconv.Itoa(ins.Data)
	case link.IntrinsicOp:
		return token.IntrinsicName(ins.Intrinsic)
	case link.Jump, link.JumpNeq, link.Do, link.Call:
		return strconv.Itoa(ins.Data)
	case link.Function:
		return ""
	case link.PushVars, link.PopVars:
		return strconv.Itoa(ins.Data)
	case link.ApplyVar:
		return strconv.Itoa(ins.Data)
	default:
		return ""
	}
}
