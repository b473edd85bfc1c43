// Package vm implements spec.md §4.6: the reference interpreter. It
// executes a linked instruction stream over a runtime value stack, a
// call stack, a variable stack, linear memory, and a string pool.
//
// Grounded on the teacher's (rmay-nuxvm pkg/vm.VM) error-returning
// per-operation methods, ExecuteInstruction dispatch switch, and
// trace-gated stderr logging — repurposed here from a raw []byte
// bytecode stream decoding 32-bit immediates to a []link.Instruction
// stream whose operands are already resolved.
package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ShiftingDawn/Feylon/pkg/link"
	"github.com/ShiftingDawn/Feylon/pkg/token"
)

// MinStringPoolSize is the minimum byte size of the string pool, per
// spec.md §4.6 ("at least 65536 bytes").
const MinStringPoolSize = 65536

// VM is one interpreter invocation's full runtime state.
type VM struct {
	program []link.Instruction

	stack    []uint64
	callStk  []int
	varStack []uint64

	memory []byte
	pool   []byte
	poolAt int

	pc int

	out   io.Writer
	trace bool
}

// New builds a VM over a linked program. out receives Dump output
// (defaulting to os.Stdout when nil). An optional trailing trace flag
// enables step tracing to stderr, matching the teacher's
// NewVM(program []byte, trace ...bool) signature.
func New(program *link.Result, out io.Writer, trace ...bool) *VM {
	t := false
	if len(trace) > 0 {
		t = trace[0]
	}
	if out == nil {
		out = os.Stdout
	}
	return &VM{
		program: program.Instructions,
		memory:  make([]byte, program.TotalMemorySize),
		pool:    make([]byte, MinStringPoolSize),
		out:     out,
		trace:   t,
	}
}

// Stack returns a copy of the current value stack, bottom first.
func (v *VM) Stack() []uint64 {
	return append([]uint64{}, v.stack...)
}

// Run executes the program to completion.
func (v *VM) Run() error {
	for v.pc < len(v.program) {
		if err := v.step(); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) push(val uint64) {
	v.stack = append(v.stack, val)
}

func (v *VM) pop() (uint64, error) {
	if len(v.stack) == 0 {
		return 0, fmt.Errorf("pc=%d: stack underflow", v.pc)
	}
	val := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return val, nil
}

func (v *VM) step() error {
	ins := v.program[v.pc]
	if v.trace {
		fmt.Fprintf(os.Stderr, "vm[%d]: %s stack=%v\n", v.pc, ins.Op, v.stack)
	}

	switch ins.Op {
	case link.PushInt:
		v.push(ins.PushIntVal)
	case link.PushPtr, link.PushMem:
		v.push(uint64(ins.Data))
	case link.PushBool:
		if ins.PushBoolVal {
			v.push(1)
		} else {
			v.push(0)
		}
	case link.PushString:
		b := []byte(ins.PushStrVal)
		if v.poolAt+len(b) > len(v.pool) {
			return fmt.Errorf("pc=%d: string pool exhausted", v.pc)
		}
		offset := v.poolAt
		copy(v.pool[offset:], b)
		v.poolAt += len(b)
		v.push(uint64(len(b)))
		v.push(uint64(offset))

	case link.IntrinsicOp:
		if err := v.execIntrinsic(ins); err != nil {
			return err
		}

	case link.Function:
		// no-op entry marker

	case link.Call:
		v.callStk = append(v.callStk, v.pc+1)
		v.pc = ins.Data
		return nil

	case link.Return:
		if len(v.callStk) == 0 {
			return fmt.Errorf("pc=%d: return with empty call stack", v.pc)
		}
		v.pc = v.callStk[len(v.callStk)-1]
		v.callStk = v.callStk[:len(v.callStk)-1]
		return nil

	case link.PushVars:
		popped := make([]uint64, 0, ins.Data)
		for i := 0; i < ins.Data; i++ {
			val, err := v.pop()
			if err != nil {
				return err
			}
			popped = append(popped, val)
		}
		for i, j := 0, len(popped)-1; i < j; i, j = i+1, j-1 {
			popped[i], popped[j] = popped[j], popped[i]
		}
		v.varStack = append(v.varStack, popped...)

	case link.PopVars:
		if ins.Data > len(v.varStack) {
			return fmt.Errorf("pc=%d: popping more variables than are in scope", v.pc)
		}
		v.varStack = v.varStack[:len(v.varStack)-ins.Data]

	case link.ApplyVar:
		idx := len(v.varStack) - 1 - ins.Data
		if idx < 0 || idx >= len(v.varStack) {
			return fmt.Errorf("pc=%d: variable index out of range", v.pc)
		}
		v.push(v.varStack[idx])

	case link.Jump:
		v.pc = ins.Data
		return nil

	case link.JumpNeq:
		cond, err := v.pop()
		if err != nil {
			return err
		}
		if cond == 0 {
			v.pc = ins.Data
		} else {
			v.pc++
		}
		return nil

	case link.Do:
		cond, err := v.pop()
		if err != nil {
			return err
		}
		if cond == 0 {
			v.pc = ins.Data
		} else {
			v.pc++
		}
		return nil
	}

	v.pc++
	return nil
}

func (v *VM) execIntrinsic(ins link.Instruction) error {
	switch ins.Intrinsic {
	case token.Dump:
		a, err := v.pop()
		if err != nil {
			return err
		}
		fmt.Fprintf(v.out, "%d\n", int64(a))
	case token.Drop:
		_, err := v.pop()
		return err
	case token.Dup:
		a, err := v.pop()
		if err != nil {
			return err
		}
		v.push(a)
		v.push(a)
	case token.Over:
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		v.push(a)
		v.push(b)
		v.push(a)
	case token.Swap:
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		v.push(b)
		v.push(a)
	case token.Rot:
		c, err := v.pop()
		if err != nil {
			return err
		}
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		v.push(b)
		v.push(c)
		v.push(a)

	case token.Add, token.Sub, token.Mul, token.Div, token.Mod,
		token.Shl, token.Shr, token.BitAnd, token.BitOr, token.BitXor:
		return v.arith(ins)

	case token.Eq, token.Neq, token.Lt, token.Gt, token.Le, token.Ge:
		return v.compare(ins)

	case token.Load8, token.Load16, token.Load32, token.Load64:
		return v.load(ins)
	case token.Store8, token.Store16, token.Store32, token.Store64:
		return v.store(ins)
	}
	return nil
}

func (v *VM) arith(ins link.Instruction) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	var r uint64
	switch ins.Intrinsic {
	case token.Add:
		r = a + b
	case token.Sub:
		r = a - b
	case token.Mul:
		r = a * b
	case token.Div:
		if b == 0 {
			return fmt.Errorf("pc=%d: division by zero", v.pc)
		}
		r = a / b
	case token.Mod:
		if b == 0 {
			return fmt.Errorf("pc=%d: modulo by zero", v.pc)
		}
		r = a % b
	case token.Shl:
		r = a << (b & 63)
	case token.Shr:
		r = a >> (b & 63)
	case token.BitAnd:
		r = a & b
	case token.BitOr:
		r = a | b
	case token.BitXor:
		r = a ^ b
	}
	v.push(r)
	return nil
}

func (v *VM) compare(ins link.Instruction) error {
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	var res bool
	switch ins.Intrinsic {
	case token.Eq:
		res = a == b
	case token.Neq:
		res = a != b
	case token.Lt:
		res = a < b
	case token.Gt:
		res = a > b
	case token.Le:
		res = a <= b
	case token.Ge:
		res = a >= b
	}
	if res {
		v.push(1)
	} else {
		v.push(0)
	}
	return nil
}

func (v *VM) load(ins link.Instruction) error {
	ptr, err := v.pop()
	if err != nil {
		return err
	}
	width := widthOf(ins.Intrinsic)
	if int(ptr)+width > len(v.memory) {
		return fmt.Errorf("pc=%d: out-of-bounds memory read at %d", v.pc, ptr)
	}
	buf := v.memory[ptr : int(ptr)+width]
	var val uint64
	switch width {
	case 1:
		val = uint64(buf[0])
	case 2:
		val = uint64(binary.BigEndian.Uint16(buf))
	case 4:
		val = uint64(binary.BigEndian.Uint32(buf))
	case 8:
		val = binary.BigEndian.Uint64(buf)
	}
	v.push(val)
	return nil
}

func (v *VM) store(ins link.Instruction) error {
	ptr, err := v.pop()
	if err != nil {
		return err
	}
	val, err := v.pop()
	if err != nil {
		return err
	}
	width := widthOf(ins.Intrinsic)
	if int(ptr)+width > len(v.memory) {
		return fmt.Errorf("pc=%d: out-of-bounds memory write at %d", v.pc, ptr)
	}
	buf := v.memory[ptr : int(ptr)+width]
	switch width {
	case 1:
		buf[0] = byte(val)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(val))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(val))
	case 8:
		binary.BigEndian.PutUint64(buf, val)
	}
	return nil
}

func widthOf(i token.Intrinsic) int {
	switch i {
	case token.Load8, token.Store8:
		return 1
	case token.Load16, token.Store16:
		return 2
	case token.Load32, token.Store32:
		return 4
	case token.Load64, token.Store64:
		return 8
	}
	return 0
}
