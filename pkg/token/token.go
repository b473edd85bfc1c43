// Package token implements spec.md §4.2: the tokenizer stage that turns
// a word list into a stream of classified tokens plus populated name
// tables, splicing imported files' words in along the way.
//
// Dispatch and declaration handling are grounded on
// _examples/original_source/src/tokenizer.rs for the Op-enum shape and
// on the teacher's (rmay-nuxvm pkg/lux.Compiler) map-based keyword
// dispatch (builtins/combinators) for how a flat keyword table drives a
// big switch.
package token

import "github.com/ShiftingDawn/Feylon/pkg/source"

// DataType is one of the three fixed types named in spec.md §3.
type DataType int

const (
	Int DataType = iota
	Ptr
	Bool
)

func (t DataType) String() string {
	switch t {
	case Int:
		return "int"
	case Ptr:
		return "ptr"
	case Bool:
		return "bool"
	default:
		return "?"
	}
}

// Intrinsic is one of the closed set of built-in operations from
// spec.md §3.
type Intrinsic int

const (
	Dump Intrinsic = iota
	Drop
	Dup
	Over
	Swap
	Rot

	Add
	Sub
	Mul
	Div
	Mod

	Shl
	Shr
	BitAnd
	BitOr
	BitXor

	Eq
	Neq
	Lt
	Gt
	Le
	Ge

	Load8
	Store8
	Load16
	Store16
	Load32
	Store32
	Load64
	Store64
)

// Kind tags a Token's operation, mirroring the Op tagged-variant from
// spec.md §3.
type Kind int

const (
	PushInt Kind = iota
	PushBool
	PushString
	IntrinsicOp
	Const
	ConstRef
	Memory
	MemoryRef
	Function
	FunctionRef
	Var
	VarRef
	If
	Else
	While
	Do
	End
)

// TypedPos is a declared-type position in a function signature.
type TypedPos struct {
	Word source.Word
	Type DataType
}

// Signature is a function's (ins, outs) declared type lists.
type Signature struct {
	Ins  []TypedPos
	Outs []TypedPos
}

// Token is (word, op): a word classified with an operation.
type Token struct {
	Word source.Word
	Kind Kind

	IntVal    uint32
	BoolVal   bool
	StrVal    string
	Intrinsic Intrinsic
	Name      string

	// Signature is populated on Function tokens.
	Signature Signature
	// VarNames is populated on Var tokens: the ordered local names the
	// block declares.
	VarNames []string
}
