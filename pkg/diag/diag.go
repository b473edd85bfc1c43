// Package diag implements the fatal-error sum type called for by
// spec.md §9's first design note: every pipeline stage returns a
// (result, *Diagnostic) pair instead of panicking or calling os.Exit.
// Formatting is grounded on CWBudde-go-dws/internal/errors.CompilerError.
package diag

import (
	"fmt"
	"strings"

	"github.com/ShiftingDawn/Feylon/pkg/source"
)

// Code names one of the categorized error conditions from spec.md §7.
type Code string

const (
	InvalidCharacterLiteral Code = "INVALID_CHARACTER_LITERAL"
	UnterminatedString      Code = "UNTERMINATED_STRING"

	UnknownWord           Code = "UNKNOWN_WORD"
	IncompleteControl     Code = "INCOMPLETE_CONTROL"
	IncompleteConst       Code = "INCOMPLETE_CONST"
	IncompleteMemory      Code = "INCOMPLETE_MEMORY"
	IncompleteFunction    Code = "INCOMPLETE_FUNCTION"
	BadFunctionSignature  Code = "BAD_FUNCTION_SIGNATURE"
	BadTypeName           Code = "BAD_TYPE_NAME"
	DuplicateName         Code = "DUPLICATE_NAME"
	ImportNotFound        Code = "IMPORT_NOT_FOUND"

	UndefinedConstant          Code = "UNDEFINED_CONSTANT"
	IllegalIntrinsicInConstexpr Code = "ILLEGAL_INTRINSIC_IN_CONSTEXPR"
	ConstexprNotSingleValue     Code = "CONSTEXPR_NOT_SINGLE_VALUE"
	IllegalTokenInConstexpr     Code = "ILLEGAL_TOKEN_IN_CONSTEXPR"

	DanglingEnd       Code = "DANGLING_END"
	DanglingElse      Code = "DANGLING_ELSE"
	DanglingDo        Code = "DANGLING_DO"
	UndefinedReference Code = "UNDEFINED_REFERENCE"
	InvalidEndTarget  Code = "INVALID_END_TARGET"

	ArityUnderflow     Code = "ARITY_UNDERFLOW"
	TypeMismatch       Code = "TYPE_MISMATCH"
	UnhandledStackData Code = "UNHANDLED_STACK_DATA"
	MissingStackData   Code = "MISSING_STACK_DATA"
	LoopMutatesStack   Code = "LOOP_MUTATES_STACK"
)

// Diagnostic is a fatal, located compiler error. Related, when non-nil,
// points at a secondary "defined here" location for the conflicting
// declaration (spec.md §7).
type Diagnostic struct {
	Code    Code
	Message string
	Word    source.Word
	Related *Diagnostic
}

// New builds a Diagnostic with no secondary location.
func New(code Code, word source.Word, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Word: word, Message: fmt.Sprintf(format, args...)}
}

// WithRelated attaches a secondary "defined here" diagnostic.
func (d *Diagnostic) WithRelated(word source.Word, format string, args ...any) *Diagnostic {
	d.Related = &Diagnostic{Code: d.Code, Word: word, Message: fmt.Sprintf(format, args...)}
	return d
}

func (d *Diagnostic) Error() string {
	return d.Format(nil, false)
}

// Format renders the diagnostic as a header line, an optional quoted
// source line with a caret under the offending column, the message, and
// (if present) the related diagnostic rendered the same way. lines, when
// non-nil, is the offending file's source split on "\n"; pass nil to
// render only the header and message.
func (d *Diagnostic) Format(lines []string, color bool) string {
	var b strings.Builder
	d.render(&b, lines, color)
	if d.Related != nil {
		b.WriteString("\n")
		d.Related.render(&b, lines, color)
	}
	return b.String()
}

func (d *Diagnostic) render(b *strings.Builder, lines []string, color bool) {
	fmt.Fprintf(b, "Error [%s] in %s\n", d.Code, d.Word)
	if lines != nil && d.Word.Row >= 0 && d.Word.Row < len(lines) {
		line := lines[d.Word.Row]
		fmt.Fprintf(b, "%4d | %s\n", d.Word.Row+1, line)
		pad := strings.Repeat(" ", 7+d.Word.Col)
		caret := pad + "^"
		if color {
			caret = "\033[1;31m" + caret + "\033[0m"
		}
		b.WriteString(caret + "\n")
	}
	msg := d.Message
	if color {
		msg = "\033[1m" + msg + "\033[0m"
	}
	b.WriteString(msg)
}
