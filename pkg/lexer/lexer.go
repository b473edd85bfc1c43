// Package lexer implements spec.md §4.1: turning source text into a flat
// ordered sequence of located words. Grounded on
// _examples/original_source/src/lexer.rs (parse_lines_into_words,
// parse_char, parse_string) for exact semantics, restructured into the
// teacher's (rmay-nuxvm pkg/lux.Lexer) cursor-based struct shape.
package lexer

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/ShiftingDawn/Feylon/pkg/diag"
	"github.com/ShiftingDawn/Feylon/pkg/source"
)

// Lexer walks one file's source text, producing Words one at a time.
type Lexer struct {
	file  string
	input []rune
	pos   int
	row   int
	col   int
	trace bool
}

// New builds a Lexer over the given file's source text. An optional
// trailing trace flag enables step tracing to stderr, matching the
// teacher's NewLexer(input string, trace ...bool) signature.
func New(file, input string, trace ...bool) *Lexer {
	t := false
	if len(trace) > 0 {
		t = trace[0]
	}
	return &Lexer{file: file, input: []rune(input), trace: t}
}

// Lex runs a Lexer to completion and returns every word it produced.
func Lex(file, input string, trace ...bool) ([]source.Word, *diag.Diagnostic) {
	l := New(file, input, trace...)
	var words []source.Word
	for {
		w, ok, d := l.Next()
		if d != nil {
			return nil, d
		}
		if !ok {
			return words, nil
		}
		words = append(words, w)
	}
}

func (l *Lexer) at(i int) rune {
	if l.pos+i >= len(l.input) {
		return 0
	}
	return l.input[l.pos+i]
}

func (l *Lexer) peek() rune { return l.at(0) }

func (l *Lexer) advance() rune {
	r := l.at(0)
	if r == 0 {
		return 0
	}
	l.pos++
	if r == '\n' {
		l.row++
		l.col = 0
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipIgnorable() {
	for {
		r := l.peek()
		if unicode.IsSpace(r) {
			l.advance()
			continue
		}
		if r == '/' && l.at(1) == '/' {
			for l.peek() != 0 && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

// Next returns the next word, or ok=false at end of input.
func (l *Lexer) Next() (source.Word, bool, *diag.Diagnostic) {
	l.skipIgnorable()
	if l.peek() == 0 {
		return source.Word{}, false, nil
	}
	row, col := l.row, l.col
	switch l.peek() {
	case '\'':
		text, d := l.readChar()
		if d != nil {
			return source.Word{}, false, d
		}
		return source.New(l.file, row, col, text), true, nil
	case '"':
		text, d := l.readString()
		if d != nil {
			return source.Word{}, false, d
		}
		return source.New(l.file, row, col, text), true, nil
	default:
		text := l.readPlain()
		if l.trace {
			fmt.Fprintf(os.Stderr, "lexer: %s:%d:%d %q\n", l.file, row+1, col+1, text)
		}
		return source.New(l.file, row, col, text), true, nil
	}
}

func (l *Lexer) readPlain() string {
	var b strings.Builder
	for {
		r := l.peek()
		if r == 0 || unicode.IsSpace(r) {
			break
		}
		if r == '/' && l.at(1) == '/' {
			break
		}
		b.WriteRune(l.advance())
	}
	return b.String()
}

// readChar handles 'X' and '\X' character literals, emitting a word whose
// text is the decimal codepoint, per spec.md §4.1.
func (l *Lexer) readChar() (string, *diag.Diagnostic) {
	startRow, startCol := l.row, l.col
	l.advance() // opening '
	var value rune
	switch l.peek() {
	case 0, '\n':
		return "", l.invalidChar(startRow, startCol)
	case '\\':
		l.advance()
		esc := l.advance()
		switch esc {
		case 'n':
			value = '\n'
		case 't':
			value = '\t'
		case 'r':
			value = '\r'
		case '0':
			value = 0
		case '\\':
			value = '\\'
		case '\'':
			value = '\''
		default:
			value = esc
		}
	default:
		value = l.advance()
	}
	if l.peek() != '\'' {
		return "", l.invalidChar(startRow, startCol)
	}
	l.advance() // closing '
	return fmt.Sprintf("%d", value), nil
}

func (l *Lexer) invalidChar(row, col int) *diag.Diagnostic {
	w := source.New(l.file, row, col, "'")
	return diag.New(diag.InvalidCharacterLiteral, w, "invalid character literal")
}

// readString handles double-quoted strings that may span lines; the
// emitted word's text is the raw quoted form including surrounding
// quotes — the tokenizer strips them (spec.md §4.1).
func (l *Lexer) readString() (string, *diag.Diagnostic) {
	startRow, startCol := l.row, l.col
	var b strings.Builder
	b.WriteRune(l.advance()) // opening "
	for {
		r := l.peek()
		if r == 0 {
			w := source.New(l.file, startRow, startCol, b.String())
			return "", diag.New(diag.UnterminatedString, w, "unterminated string literal")
		}
		if r == '"' {
			b.WriteRune(l.advance())
			break
		}
		if r == '\\' && l.at(1) == '"' {
			b.WriteRune(l.advance())
			b.WriteRune(l.advance())
			continue
		}
		b.WriteRune(l.advance())
	}
	return b.String(), nil
}
