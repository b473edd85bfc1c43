package token

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ShiftingDawn/Feylon/pkg/diag"
	"github.com/ShiftingDawn/Feylon/pkg/lexer"
	"github.com/ShiftingDawn/Feylon/pkg/source"
)

// FunctionEntry is a tokenizer-time record of a declared function: its
// defining word (for duplicate/"defined here" diagnostics) and its
// parsed signature.
type FunctionEntry struct {
	Word      source.Word
	Signature Signature
}

// Tables holds the side tables the tokenizer accumulates: declared
// constants, memories, and functions (spec.md §4.2). Variable names are
// not retained here — they are scoped to their block and resolved
// during tokenization itself.
type Tables struct {
	Constants map[string]source.Word
	Memories  map[string]source.Word
	Functions map[string]*FunctionEntry
}

func newTables() *Tables {
	return &Tables{
		Constants: map[string]source.Word{},
		Memories:  map[string]source.Word{},
		Functions: map[string]*FunctionEntry{},
	}
}

type blockKind int

const (
	blockIf blockKind = iota
	blockElse
	blockWhile
	blockDo
	blockConst
	blockMemory
	blockFunction
	blockVar
)

type blockEntry struct {
	kind     blockKind
	varCount int // for blockVar: how many names this block pushed
}

type tokenizer struct {
	trace     bool
	tables    *Tables
	varScope  []string
	blocks    []blockEntry
	visited   map[string]bool
	out       []Token
}

// Tokenize runs the tokenizer over one file's already-lexed words.
// importDir is the directory the entry file's relative `import` paths
// are resolved against (normally its own directory); an `import` inside
// an imported file is resolved against that file's directory.
func Tokenize(file string, words []source.Word, importDir string, trace ...bool) ([]Token, *Tables, *diag.Diagnostic) {
	t := false
	if len(trace) > 0 {
		t = trace[0]
	}
	tz := &tokenizer{trace: t, tables: newTables(), visited: map[string]bool{}}
	d := tz.run(words, importDir)
	if d != nil {
		return nil, nil, d
	}
	if len(tz.blocks) > 0 {
		return nil, nil, diag.New(diag.IncompleteControl, source.New(file, 0, 0, ""), "unclosed block at end of file")
	}
	return tz.out, tz.tables, nil
}

func (tz *tokenizer) emit(tok Token) {
	if tz.trace {
		fmt.Fprintf(os.Stderr, "token: %s kind=%d\n", tok.Word, tok.Kind)
	}
	tz.out = append(tz.out, tok)
}

func (tz *tokenizer) run(words []source.Word, importDir string) *diag.Diagnostic {
	queue := words
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]

		switch {
		case isUnsignedInt(w.Text):
			n, _ := strconv.ParseUint(w.Text, 10, 32)
			tz.emit(Token{Word: w, Kind: PushInt, IntVal: uint32(n)})

		case len(w.Text) >= 2 && strings.HasPrefix(w.Text, `"`) && strings.HasSuffix(w.Text, `"`):
			tz.emit(Token{Word: w, Kind: PushString, StrVal: w.Text[1 : len(w.Text)-1]})

		case w.Text == "import":
			if len(queue) == 0 || !isStringLiteralWord(queue[0]) {
				return diag.New(diag.IncompleteControl, w, "'import' requires a string path")
			}
			pathWord := queue[0]
			queue = queue[1:]
			path := pathWord.Text[1 : len(pathWord.Text)-1]
			dir := importDir
			if tz.visited[pathWord.File] {
				// pathWord came from an imported file, whose words carry
				// its resolved path as their File.
				dir = filepath.Dir(pathWord.File)
			}
			resolved := path
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(dir, path)
			}
			if tz.visited[resolved] {
				continue
			}
			tz.visited[resolved] = true
			contents, err := os.ReadFile(resolved)
			if err != nil {
				return diag.New(diag.ImportNotFound, pathWord, "cannot import %q: %v", path, err)
			}
			importedWords, ld := lexer.Lex(resolved, string(contents), tz.trace)
			if ld != nil {
				return ld
			}
			queue = append(append([]source.Word{}, importedWords...), queue...)

		case w.Text == "true":
			tz.emit(Token{Word: w, Kind: PushBool, BoolVal: true})
		case w.Text == "false":
			tz.emit(Token{Word: w, Kind: PushBool, BoolVal: false})

		case isIntrinsic(w.Text):
			tz.emit(Token{Word: w, Kind: IntrinsicOp, Intrinsic: intrinsicKeywords[w.Text]})

		case isControlKind(w.Text, If):
			if len(queue) == 0 {
				return diag.New(diag.IncompleteControl, w, "'if' requires a body")
			}
			tz.blocks = append(tz.blocks, blockEntry{kind: blockIf})
			tz.emit(Token{Word: w, Kind: If})

		case isControlKind(w.Text, Else):
			if len(tz.blocks) == 0 || tz.blocks[len(tz.blocks)-1].kind != blockIf {
				return diag.New(diag.DanglingElse, w, "'else' without matching 'if'")
			}
			if len(queue) == 0 {
				return diag.New(diag.IncompleteControl, w, "'else' requires a body")
			}
			tz.blocks[len(tz.blocks)-1] = blockEntry{kind: blockElse}
			tz.emit(Token{Word: w, Kind: Else})

		case isControlKind(w.Text, While):
			if len(queue) == 0 {
				return diag.New(diag.IncompleteControl, w, "'while' requires a condition")
			}
			tz.blocks = append(tz.blocks, blockEntry{kind: blockWhile})
			tz.emit(Token{Word: w, Kind: While})

		case isControlKind(w.Text, Do):
			if len(tz.blocks) == 0 || tz.blocks[len(tz.blocks)-1].kind != blockWhile {
				return diag.New(diag.DanglingDo, w, "'do' without matching 'while'")
			}
			if len(queue) == 0 {
				return diag.New(diag.IncompleteControl, w, "'do' requires a body")
			}
			tz.blocks[len(tz.blocks)-1] = blockEntry{kind: blockDo}
			tz.emit(Token{Word: w, Kind: Do})

		case w.Text == "const":
			name, err := tz.declName(&queue, w, "const")
			if err != nil {
				return err
			}
			if prev, dup := tz.tables.Constants[name.Text]; dup {
				return diag.New(diag.DuplicateName, name, "constant %q already declared", name.Text).
					WithRelated(prev, "%q first declared here", name.Text)
			}
			tz.tables.Constants[name.Text] = name
			tz.blocks = append(tz.blocks, blockEntry{kind: blockConst})
			tz.emit(Token{Word: w, Kind: Const, Name: name.Text})

		case w.Text == "memory":
			name, err := tz.declName(&queue, w, "memory")
			if err != nil {
				return err
			}
			if prev, dup := tz.tables.Memories[name.Text]; dup {
				return diag.New(diag.DuplicateName, name, "memory %q already declared", name.Text).
					WithRelated(prev, "%q first declared here", name.Text)
			}
			tz.tables.Memories[name.Text] = name
			tz.blocks = append(tz.blocks, blockEntry{kind: blockMemory})
			tz.emit(Token{Word: w, Kind: Memory, Name: name.Text})

		case w.Text == "function":
			name, sig, err := tz.declFunction(&queue, w)
			if err != nil {
				return err
			}
			if prev, dup := tz.tables.Functions[name.Text]; dup {
				return diag.New(diag.DuplicateName, name, "function %q already declared", name.Text).
					WithRelated(prev.Word, "%q first declared here", name.Text)
			}
			tz.tables.Functions[name.Text] = &FunctionEntry{Word: name, Signature: sig}
			tz.blocks = append(tz.blocks, blockEntry{kind: blockFunction})
			tz.emit(Token{Word: w, Kind: Function, Name: name.Text, Signature: sig})

		case w.Text == "var":
			names, err := tz.declVarNames(&queue, w)
			if err != nil {
				return err
			}
			tz.varScope = append(tz.varScope, names...)
			tz.blocks = append(tz.blocks, blockEntry{kind: blockVar, varCount: len(names)})
			tz.emit(Token{Word: w, Kind: Var, VarNames: names})

		case isControlKind(w.Text, End):
			if len(tz.blocks) == 0 {
				return diag.New(diag.DanglingEnd, w, "'end' without matching block opener")
			}
			top := tz.blocks[len(tz.blocks)-1]
			tz.blocks = tz.blocks[:len(tz.blocks)-1]
			if top.kind == blockVar {
				tz.varScope = tz.varScope[:len(tz.varScope)-top.varCount]
			}
			tz.emit(Token{Word: w, Kind: End})

		default:
			if _, ok := tz.tables.Constants[w.Text]; ok {
				tz.emit(Token{Word: w, Kind: ConstRef, Name: w.Text})
				continue
			}
			if _, ok := tz.tables.Memories[w.Text]; ok {
				tz.emit(Token{Word: w, Kind: MemoryRef, Name: w.Text})
				continue
			}
			if _, ok := tz.tables.Functions[w.Text]; ok {
				tz.emit(Token{Word: w, Kind: FunctionRef, Name: w.Text})
				continue
			}
			if tz.hasVar(w.Text) {
				tz.emit(Token{Word: w, Kind: VarRef, Name: w.Text})
				continue
			}
			return diag.New(diag.UnknownWord, w, "unknown word %q", w.Text)
		}
	}
	return nil
}

func (tz *tokenizer) hasVar(name string) bool {
	for i := len(tz.varScope) - 1; i >= 0; i-- {
		if tz.varScope[i] == name {
			return true
		}
	}
	return false
}

// declName consumes the single following word as a const/memory name.
func (tz *tokenizer) declName(queue *[]source.Word, kw source.Word, what string) (source.Word, *diag.Diagnostic) {
	q := *queue
	if len(q) == 0 {
		code := diag.IncompleteConst
		if what == "memory" {
			code = diag.IncompleteMemory
		}
		return source.Word{}, diag.New(code, kw, "'%s' requires a name", what)
	}
	name := q[0]
	*queue = q[1:]
	return name, nil
}

// declFunction parses `<name> (<ins...> -> <outs...>)`.
func (tz *tokenizer) declFunction(queue *[]source.Word, kw source.Word) (source.Word, Signature, *diag.Diagnostic) {
	q := *queue
	if len(q) == 0 {
		return source.Word{}, Signature{}, diag.New(diag.IncompleteFunction, kw, "'function' requires a name")
	}
	name := q[0]
	q = q[1:]
	if len(q) == 0 || !strings.HasPrefix(q[0].Text, "(") {
		*queue = q
		return source.Word{}, Signature{}, diag.New(diag.BadFunctionSignature, name, "function %q requires a signature", name.Text)
	}

	// Collect signature words until one ends with ")", tolerating
	// arbitrary internal whitespace per spec.md §4.2 rule 7.
	var sigWords []string
	arrowIdx := -1
	i := 0
	for ; i < len(q); i++ {
		tok := q[i].Text
		if i == 0 {
			tok = strings.TrimPrefix(tok, "(")
		}
		closed := strings.HasSuffix(tok, ")")
		if closed {
			tok = strings.TrimSuffix(tok, ")")
		}
		if tok == "->" {
			arrowIdx = len(sigWords)
		} else if tok != "" {
			sigWords = append(sigWords, tok)
		}
		if closed {
			i++
			break
		}
	}
	q = q[i:]
	*queue = q
	if arrowIdx < 0 {
		return source.Word{}, Signature{}, diag.New(diag.BadFunctionSignature, name, "function %q signature missing '->'", name.Text)
	}

	sig := Signature{}
	for idx, tname := range sigWords {
		dt, ok := typeKeywords[tname]
		if !ok {
			return source.Word{}, Signature{}, diag.New(diag.BadTypeName, name, "unknown type %q in signature of %q", tname, name.Text)
		}
		tp := TypedPos{Word: name, Type: dt}
		if idx < arrowIdx {
			sig.Ins = append(sig.Ins, tp)
		} else {
			sig.Outs = append(sig.Outs, tp)
		}
	}
	return name, sig, nil
}

// declVarNames consumes `<name1> <name2> ... in`: the tokenizer-level
// convention this repo uses to delimit a variable block's name list from
// its body, since spec.md fixes the abstract Var(block-id) token but not
// a concrete source syntax for where the name list ends (see DESIGN.md).
func (tz *tokenizer) declVarNames(queue *[]source.Word, kw source.Word) ([]string, *diag.Diagnostic) {
	q := *queue
	var names []string
	for {
		if len(q) == 0 {
			return nil, diag.New(diag.IncompleteControl, kw, "'var' block missing 'in'")
		}
		if q[0].Text == "in" {
			q = q[1:]
			break
		}
		names = append(names, q[0].Text)
		q = q[1:]
	}
	*queue = q
	if len(names) == 0 {
		return nil, diag.New(diag.IncompleteControl, kw, "'var' requires at least one name")
	}
	return names, nil
}

func isIntrinsic(text string) bool {
	_, ok := intrinsicKeywords[text]
	return ok
}

// isControlKind reports whether text is the source spelling of the given
// control-flow Kind, dispatching through controlKeywords the same way
// isIntrinsic dispatches through intrinsicKeywords.
func isControlKind(text string, kind Kind) bool {
	k, ok := controlKeywords[text]
	return ok && k == kind
}

func isStringLiteralWord(w source.Word) bool {
	return len(w.Text) >= 2 && strings.HasPrefix(w.Text, `"`) && strings.HasSuffix(w.Text, `"`)
}

func isUnsignedInt(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
