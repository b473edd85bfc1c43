package token

// intrinsicKeywords maps source-level intrinsic spellings to their
// Intrinsic kind, following the teacher's (rmay-nuxvm pkg/lux.Compiler)
// flat map-based keyword dispatch rather than a long switch.
var intrinsicKeywords = map[string]Intrinsic{
	"dump": Dump,
	"drop": Drop,
	"dup":  Dup,
	"over": Over,
	"swap": Swap,
	"rot":  Rot,

	"+": Add,
	"-": Sub,
	"*": Mul,
	"/": Div,
	"%": Mod,

	"<<": Shl,
	">>": Shr,
	"&":  BitAnd,
	"|":  BitOr,
	"^":  BitXor,

	"=":  Eq,
	"!=": Neq,
	"<":  Lt,
	">":  Gt,
	"<=": Le,
	">=": Ge,

	"load8":   Load8,
	"store8":  Store8,
	"load16":  Load16,
	"store16": Store16,
	"load32":  Load32,
	"store32": Store32,
	"load64":  Load64,
	"store64": Store64,
}

// IntrinsicName renders an Intrinsic back to its canonical source
// spelling, used by the .cfc backend and by diagnostics.
func IntrinsicName(k Intrinsic) string {
	for name, v := range intrinsicKeywords {
		if v == k {
			return name
		}
	}
	return "?"
}

var controlKeywords = map[string]Kind{
	"if":    If,
	"else":  Else,
	"while": While,
	"do":    Do,
	"end":   End,
}

var typeKeywords = map[string]DataType{
	"int":  Int,
	"ptr":  Ptr,
	"bool": Bool,
}
