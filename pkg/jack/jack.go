package jack

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Jack syntax analyzer.
//
// Unlike a full compiler the analyzer never builds a typed AST or emits code: it only
// recognizes the grammar and serializes every production it recognizes as a labelled
// parse tree. A Token is the smallest recognizable unit of Jack source, a TokenType tags
// which of the five lexical categories it belongs to (mirrors the 'tagged variant' shape
// used throughout the rest of this toolchain for Asm/Vm instructions).

// TokenType enumerates the five lexical categories the Jack grammar recognizes.
type TokenType uint8

const (
	KeywordTok TokenType = iota
	SymbolTok
	IdentifierTok
	IntConstTok
	StringConstTok
)

// Token is the result of lexing exactly one lexeme off the Jack source stream.
//
// 'Value' always carries the raw lexeme text: for a KeywordTok it's the keyword itself,
// for a SymbolTok the single symbol character, for an IntConstTok the decimal digits (still
// unparsed, the parse tree format only ever needs the text), for a StringConstTok the string
// body with the surrounding quotes already stripped.
type Token struct {
	Type  TokenType
	Value string
}

// keywords is the full Jack keyword set (21 entries); anything else that isn't a symbol,
// string or int constant is lexed as an Identifier.
var keywords = map[string]bool{
	"class": true, "constructor": true, "function": true, "method": true,
	"field": true, "static": true, "var": true, "int": true, "char": true,
	"boolean": true, "void": true, "true": true, "false": true, "null": true,
	"this": true, "let": true, "do": true, "if": true, "else": true,
	"while": true, "return": true,
}

// symbolChars is the full Jack symbol alphabet; every byte in it lexes as its own SymbolTok.
const symbolChars = "{}()[].,;+-*/&|<>=~"

func tagForType(t TokenType) string {
	switch t {
	case KeywordTok:
		return "keyword"
	case SymbolTok:
		return "symbol"
	case IdentifierTok:
		return "identifier"
	case IntConstTok:
		return "integerConstant"
	case StringConstTok:
		return "stringConstant"
	default:
		return "unknown"
	}
}

func isSubroutineKeyword(v string) bool {
	switch v {
	case "constructor", "function", "method":
		return true
	}
	return false
}

func isStatementKeyword(v string) bool {
	switch v {
	case "let", "if", "while", "do", "return":
		return true
	}
	return false
}

func isKeywordConst(v string) bool {
	switch v {
	case "true", "false", "null", "this":
		return true
	}
	return false
}

func containsStr(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
