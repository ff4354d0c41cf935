package script

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

// Token types produced by the lexer.
const (
	// TokenEOL marks the end of a line's token stream.
	TokenEOL TokenType = iota

	// TokenIdent is a bare word: keywords, variable names, extensions.
	TokenIdent

	// TokenString is a double-quoted string literal (quotes stripped).
	TokenString

	// TokenNumber is an integer or decimal literal, optionally negative.
	TokenNumber

	// TokenEquals is the '=' sign.
	TokenEquals

	// TokenTilde is the '~' operator (substring match).
	TokenTilde

	// TokenBangEquals is the '!=' operator.
	TokenBangEquals

	// TokenDot is the '.' separator in expression chains.
	TokenDot

	// TokenComma separates extension lists.
	TokenComma

	// TokenLParen and TokenRParen delimit call arguments.
	TokenLParen
	TokenRParen

	// TokenLBracket and TokenRBracket delimit index suffixes.
	TokenLBracket
	TokenRBracket
)

// String returns a human-readable name for the token type,
// used in error messages.
func (t TokenType) String() string {
	switch t {
	case TokenEOL:
		return "end of line"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenEquals:
		return "'='"
	case TokenTilde:
		return "'~'"
	case TokenBangEquals:
		return "'!='"
	case TokenDot:
		return "'.'"
	case TokenComma:
		return "','"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	default:
		return "unknown token"
	}
}

// Token is a single lexical unit with its source position.
// Line and Column are 1-based.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
}

// String implements fmt.Stringer for debugging output.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}
