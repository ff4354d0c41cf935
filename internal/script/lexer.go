package script

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// line is one logical source line: its indentation depth and tokens.
// Blank lines and comment-only lines never become logical lines.
type line struct {
	// indent is the number of leading whitespace runes.
	indent int

	// number is the 1-based source line number.
	number int

	// tokens are the line's tokens, ending with a TokenEOL.
	tokens []Token
}

// lexer splits script source into logical lines of tokens.
// It is line-oriented because the grammar is newline-significant and
// blocks are expressed by indentation rather than delimiters.
type lexer struct {
	src string
}

// lex tokenizes the whole source. It returns a *SyntaxError for
// malformed input such as an unterminated string literal.
func (l *lexer) lex() ([]line, error) {
	raw := strings.Split(l.src, "\n")
	lines := make([]line, 0, len(raw))

	for i, text := range raw {
		ln, ok, err := l.lexLine(text, i+1)
		if err != nil {
			return nil, err
		}
		if ok {
			lines = append(lines, ln)
		}
	}

	return lines, nil
}

// lexLine tokenizes one source line. The second return value is false
// for blank and comment-only lines.
func (l *lexer) lexLine(text string, number int) (line, bool, error) {
	indent := 0
	for indent < len(text) && (text[indent] == ' ' || text[indent] == '\t') {
		indent++
	}

	ln := line{indent: indent, number: number}
	pos := indent

	for pos < len(text) {
		r, width := utf8.DecodeRuneInString(text[pos:])

		switch {
		case r == ' ' || r == '\t' || r == '\r':
			pos += width

		case r == '#':
			// Comment runs to end of line.
			pos = len(text)

		case r == '"':
			tok, next, err := l.lexString(text, pos, number)
			if err != nil {
				return line{}, false, err
			}
			ln.tokens = append(ln.tokens, tok)
			pos = next

		case isIdentStart(r):
			start := pos
			for pos < len(text) {
				r, w := utf8.DecodeRuneInString(text[pos:])
				if !isIdentPart(r) {
					break
				}
				pos += w
			}
			ln.tokens = append(ln.tokens, Token{
				Type:   TokenIdent,
				Lexeme: text[start:pos],
				Line:   number,
				Column: start + 1,
			})

		case unicode.IsDigit(r) || (r == '-' && pos+1 < len(text) && isASCIIDigit(text[pos+1])):
			start := pos
			pos++ // consume digit or '-'
			for pos < len(text) && (isASCIIDigit(text[pos]) || text[pos] == '.') {
				pos++
			}
			ln.tokens = append(ln.tokens, Token{
				Type:   TokenNumber,
				Lexeme: text[start:pos],
				Line:   number,
				Column: start + 1,
			})

		case r == '!' && pos+1 < len(text) && text[pos+1] == '=':
			ln.tokens = append(ln.tokens, Token{
				Type:   TokenBangEquals,
				Lexeme: "!=",
				Line:   number,
				Column: pos + 1,
			})
			pos += 2

		default:
			tt, ok := punctToken(r)
			if !ok {
				return line{}, false, syntaxErrorf(number, pos+1, "unexpected character %q", r)
			}
			ln.tokens = append(ln.tokens, Token{
				Type:   tt,
				Lexeme: string(r),
				Line:   number,
				Column: pos + 1,
			})
			pos += width
		}
	}

	if len(ln.tokens) == 0 {
		return line{}, false, nil
	}

	ln.tokens = append(ln.tokens, Token{
		Type:   TokenEOL,
		Line:   number,
		Column: len(text) + 1,
	})
	return ln, true, nil
}

// lexString lexes a double-quoted string starting at pos.
// Escapes are not interpreted: selectors and URLs rarely need them and
// keeping literals verbatim avoids surprising rewrites.
func (l *lexer) lexString(text string, pos, number int) (Token, int, error) {
	start := pos
	pos++ // opening quote

	end := strings.IndexByte(text[pos:], '"')
	if end < 0 {
		return Token{}, 0, syntaxErrorf(number, start+1, "unterminated string literal")
	}

	return Token{
		Type:   TokenString,
		Lexeme: text[pos : pos+end],
		Line:   number,
		Column: start + 1,
	}, pos + end + 1, nil
}

// punctToken maps single-rune punctuation to its token type.
func punctToken(r rune) (TokenType, bool) {
	switch r {
	case '=':
		return TokenEquals, true
	case '~':
		return TokenTilde, true
	case '.':
		return TokenDot, true
	case ',':
		return TokenComma, true
	case '(':
		return TokenLParen, true
	case ')':
		return TokenRParen, true
	case '[':
		return TokenLBracket, true
	case ']':
		return TokenRBracket, true
	default:
		return 0, false
	}
}

// isIdentStart reports whether r can begin an identifier.
func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

// isIdentPart reports whether r can continue an identifier.
// Digits are allowed after the first rune so names like "img2" and
// extensions like "mp4" lex as single words.
func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// isASCIIDigit reports whether b is an ASCII digit.
func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
