package script

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mediascrape/msl/internal/media"
)

// Parse converts script source into a Script. It returns a
// *SyntaxError describing the first structural or lexical problem it
// finds. Parsing is pure: the same source always yields the same AST,
// and nothing is fetched or executed.
func Parse(src string) (*Script, error) {
	lx := &lexer{src: src}
	lines, err := lx.lex()
	if err != nil {
		return nil, err
	}

	p := &parser{lines: lines}
	stmts, err := p.parseBlock(-1)
	if err != nil {
		return nil, err
	}

	if p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		return nil, syntaxErrorf(ln.number, ln.indent+1, "unexpected indentation")
	}

	return &Script{Statements: stmts}, nil
}

// parser consumes logical lines and builds the AST. Nesting is driven
// by indentation: a block is a run of lines sharing one indent depth,
// and a statement's body is the run of deeper lines that follows it.
type parser struct {
	lines []line
	pos   int
}

// parseBlock parses consecutive statements at a single indent depth.
// The depth is fixed by the first line of the block and must be
// strictly greater than parentIndent. The block ends at the first line
// that is indented less than the block's own depth.
func (p *parser) parseBlock(parentIndent int) ([]Statement, error) {
	if p.pos >= len(p.lines) {
		return nil, nil
	}

	blockIndent := p.lines[p.pos].indent
	if blockIndent <= parentIndent {
		// The would-be body line belongs to an enclosing block.
		return nil, nil
	}

	var stmts []Statement
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < blockIndent {
			break
		}
		if ln.indent > blockIndent {
			return nil, syntaxErrorf(ln.number, ln.indent+1, "unexpected indentation")
		}

		stmt, err := p.parseStatement(ln)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	return stmts, nil
}

// parseStatement dispatches on the line's leading keyword.
// The line has already been verified to sit at the block's indent.
func (p *parser) parseStatement(ln line) (Statement, error) {
	head := ln.tokens[0]
	if head.Type != TokenIdent {
		return nil, syntaxErrorf(head.Line, head.Column, "expected a statement keyword, got %s", head.Type)
	}

	switch head.Lexeme {
	case "open":
		return p.parseOpen(ln)
	case "click":
		return p.parseClick(ln)
	case "set":
		return p.parseSet(ln)
	case "media":
		return p.parseMedia(ln)
	case "save":
		return p.parseSave(ln)
	case "wait":
		return p.parseWait(ln)
	case "where", "extensions", "image", "video", "audio":
		return nil, syntaxErrorf(head.Line, head.Column, "%q is only valid inside a media block", head.Lexeme)
	default:
		return nil, syntaxErrorf(head.Line, head.Column, "unknown statement %q", head.Lexeme)
	}
}

// parseOpen parses: open "url"
func (p *parser) parseOpen(ln line) (Statement, error) {
	lp := lineParser{line: ln, pos: 1}

	url, err := lp.expectString("URL")
	if err != nil {
		return nil, err
	}
	if err := lp.expectEOL(); err != nil {
		return nil, err
	}

	p.pos++
	return &OpenStmt{position: stmtPos(ln), URL: url}, nil
}

// parseClick parses: click "selector" followed by an optional
// indented body executed once per matched link.
func (p *parser) parseClick(ln line) (Statement, error) {
	lp := lineParser{line: ln, pos: 1}

	selector, err := lp.expectString("CSS selector")
	if err != nil {
		return nil, err
	}
	if selector == "" {
		return nil, syntaxErrorf(ln.number, lp.prev().Column, "empty CSS selector")
	}
	if err := lp.expectEOL(); err != nil {
		return nil, err
	}

	p.pos++
	body, err := p.parseBlock(ln.indent)
	if err != nil {
		return nil, err
	}

	return &ClickStmt{position: stmtPos(ln), Selector: selector, Body: body}, nil
}

// parseSet parses: set name = <expr>
func (p *parser) parseSet(ln line) (Statement, error) {
	lp := lineParser{line: ln, pos: 1}

	name, err := lp.expectIdent("variable name")
	if err != nil {
		return nil, err
	}
	if _, err := lp.expect(TokenEquals); err != nil {
		return nil, err
	}

	expr, err := lp.parseValueExpr()
	if err != nil {
		return nil, err
	}
	if err := lp.expectEOL(); err != nil {
		return nil, err
	}

	p.pos++
	return &SetStmt{position: stmtPos(ln), Name: name, Expr: expr}, nil
}

// parseSave parses: save to "template"
func (p *parser) parseSave(ln line) (Statement, error) {
	lp := lineParser{line: ln, pos: 1}

	to, err := lp.expectIdent("'to'")
	if err != nil {
		return nil, err
	}
	if to != "to" {
		return nil, syntaxErrorf(ln.number, lp.prev().Column, "expected 'to' after 'save', got %q", to)
	}

	tpl, err := lp.expectString("path template")
	if err != nil {
		return nil, err
	}
	if tpl == "" {
		return nil, syntaxErrorf(ln.number, lp.prev().Column, "empty path template")
	}
	if err := lp.expectEOL(); err != nil {
		return nil, err
	}

	p.pos++
	return &SaveStmt{position: stmtPos(ln), PathTemplate: tpl}, nil
}

// parseWait parses: wait <seconds>
// Seconds may be fractional ("wait 0.5").
func (p *parser) parseWait(ln line) (Statement, error) {
	lp := lineParser{line: ln, pos: 1}

	tok, err := lp.expect(TokenNumber)
	if err != nil {
		return nil, err
	}
	seconds, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil || seconds < 0 {
		return nil, syntaxErrorf(tok.Line, tok.Column, "invalid wait duration %q", tok.Lexeme)
	}
	if err := lp.expectEOL(); err != nil {
		return nil, err
	}

	p.pos++
	return &WaitStmt{
		position: stmtPos(ln),
		Duration: time.Duration(seconds * float64(time.Second)),
	}, nil
}

// parseMedia parses a media statement: the "media" keyword followed by
// indented kind blocks, each optionally followed by deeper-indented
// filter directives. A trailing save at kind-block depth belongs to
// the media statement and runs on the enclosing branch's pending
// media.
//
//	media
//	  image
//	    where src ~ "cdn.example.com"
//	    extensions jpg, png
//	  save to "./media/{user}"
func (p *parser) parseMedia(ln line) (Statement, error) {
	lp := lineParser{line: ln, pos: 1}
	if err := lp.expectEOL(); err != nil {
		return nil, err
	}

	p.pos++
	blocks, save, err := p.parseMediaBlocks(ln.indent)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, syntaxErrorf(ln.number, ln.indent+1, "media statement has no kind blocks (image, video, or audio)")
	}

	return &MediaStmt{position: stmtPos(ln), Blocks: blocks, Save: save}, nil
}

// parseMediaBlocks parses the kind blocks nested under a media
// statement at parentIndent, plus at most one save line at the same
// depth.
func (p *parser) parseMediaBlocks(parentIndent int) ([]media.Block, *SaveStmt, error) {
	if p.pos >= len(p.lines) {
		return nil, nil, nil
	}

	blockIndent := p.lines[p.pos].indent
	if blockIndent <= parentIndent {
		return nil, nil, nil
	}

	var blocks []media.Block
	var save *SaveStmt
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < blockIndent {
			break
		}
		if ln.indent > blockIndent {
			return nil, nil, syntaxErrorf(ln.number, ln.indent+1, "unexpected indentation")
		}

		head := ln.tokens[0]
		if head.Type == TokenIdent && head.Lexeme == "save" {
			if save != nil {
				return nil, nil, syntaxErrorf(head.Line, head.Column, "media statement already has a save")
			}
			stmt, err := p.parseSave(ln)
			if err != nil {
				return nil, nil, err
			}
			save = stmt.(*SaveStmt)
			continue
		}

		kind, ok := mediaKind(head)
		if !ok {
			if head.Type == TokenIdent && (head.Lexeme == "where" || head.Lexeme == "extensions") {
				return nil, nil, syntaxErrorf(head.Line, head.Column, "%q directive outside a media kind block", head.Lexeme)
			}
			return nil, nil, syntaxErrorf(head.Line, head.Column, "expected media kind (image, video, or audio)")
		}
		if save != nil {
			return nil, nil, syntaxErrorf(head.Line, head.Column, "media kind block after save")
		}

		lp := lineParser{line: ln, pos: 1}
		if err := lp.expectEOL(); err != nil {
			return nil, nil, err
		}

		block := media.Block{Kind: kind}
		p.pos++
		if err := p.parseMediaDirectives(&block, blockIndent); err != nil {
			return nil, nil, err
		}

		blocks = append(blocks, block)
	}

	return blocks, save, nil
}

// parseMediaDirectives parses "where" and "extensions" lines nested
// under a kind block at parentIndent, filling in block's filters.
func (p *parser) parseMediaDirectives(block *media.Block, parentIndent int) error {
	if p.pos >= len(p.lines) {
		return nil
	}

	dirIndent := p.lines[p.pos].indent
	if dirIndent <= parentIndent {
		return nil
	}

	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < dirIndent {
			break
		}
		if ln.indent > dirIndent {
			return syntaxErrorf(ln.number, ln.indent+1, "unexpected indentation")
		}

		head := ln.tokens[0]
		if head.Type != TokenIdent {
			return syntaxErrorf(head.Line, head.Column, "expected a filter directive, got %s", head.Type)
		}

		switch head.Lexeme {
		case "where":
			if err := parseWhereDirective(ln, block); err != nil {
				return err
			}
		case "extensions":
			if err := parseExtensionsDirective(ln, block); err != nil {
				return err
			}
		default:
			return syntaxErrorf(head.Line, head.Column, "unknown filter directive %q", head.Lexeme)
		}

		p.pos++
	}

	return nil
}

// parseWhereDirective parses: where src <~|=|!=> "pattern"
func parseWhereDirective(ln line, block *media.Block) error {
	lp := lineParser{line: ln, pos: 1}

	field, err := lp.expectIdent("filter field")
	if err != nil {
		return err
	}
	if field != "src" {
		return syntaxErrorf(ln.number, lp.prev().Column, "unknown filter field %q (only \"src\" is supported)", field)
	}

	opTok := lp.peek()
	var op media.SrcOp
	switch opTok.Type {
	case TokenTilde:
		op = media.SrcContains
	case TokenEquals:
		op = media.SrcEquals
	case TokenBangEquals:
		op = media.SrcNotEquals
	default:
		return syntaxErrorf(opTok.Line, opTok.Column, "expected '~', '=', or '!=', got %s", opTok.Type)
	}
	lp.pos++

	pattern, err := lp.expectString("filter pattern")
	if err != nil {
		return err
	}
	if pattern == "" {
		return syntaxErrorf(ln.number, lp.prev().Column, "empty filter pattern")
	}
	if err := lp.expectEOL(); err != nil {
		return err
	}

	block.SrcPattern = pattern
	block.SrcOp = op
	return nil
}

// parseExtensionsDirective parses: extensions jpg, png, gif
// Extensions may be bare words or quoted strings; a leading dot is
// accepted and stripped.
func parseExtensionsDirective(ln line, block *media.Block) error {
	lp := lineParser{line: ln, pos: 1}

	for {
		tok := lp.peek()
		var ext string
		switch tok.Type {
		case TokenIdent, TokenString:
			ext = tok.Lexeme
		case TokenDot:
			// ".png" lexes as dot followed by ident.
			lp.pos++
			inner, err := lp.expectIdent("extension")
			if err != nil {
				return err
			}
			ext = inner
		default:
			return syntaxErrorf(tok.Line, tok.Column, "expected an extension, got %s", tok.Type)
		}
		if tok.Type != TokenDot {
			lp.pos++
		}

		block.Extensions = append(block.Extensions, ext)

		next := lp.peek()
		if next.Type == TokenEOL {
			return nil
		}
		if next.Type != TokenComma {
			return syntaxErrorf(next.Line, next.Column, "expected ',' or end of line, got %s", next.Type)
		}
		lp.pos++
	}
}

// mediaKind maps a kind keyword token to its media.Kind.
func mediaKind(tok Token) (media.Kind, bool) {
	if tok.Type != TokenIdent {
		return 0, false
	}
	switch tok.Lexeme {
	case "image":
		return media.KindImage, true
	case "video":
		return media.KindVideo, true
	case "audio":
		return media.KindAudio, true
	default:
		return 0, false
	}
}

// stmtPos builds a statement position from its source line.
func stmtPos(ln line) position {
	return position{Line: ln.number, Column: ln.indent + 1}
}

// lineParser walks the tokens of a single logical line.
type lineParser struct {
	line line
	pos  int
}

// peek returns the current token without consuming it. The EOL token
// is sticky, so peeking past the end is safe.
func (lp *lineParser) peek() Token {
	if lp.pos >= len(lp.line.tokens) {
		return lp.line.tokens[len(lp.line.tokens)-1]
	}
	return lp.line.tokens[lp.pos]
}

// prev returns the most recently consumed token.
func (lp *lineParser) prev() Token {
	if lp.pos == 0 {
		return lp.line.tokens[0]
	}
	return lp.line.tokens[lp.pos-1]
}

// expect consumes the current token if it has the wanted type.
func (lp *lineParser) expect(tt TokenType) (Token, error) {
	tok := lp.peek()
	if tok.Type != tt {
		return Token{}, syntaxErrorf(tok.Line, tok.Column, "expected %s, got %s", tt, tok.Type)
	}
	lp.pos++
	return tok, nil
}

// expectString consumes a string token, describing the expectation in
// the error message.
func (lp *lineParser) expectString(what string) (string, error) {
	tok := lp.peek()
	if tok.Type != TokenString {
		return "", syntaxErrorf(tok.Line, tok.Column, "expected %s in double quotes, got %s", what, tok.Type)
	}
	lp.pos++
	return tok.Lexeme, nil
}

// expectIdent consumes an identifier token.
func (lp *lineParser) expectIdent(what string) (string, error) {
	tok := lp.peek()
	if tok.Type != TokenIdent {
		return "", syntaxErrorf(tok.Line, tok.Column, "expected %s, got %s", what, tok.Type)
	}
	lp.pos++
	return tok.Lexeme, nil
}

// expectEOL asserts that the line has no trailing tokens.
func (lp *lineParser) expectEOL() error {
	tok := lp.peek()
	if tok.Type != TokenEOL {
		return syntaxErrorf(tok.Line, tok.Column, "unexpected %s at end of statement", tok.Type)
	}
	return nil
}

// parseValueExpr parses a value expression: "text", or "attr(\"name\")"
// followed by zero or more ".split(\"sep\")[i]" suffixes applied left
// to right.
func (lp *lineParser) parseValueExpr() (ValueExpr, error) {
	head, err := lp.expectIdent("value expression")
	if err != nil {
		return nil, err
	}

	switch head {
	case "text":
		if lp.peek().Type == TokenDot {
			tok := lp.peek()
			return nil, syntaxErrorf(tok.Line, tok.Column, "transforms apply only to attr() expressions")
		}
		return TextExpr{}, nil

	case "attr":
		name, err := lp.parseCallArg()
		if err != nil {
			return nil, err
		}
		transforms, err := lp.parseTransforms()
		if err != nil {
			return nil, err
		}
		return AttrExpr{Name: name, Transforms: transforms}, nil

	default:
		return nil, syntaxErrorf(lp.prev().Line, lp.prev().Column, "unknown value expression %q (expected \"text\" or \"attr(...)\")", head)
	}
}

// parseCallArg parses a single quoted argument: ("value")
func (lp *lineParser) parseCallArg() (string, error) {
	if _, err := lp.expect(TokenLParen); err != nil {
		return "", err
	}
	arg, err := lp.expectString("argument")
	if err != nil {
		return "", err
	}
	if _, err := lp.expect(TokenRParen); err != nil {
		return "", err
	}
	return arg, nil
}

// parseTransforms parses the ".split(\"sep\")[i]" suffix chain.
func (lp *lineParser) parseTransforms() ([]Transform, error) {
	var transforms []Transform

	for lp.peek().Type == TokenDot {
		lp.pos++

		name, err := lp.expectIdent("transform name")
		if err != nil {
			return nil, err
		}
		if name != "split" {
			return nil, syntaxErrorf(lp.prev().Line, lp.prev().Column, "unknown transform %q (only \"split\" is supported)", name)
		}

		sep, err := lp.parseCallArg()
		if err != nil {
			return nil, err
		}
		if sep == "" {
			return nil, syntaxErrorf(lp.prev().Line, lp.prev().Column, "empty split separator")
		}

		if _, err := lp.expect(TokenLBracket); err != nil {
			return nil, err
		}
		idxTok, err := lp.expect(TokenNumber)
		if err != nil {
			return nil, err
		}
		index, err := strconv.Atoi(idxTok.Lexeme)
		if err != nil {
			return nil, syntaxErrorf(idxTok.Line, idxTok.Column, "invalid split index %q", idxTok.Lexeme)
		}
		if _, err := lp.expect(TokenRBracket); err != nil {
			return nil, err
		}

		transforms = append(transforms, SplitTransform{Sep: sep, Index: index})
	}

	return transforms, nil
}

// Summary returns one line per statement describing the script,
// suitable for "msl parse" output. Nested statements are reported as a
// count on their enclosing click.
func (s *Script) Summary() []string {
	lines := make([]string, 0, len(s.Statements))
	for i, stmt := range s.Statements {
		lines = append(lines, fmt.Sprintf("%d: %s", i+1, describe(stmt)))
	}
	return lines
}

// describe renders one statement for the parse summary.
func describe(stmt Statement) string {
	switch st := stmt.(type) {
	case *OpenStmt:
		return fmt.Sprintf("open %s", st.URL)
	case *ClickStmt:
		return fmt.Sprintf("click %q (%d nested statements)", st.Selector, countStatements(st.Body))
	case *SetStmt:
		return fmt.Sprintf("set %s", st.Name)
	case *MediaStmt:
		if st.Save != nil {
			return fmt.Sprintf("media (%d blocks), save to %s", len(st.Blocks), st.Save.PathTemplate)
		}
		return fmt.Sprintf("media (%d blocks)", len(st.Blocks))
	case *SaveStmt:
		return fmt.Sprintf("save to %s", st.PathTemplate)
	case *WaitStmt:
		return fmt.Sprintf("wait %s", st.Duration)
	default:
		return "unknown statement"
	}
}

// countStatements counts statements recursively, including click bodies.
func countStatements(stmts []Statement) int {
	n := 0
	for _, stmt := range stmts {
		n++
		if click, ok := stmt.(*ClickStmt); ok {
			n += countStatements(click.Body)
		}
	}
	return n
}
