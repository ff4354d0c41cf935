// Package script implements the crawl scripting language: the lexer, the
// indentation-aware parser, and the AST the engine executes.
//
// A script is a newline-significant, indentation-nested sequence of
// statements:
//
//	open "https://example.com"
//	click ".user-card a"
//	  set user = attr("href").split("/")[-1]
//	  media
//	    image
//	      where src ~ "cdn.example.com"
//	      extensions jpg, png
//	  save to "./media/{user}"
//
// Nesting under a click statement defines traversal depth: the body runs
// once per matched link, one level deeper in the crawl tree. The parser is
// side-effect free and total over the grammar; invalid structure (for
// example a "where" directive outside a media kind block) is rejected with
// a SyntaxError carrying the line and column.
package script
