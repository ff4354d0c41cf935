// Package report renders run summaries in multiple output formats.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for documentation and sharing
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter for multi-format output.
package report
