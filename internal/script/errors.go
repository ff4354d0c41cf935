package script

import "fmt"

// SyntaxError describes a parse failure with its source position.
// Line and Column are 1-based. A script must be entirely free of
// syntax errors before any execution begins.
type SyntaxError struct {
	// Line is the 1-based line number where the error was detected.
	Line int

	// Column is the 1-based column number where the error was detected.
	Column int

	// Message describes what was expected or what went wrong.
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// syntaxErrorf creates a SyntaxError with a formatted message.
func syntaxErrorf(line, column int, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}
