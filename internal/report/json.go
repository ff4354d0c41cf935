package report

import (
	"encoding/json"
	"io"

	"github.com/mediascrape/msl/internal/engine"
)

// JSONWriter outputs run summaries in JSON format for tool
// integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in JSON format.
func (w *JSONWriter) Write(summary *engine.Summary) (int, error) {
	return w.writeJSON(summary)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v interface{}) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps the summary with run metadata. Wrapping keeps
// output-specific fields out of the engine's core data structure.
type JSONReport struct {
	// Version is the msl version that generated this report.
	Version string `json:"version"`

	// RunID is the unique identifier assigned to the run.
	RunID string `json:"run_id,omitempty"`

	// Script is the path of the executed script.
	Script string `json:"script,omitempty"`

	// Summary is the run summary.
	Summary *engine.Summary `json:"summary"`
}

// FullJSONWriter outputs summaries wrapped with run metadata.
type FullJSONWriter struct {
	*JSONWriter

	// version is the msl version string.
	version string

	// runID identifies the run.
	runID string

	// script is the executed script path.
	script string
}

// NewFullJSONWriter creates a writer for summaries with metadata.
func NewFullJSONWriter(output io.Writer, version, runID, script string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
		runID:      runID,
		script:     script,
	}
}

// Write outputs the summary wrapped with metadata.
func (w *FullJSONWriter) Write(summary *engine.Summary) (int, error) {
	wrapped := &JSONReport{
		Version: w.version,
		RunID:   w.runID,
		Script:  w.script,
		Summary: summary,
	}
	return w.writeJSON(wrapped)
}
