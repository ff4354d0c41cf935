package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mediascrape/msl/internal/engine"
)

// durationPrecision rounds run durations for display.
const durationPrecision = 10 * time.Millisecond

// SimpleWriter outputs human-readable text summaries for terminal
// display. Plain ASCII formatting pipes cleanly to files and tools.
type SimpleWriter struct {
	baseWriter

	// verbose enables per-branch detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with per-branch detail.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(summary *engine.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeSaves(&sb, summary)
	w.writeFailures(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run timing.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *engine.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                     MSL RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Started:  %s\n", summary.Started.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", summary.Finished.Sub(summary.Started).Round(durationPrecision)))
	sb.WriteString("\n")
}

// writeCounts writes the aggregate counters.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *engine.Summary) {
	failed := len(summary.Failed())

	sb.WriteString(fmt.Sprintf("Pages fetched:   %d\n", summary.PagesFetched))
	sb.WriteString(fmt.Sprintf("Branches:        %d (%d failed)\n", len(summary.Branches), failed))
	sb.WriteString(fmt.Sprintf("Media saved:     %d\n", len(summary.Saves)))
	sb.WriteString("\n")
}

// writeSaves lists the stored media files.
func (w *SimpleWriter) writeSaves(sb *strings.Builder, summary *engine.Summary) {
	if len(summary.Saves) == 0 {
		return
	}

	sb.WriteString("Saved files:\n")
	for _, s := range summary.Saves {
		sb.WriteString(fmt.Sprintf("  %s -> %s\n", s.SourceURL, s.DestPath))
	}
	sb.WriteString("\n")
}

// writeFailures lists failed branches with their trails.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, summary *engine.Summary) {
	failed := summary.Failed()
	if len(failed) == 0 {
		if w.verbose {
			sb.WriteString("All branches completed successfully.\n")
		}
		return
	}

	sb.WriteString("Failed branches:\n")
	for _, b := range failed {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", b.ErrorKind, b.ErrorMessage))
		if w.verbose {
			for _, step := range b.Trail {
				sb.WriteString(fmt.Sprintf("    at %s\n", step))
			}
		}
	}
	sb.WriteString("\n")
}
