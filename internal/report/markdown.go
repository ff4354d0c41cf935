package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/mediascrape/msl/internal/engine"
)

// MarkdownWriter outputs run summaries in Markdown format, suitable
// for documentation and sharing. The nao1215/markdown library gives
// type-safe tables and GitHub-flavored alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(summary *engine.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSaves(md, summary)
	w.writeFailures(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the summary header with run counters.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *engine.Summary) {
	md.H1("MSL Run Summary")
	md.PlainText("")

	failed := len(summary.Failed())

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.Started.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Finished.Sub(summary.Started).Round(durationPrecision).String()},
			{"Pages Fetched", strconv.Itoa(summary.PagesFetched)},
			{"Branches", strconv.Itoa(len(summary.Branches))},
			{"Failed Branches", strconv.Itoa(failed)},
			{"Media Saved", strconv.Itoa(len(summary.Saves))},
		},
	})
	md.PlainText("")

	if failed == 0 {
		md.Note("All branches completed successfully.")
	} else {
		md.Warning(strconv.Itoa(failed) + " branch(es) failed. See the failures section below.")
	}
	md.PlainText("")
}

// writeSaves writes the saved files table.
func (w *MarkdownWriter) writeSaves(md *markdown.Markdown, summary *engine.Summary) {
	md.H2("Saved Files")
	md.PlainText("")

	if len(summary.Saves) == 0 {
		md.PlainText("No media files were saved.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.Saves))
	for _, s := range summary.Saves {
		rows = append(rows, []string{"`" + s.SourceURL + "`", "`" + s.DestPath + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Source URL", "Destination"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the failed branches section.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, summary *engine.Summary) {
	failed := summary.Failed()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Branches")
	md.PlainText("")

	rows := make([][]string, 0, len(failed))
	for _, b := range failed {
		trail := ""
		if len(b.Trail) > 0 {
			trail = "`" + b.Trail[len(b.Trail)-1] + "`"
		}
		rows = append(rows, []string{"`" + b.ErrorKind + "`", b.ErrorMessage, trail})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Error", "Last Step"},
		Rows:   rows,
	})
	md.PlainText("")
}
