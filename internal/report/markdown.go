package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/sitebook/sitebook/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one volume's completeness report in Markdown format.
func (w *MarkdownWriter) Write(result *model.CompileResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSections(md, result)
	w.writeGaps(md, result)

	return len(md.String()), md.Build()
}

// writeHeader writes the volume header with compile information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CompileResult) {
	md.H1("Compile Report: " + result.VolumeName)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Volume", "`" + result.VolumeName + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(result.TotalPages())},
			{"Output", outputText(result)},
			{"Status", statusText(result)},
		},
	})
	md.PlainText("")
}

func outputText(result *model.CompileResult) string {
	if result.OutputPath == "" {
		return "-"
	}
	return "`" + result.OutputPath + "`"
}

// statusText returns the status text based on result state.
func statusText(result *model.CompileResult) string {
	if result.ErrorMessage != "" {
		return "❌ Failed - " + result.ErrorMessage
	}
	for _, s := range result.Sections {
		if s.Stats != nil && s.Stats.Partial {
			return "⚠️ Partial (crawl interrupted)"
		}
	}
	return "✅ Complete"
}

// writeSections writes the per-section completeness table.
func (w *MarkdownWriter) writeSections(md *markdown.Markdown, result *model.CompileResult) {
	md.H2("Sections")
	md.PlainText("")

	if len(result.Sections) == 0 {
		md.PlainText("No sections were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(result.Sections))
	for _, s := range result.Sections {
		stats := s.Stats
		if stats == nil {
			stats = &model.CrawlStats{}
		}
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(len(s.Pages)),
			strconv.Itoa(stats.FetchFailures),
			strconv.Itoa(stats.BoundaryPages),
			strconv.Itoa(stats.ExcludedAtBoundary),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Section", "Pages", "Fetch Failures", "Boundary Pages", "Excluded by Depth"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeGaps writes alerts for the ways a volume can be incomplete.
func (w *MarkdownWriter) writeGaps(md *markdown.Markdown, result *model.CompileResult) {
	excluded := 0
	failures := 0
	for _, s := range result.Sections {
		if s.Stats == nil {
			continue
		}
		excluded += s.Stats.ExcludedAtBoundary
		failures += s.Stats.FetchFailures
	}

	switch {
	case len(result.EmptySections) > 0:
		md.Warningf(
			"%d section(s) produced no pages: %s.",
			len(result.EmptySections), joinNames(result.EmptySections),
		)
	case excluded > 0:
		md.Importantf(
			"%d in-scope page(s) were excluded by the depth limit. Raise maxDepth or enable includeBoundary to capture them.",
			excluded,
		)
	case failures > 0:
		md.Note(fmt.Sprintf("%d page(s) could not be fetched and were skipped.", failures))
	default:
		md.Tip("All discovered in-scope pages were captured.")
	}
	md.PlainText("")
}

// WriteSummary outputs the whole-run summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Run Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Volumes Generated", strconv.Itoa(len(summary.Generated))},
			{"Volumes Failed", strconv.Itoa(len(summary.Failed))},
			{"Total Pages", strconv.Itoa(summary.TotalPages)},
		},
	})
	md.PlainText("")

	if len(summary.Generated) > 0 {
		md.H2("Generated")
		md.PlainText("")
		md.BulletList(summary.Generated...)
		md.PlainText("")
	}

	if len(summary.Failed) > 0 {
		md.H2("Failed")
		md.PlainText("")
		md.BulletList(summary.Failed...)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// joinNames renders a short name list for alert text.
func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += "`" + n + "`"
	}
	return out
}
