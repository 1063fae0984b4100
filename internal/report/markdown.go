package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/urlscope/urlscope/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// titleCaser renders entity labels as section-friendly titles.
	titleCaser cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		titleCaser: cases.Title(language.English),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.DiscoveryReport) (int, error) {
	return w.WriteSummary(summaryOf(report))
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeEntities(md, summary)
	w.writeTiers(md, summary)
	w.writeStats(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("URL Discovery Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", "`" + summary.Base + "`"},
			{"Run Date", summary.DateStarted.Format("2006-01-02 15:04:05 MST")},
			{"URLs Found", strconv.Itoa(summary.TotalURLs)},
			{"Elapsed", summary.Elapsed.String()},
			{"Status", w.getStatusText(summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on run state.
func (w *MarkdownWriter) getStatusText(summary *model.Summary) string {
	if summary.Cancelled {
		return "⚠️ Cancelled (partial results)"
	}
	if summary.Error != "" {
		return "❌ Error - " + summary.Error
	}
	return "✅ Complete"
}

// writeEntities writes the entity count section with a pie chart.
func (w *MarkdownWriter) writeEntities(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Entity Summary")
	md.PlainText("")

	if len(summary.Entities) == 0 {
		md.PlainText("No in-scope URLs discovered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Entities))
	for i, ec := range summary.Entities {
		rows[i] = []string{w.titleCaser.String(ec.Entity), strconv.Itoa(ec.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Entity", "URLs"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, summary)
}

// writePieChart writes a mermaid pie chart for entity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Entity Distribution"),
		piechart.WithShowData(true),
	)

	for _, ec := range summary.Entities {
		if ec.Count > 0 {
			chart.LabelAndIntValue(w.titleCaser.String(ec.Entity), uint64(ec.Count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeTiers writes the priority tier sections.
func (w *MarkdownWriter) writeTiers(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Discovered URLs")
	md.PlainText("")

	if summary.TotalURLs == 0 {
		md.PlainText("Nothing to list.")
		md.PlainText("")
		return
	}

	tiers := []struct {
		header  string
		records []model.URLRecord
	}{
		{"### 🔴 " + model.PriorityHigh + " High Priority", summary.HighPriority},
		{"### 🔵 " + model.PriorityStandard + " Standard", summary.Standard},
	}

	for _, tier := range tiers {
		if len(tier.records) == 0 {
			continue
		}
		md.PlainText(tier.header)
		md.PlainText("")
		w.writeURLTable(md, tier.records)
	}
}

// writeURLTable writes a table of URL records.
func (w *MarkdownWriter) writeURLTable(md *markdown.Markdown, records []model.URLRecord) {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{
			"`" + truncateString(rec.URL, 80) + "`",
			rec.Entity,
			string(rec.Source),
			strconv.Itoa(rec.Depth),
			rec.Status,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Entity", "Source", "Depth", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeStats writes the run tally section.
func (w *MarkdownWriter) writeStats(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Run Statistics")
	md.PlainText("")

	stats := summary.Stats
	md.Table(markdown.TableSet{
		Header: []string{"Tally", "Count"},
		Rows: [][]string{
			{"Sitemap URLs", strconv.Itoa(stats.SitemapURLs)},
			{"Pages Fetched", strconv.Itoa(stats.PagesFetched)},
			{"Fetch Errors", strconv.Itoa(stats.FetchErrors)},
			{"HTTP Errors", strconv.Itoa(stats.HTTPErrors)},
			{"Parse Errors", strconv.Itoa(stats.ParseErrors)},
			{"Sitemap Errors", strconv.Itoa(stats.SitemapErrors)},
			{"Off Domain", strconv.Itoa(stats.OffDomain)},
			{"Out of Scope", strconv.Itoa(stats.OutOfScope)},
			{"Robots Denied", strconv.Itoa(stats.RobotsDenied)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, summary)
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.Summary) {
	stats := summary.Stats
	switch {
	case summary.Cancelled:
		md.Warning("The run was cancelled before the frontier drained; the inventory is a valid partial result.")
	case summary.Error != "":
		md.Cautionf("The run stopped on an error: %s. The inventory holds everything accumulated before it.", summary.Error)
	case stats.FetchErrors+stats.HTTPErrors > 0:
		md.Notef("%d page(s) could not be fetched and were skipped without retry.", stats.FetchErrors+stats.HTTPErrors)
	default:
		md.Tip("The run completed without fetch failures.")
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [urlscope](https://github.com/urlscope/urlscope)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
