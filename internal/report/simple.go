package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urlscope/urlscope/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables the full URL listing in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output listing every discovered URL.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
// It generates a Summary from the DiscoveryReport if not already present.
func (w *SimpleWriter) Write(report *model.DiscoveryReport) (int, error) {
	return w.WriteSummary(summaryOf(report))
}

// WriteSummary outputs the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeEntities(&sb, summary)
	w.writeTiers(&sb, summary)
	w.writeStats(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         URLSCOPE DISCOVERY REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Base URL:       %s\n", summary.Base))
	sb.WriteString(fmt.Sprintf("Run Date:       %s\n", summary.DateStarted.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:        %s\n", summary.Elapsed.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("URLs Found:     %d\n", summary.TotalURLs))

	switch {
	case summary.Cancelled:
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	case summary.Error != "":
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s (partial results)\n", summary.Error))
	default:
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeEntities writes the per-entity count section.
func (w *SimpleWriter) writeEntities(sb *strings.Builder, summary *model.Summary) {
	if len(summary.Entities) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ENTITY SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.Entities) == 0 {
		sb.WriteString("  No entities discovered\n")
	} else {
		for _, ec := range summary.Entities {
			sb.WriteString(fmt.Sprintf("  %-20s %d\n", ec.Entity, ec.Count))
		}
	}
	sb.WriteString("\n")
}

// writeTiers writes the priority tier sections.
func (w *SimpleWriter) writeTiers(sb *strings.Builder, summary *model.Summary) {
	if summary.TotalURLs == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DISCOVERED URLS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	w.writeTier(sb, model.PriorityHigh, summary.HighPriority)
	w.writeTier(sb, model.PriorityStandard, summary.Standard)
}

// writeTier writes one priority tier.
func (w *SimpleWriter) writeTier(sb *strings.Builder, tier string, records []model.URLRecord) {
	if len(records) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(fmt.Sprintf("[%s] %d URL(s)\n", tier, len(records)))

	if len(records) == 0 {
		sb.WriteString("  None\n\n")
		return
	}

	// The full listing can run to hundreds of lines; keep it behind
	// the verbose flag and show a preview otherwise.
	limit := len(records)
	if !w.verbose && limit > 10 {
		limit = 10
	}

	for _, rec := range records[:limit] {
		sb.WriteString(fmt.Sprintf("  * %s\n", rec.URL))
		sb.WriteString(fmt.Sprintf("    Entity: %s  Source: %s  Depth: %d\n", rec.Entity, rec.Source, rec.Depth))
	}
	if limit < len(records) {
		sb.WriteString(fmt.Sprintf("  ... and %d more (use verbose output for the full list)\n", len(records)-limit))
	}
	sb.WriteString("\n")
}

// writeStats writes the run tally section.
func (w *SimpleWriter) writeStats(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RUN STATISTICS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	stats := summary.Stats
	sb.WriteString(fmt.Sprintf("  Sitemap URLs:   %d\n", stats.SitemapURLs))
	sb.WriteString(fmt.Sprintf("  Pages Fetched:  %d\n", stats.PagesFetched))
	sb.WriteString(fmt.Sprintf("  Fetch Errors:   %d\n", stats.FetchErrors))
	sb.WriteString(fmt.Sprintf("  HTTP Errors:    %d\n", stats.HTTPErrors))
	sb.WriteString(fmt.Sprintf("  Parse Errors:   %d\n", stats.ParseErrors))
	sb.WriteString(fmt.Sprintf("  Sitemap Errors: %d\n", stats.SitemapErrors))
	sb.WriteString(fmt.Sprintf("  Off Domain:     %d\n", stats.OffDomain))
	sb.WriteString(fmt.Sprintf("  Out of Scope:   %d\n", stats.OutOfScope))
	sb.WriteString(fmt.Sprintf("  Robots Denied:  %d\n", stats.RobotsDenied))
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by urlscope\n")
	sb.WriteString("https://github.com/urlscope/urlscope\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
