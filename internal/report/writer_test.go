package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/urlscope/urlscope/internal/model"
)

func testReport() *model.DiscoveryReport {
	report := model.NewDiscoveryReport("https://example.com", []string{"https://example.com/"})
	report.DateStarted = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	report.Elapsed = 42 * time.Second
	report.Inventory.Record(model.URLRecord{
		URL:    "https://example.com/plans/basic",
		Entity: "plan",
		Source: model.SourceSitemap,
	})
	report.Inventory.Record(model.URLRecord{
		URL:    "https://example.com/plans/pro",
		Entity: "plan",
		Source: model.SourceCrawl,
		Depth:  1,
	})
	report.Inventory.Record(model.URLRecord{
		URL:    "https://example.com/support/contact",
		Entity: "support",
		Source: model.SourceCrawl,
		Depth:  2,
	})
	report.Inventory.Stats.PagesFetched = 5
	report.Inventory.Stats.OutOfScope = 2
	report.Summary = model.NewSummary(report, []string{"plan"})
	return report
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header, entities, tiers and stats", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		n, err := w.Write(testReport())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, buffer has %d", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"https://example.com",
			"URLs Found:     3",
			"ENTITY SUMMARY",
			"plan",
			"[P1] 2 URL(s)",
			"[P2] 1 URL(s)",
			"Pages Fetched:  5",
			"Status:         Complete",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("cancelled run is labelled partial", func(t *testing.T) {
		t.Parallel()

		report := testReport()
		report.Cancelled = true
		report.Summary = model.NewSummary(report, nil)

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "CANCELLED (partial results)") {
			t.Error("output missing cancellation status")
		}
	})

	t.Run("long tiers are previewed unless verbose", func(t *testing.T) {
		t.Parallel()

		report := model.NewDiscoveryReport("https://example.com", nil)
		for i := 0; i < 25; i++ {
			report.Inventory.Record(model.URLRecord{
				URL:    "https://example.com/plans/" + strings.Repeat("x", i+1),
				Entity: "plan",
				Source: model.SourceCrawl,
			})
		}

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "and 15 more") {
			t.Error("expected truncated listing")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if strings.Contains(buf.String(), "more (use verbose") {
			t.Error("verbose output should list everything")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("output round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(testReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		var decoded model.DiscoveryReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Inventory.Len() != 3 {
			t.Errorf("Inventory.Len() = %d, want 3", decoded.Inventory.Len())
		}
		if decoded.Summary == nil || len(decoded.Summary.HighPriority) != 2 {
			t.Errorf("Summary = %+v, want 2 high-priority records", decoded.Summary)
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(testReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(testReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		var wrapped JSONReport
		if err := json.Unmarshal(buf.Bytes(), &wrapped); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if wrapped.Version != "1.2.3" {
			t.Errorf("Version = %q", wrapped.Version)
		}
		if wrapped.Report == nil || wrapped.Report.Base != "https://example.com" {
			t.Error("wrapped report missing")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders tables, chart and alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(testReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"# URL Discovery Report",
			"## Entity Summary",
			"Plan",
			"pie",
			"P1 High Priority",
			"`https://example.com/plans/basic`",
			"## Run Statistics",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("empty report still renders", func(t *testing.T) {
		t.Parallel()

		report := model.NewDiscoveryReport("https://example.com", nil)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No in-scope URLs discovered.") {
			t.Error("output missing empty-inventory text")
		}
	})
}

// failWriter always errors, for MultiWriter short-circuit testing.
type failWriter struct{}

func (failWriter) Write(*model.DiscoveryReport) (int, error) { return 0, errors.New("sink failed") }
func (failWriter) WriteSummary(*model.Summary) (int, error)  { return 0, errors.New("sink failed") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("fans out to every writer", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
		if _, err := mw.Write(testReport()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("both writers should receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failWriter{}, NewSimpleWriter(&after))
		if _, err := mw.Write(testReport()); err == nil {
			t.Fatal("expected error from failing writer")
		}
		if after.Len() != 0 {
			t.Error("writer after the failure should not run")
		}
	})
}
