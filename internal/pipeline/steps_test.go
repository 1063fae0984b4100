package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/urlscope/urlscope/internal/crawler"
	"github.com/urlscope/urlscope/internal/model"
	"github.com/urlscope/urlscope/internal/scope"
)

// mapFetcher serves canned bodies by URL.
type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, rawURL string) (*crawler.FetchResult, error) {
	body, ok := m[rawURL]
	if !ok {
		return nil, fmt.Errorf("no route for %s", rawURL)
	}
	return &crawler.FetchResult{
		StatusCode: 200,
		FinalURL:   rawURL,
		Body:       []byte(body),
	}, nil
}

func testEngine(t *testing.T, fetcher crawler.Fetcher) *crawler.Engine {
	t.Helper()
	classifier, err := scope.CompileRules([][2]string{
		{`^/plans(/|$)`, "plan"},
		{`^/promo(/|$)`, "promo"},
	}, nil)
	if err != nil {
		t.Fatalf("CompileRules() error = %v", err)
	}
	return crawler.NewEngine(fetcher, classifier, crawler.WithDelay(0), crawler.WithMaxDepth(2))
}

func TestSitemapStep(t *testing.T) {
	t.Parallel()

	fetcher := mapFetcher{
		"https://example.com/robots.txt":  "Sitemap: https://example.com/sitemap.xml\n",
		"https://example.com/sitemap.xml": `<?xml version="1.0"?><urlset><url><loc>https://example.com/plans/basic</loc></url></urlset>`,
	}

	step := NewSitemapStep(testEngine(t, fetcher))
	if step.Name() != "sitemap_resolution" {
		t.Errorf("Name() = %q", step.Name())
	}

	report := model.NewDiscoveryReport("https://example.com", nil)
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	rec, ok := report.Inventory.Get("https://example.com/plans/basic")
	if !ok {
		t.Fatal("sitemap URL not recorded")
	}
	if rec.Source != model.SourceSitemap {
		t.Errorf("Source = %q", rec.Source)
	}
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	fetcher := mapFetcher{
		"https://example.com/":            `<a href="/plans/basic">p</a>`,
		"https://example.com/plans/basic": `<html></html>`,
	}

	step := NewCrawlStep(testEngine(t, fetcher))
	if step.Name() != "crawl" {
		t.Errorf("Name() = %q", step.Name())
	}

	report := model.NewDiscoveryReport("https://example.com", []string{"https://example.com/"})
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if !report.Inventory.Has("https://example.com/plans/basic") {
		t.Error("crawled URL not recorded")
	}
	if report.Inventory.Stats.PagesFetched != 2 {
		t.Errorf("PagesFetched = %d, want 2", report.Inventory.Stats.PagesFetched)
	}
}

func TestSummaryStep(t *testing.T) {
	t.Parallel()

	step := NewSummaryStep([]string{"plan"})
	if step.Name() != "summary" {
		t.Errorf("Name() = %q", step.Name())
	}

	report := model.NewDiscoveryReport("https://example.com", nil)
	report.Inventory.Record(model.URLRecord{URL: "https://example.com/plans/a", Entity: "plan", Source: model.SourceCrawl})
	report.Inventory.Record(model.URLRecord{URL: "https://example.com/promo/b", Entity: "promo", Source: model.SourceCrawl})

	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if report.Summary == nil {
		t.Fatal("Summary not attached")
	}
	if len(report.Summary.HighPriority) != 1 {
		t.Errorf("len(HighPriority) = %d, want 1", len(report.Summary.HighPriority))
	}
	if len(report.Summary.Standard) != 1 {
		t.Errorf("len(Standard) = %d, want 1", len(report.Summary.Standard))
	}
}

func TestFullPipeline(t *testing.T) {
	t.Parallel()

	fetcher := mapFetcher{
		"https://example.com/robots.txt":  "Sitemap: https://example.com/sitemap.xml\n",
		"https://example.com/sitemap.xml": `<?xml version="1.0"?><urlset><url><loc>https://example.com/plans/basic</loc></url></urlset>`,
		"https://example.com/":            `<a href="/plans/pro">p</a><a href="/promo/sale">s</a>`,
		"https://example.com/plans/pro":   `<html></html>`,
		"https://example.com/promo/sale":  `<html></html>`,
	}

	engine := testEngine(t, fetcher)
	p := New(WithContinueOnError(true))
	p.AddSteps(
		NewSitemapStep(engine),
		NewCrawlStep(engine),
		NewSummaryStep([]string{"plan"}),
	)

	report := model.NewDiscoveryReport("https://example.com", []string{"https://example.com/"})
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if report.Inventory.Len() != 3 {
		t.Errorf("Inventory.Len() = %d, want 3", report.Inventory.Len())
	}
	if report.Summary == nil || len(report.Summary.HighPriority) != 2 {
		t.Errorf("Summary high-priority count wrong: %+v", report.Summary)
	}
	want := []string{"sitemap_resolution", "crawl", "summary"}
	if len(report.PerformedSteps) != len(want) {
		t.Fatalf("PerformedSteps = %v", report.PerformedSteps)
	}
	for i := range want {
		if report.PerformedSteps[i] != want[i] {
			t.Errorf("PerformedSteps[%d] = %q, want %q", i, report.PerformedSteps[i], want[i])
		}
	}
}
