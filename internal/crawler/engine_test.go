package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/urlscope/urlscope/internal/model"
	"github.com/urlscope/urlscope/internal/scope"
)

func planClassifier(t *testing.T) *scope.Classifier {
	t.Helper()
	c, err := scope.CompileRules([][2]string{
		{`^/plans(/|$)`, "plan"},
		{`^/devices(/|$)`, "device"},
	}, []string{`/archive/`})
	if err != nil {
		t.Fatalf("CompileRules() error = %v", err)
	}
	return c
}

func page(links ...string) string {
	body := "<html><body>"
	for _, l := range links {
		body += `<a href="` + l + `">link</a>`
	}
	return body + "</body></html>"
}

// garbledFetcher answers every fetch with a success whose final URL
// contains a control character, so the page cannot be parsed.
type garbledFetcher struct{}

func (garbledFetcher) Fetch(_ context.Context, _ string) (*FetchResult, error) {
	return &FetchResult{
		StatusCode: 200,
		FinalURL:   "https://example.com/\x01",
		Body:       []byte(page("/plans/b")),
	}, nil
}

func TestEngineCrawl(t *testing.T) {
	t.Parallel()

	t.Run("BFS discovers in-scope pages and tallies skips", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/": page(
				"/plans/basic",
				"/devices/phone",
				"/archive/2019",
				"https://other.com/away",
			),
			"https://example.com/plans/basic":  page("/plans/basic#reviews"),
			"https://example.com/devices/phone": page(),
			"https://example.com/archive/2019":  page(),
		}}

		e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(2))
		inv := model.NewInventory()
		if err := e.Crawl(context.Background(), "https://example.com", []string{"https://example.com/"}, inv); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		if !inv.Has("https://example.com/plans/basic") {
			t.Error("missing /plans/basic")
		}
		if !inv.Has("https://example.com/devices/phone") {
			t.Error("missing /devices/phone")
		}
		if inv.Has("https://example.com/archive/2019") {
			t.Error("excluded /archive/ page was recorded")
		}
		if inv.Stats.OffDomain != 1 {
			t.Errorf("OffDomain = %d, want 1", inv.Stats.OffDomain)
		}
		// Root and archive page fetched but out of scope.
		if inv.Stats.OutOfScope != 2 {
			t.Errorf("OutOfScope = %d, want 2", inv.Stats.OutOfScope)
		}
		if inv.Stats.PagesFetched != 4 {
			t.Errorf("PagesFetched = %d, want 4", inv.Stats.PagesFetched)
		}
	})

	t.Run("each URL is fetched at most once", func(t *testing.T) {
		t.Parallel()

		// Every page links back to the root and to each other.
		f := &stubFetcher{pages: map[string]string{
			"https://example.com/":         page("/plans/a", "/plans/b"),
			"https://example.com/plans/a":  page("/", "/plans/b", "/plans/a#top"),
			"https://example.com/plans/b":  page("/", "/plans/a"),
		}}

		e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(5))
		inv := model.NewInventory()
		if err := e.Crawl(context.Background(), "https://example.com", []string{"https://example.com/"}, inv); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		seen := make(map[string]int)
		for _, u := range f.fetched {
			seen[u]++
		}
		for u, n := range seen {
			if n > 1 {
				t.Errorf("%s fetched %d times", u, n)
			}
		}
		if inv.Stats.PagesFetched != 3 {
			t.Errorf("PagesFetched = %d, want 3", inv.Stats.PagesFetched)
		}
	})

	t.Run("maxDepth zero fetches only the seeds", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/plans/a": page("/plans/b"),
		}}

		e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(0))
		inv := model.NewInventory()
		if err := e.Crawl(context.Background(), "https://example.com", []string{"https://example.com/plans/a"}, inv); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		if inv.Stats.PagesFetched != 1 {
			t.Errorf("PagesFetched = %d, want 1", inv.Stats.PagesFetched)
		}
		if inv.Has("https://example.com/plans/b") {
			t.Error("depth 1 page should not be visited with maxDepth 0")
		}
	})

	t.Run("fetch failures are tallied and skipped, never retried", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{
			pages: map[string]string{
				"https://example.com/": page("/plans/gone", "/plans/ok"),
				"https://example.com/plans/ok": page(),
			},
			status: map[string]int{},
		}
		f.pages["https://example.com/plans/err500"] = "boom"
		f.status["https://example.com/plans/err500"] = 500

		e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(2))
		inv := model.NewInventory()
		if err := e.Crawl(context.Background(), "https://example.com",
			[]string{"https://example.com/", "https://example.com/plans/err500"}, inv); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		if inv.Stats.FetchErrors != 1 {
			t.Errorf("FetchErrors = %d, want 1 (/plans/gone)", inv.Stats.FetchErrors)
		}
		if inv.Stats.HTTPErrors != 1 {
			t.Errorf("HTTPErrors = %d, want 1 (/plans/err500)", inv.Stats.HTTPErrors)
		}
		if !inv.Has("https://example.com/plans/ok") {
			t.Error("healthy sibling should still be discovered")
		}
	})

	t.Run("unparseable page is tallied and skipped", func(t *testing.T) {
		t.Parallel()

		e := NewEngine(garbledFetcher{}, planClassifier(t), WithDelay(0), WithMaxDepth(2))
		inv := model.NewInventory()
		if err := e.Crawl(context.Background(), "https://example.com",
			[]string{"https://example.com/plans/a"}, inv); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		if inv.Stats.ParseErrors != 1 {
			t.Errorf("ParseErrors = %d, want 1", inv.Stats.ParseErrors)
		}
		// The fetch itself succeeded; only parsing failed.
		if inv.Stats.PagesFetched != 1 {
			t.Errorf("PagesFetched = %d, want 1", inv.Stats.PagesFetched)
		}
		if inv.Len() != 0 {
			t.Errorf("Len() = %d, want nothing recorded from an unparseable page", inv.Len())
		}
	})

	t.Run("canonical link is the dedup unit", func(t *testing.T) {
		t.Parallel()

		canonical := `<html><head><link rel="canonical" href="https://example.com/plans/basic"></head><body></body></html>`
		f := &stubFetcher{pages: map[string]string{
			"https://example.com/":                  page("/plans/basic?utm=x", "/plans/basic"),
			"https://example.com/plans/basic?utm=x": canonical,
			"https://example.com/plans/basic":       canonical,
		}}

		e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(2))
		inv := model.NewInventory()
		if err := e.Crawl(context.Background(), "https://example.com", []string{"https://example.com/"}, inv); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		if inv.Len() != 1 {
			t.Errorf("Len() = %d, want 1 record for the canonical form", inv.Len())
		}
		rec, ok := inv.Get("https://example.com/plans/basic")
		if !ok {
			t.Fatal("canonical URL not recorded")
		}
		if rec.Source != model.SourceCrawl {
			t.Errorf("Source = %q, want crawl", rec.Source)
		}
	})

	t.Run("robots gate denies and tallies", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/robots.txt": "User-agent: *\nDisallow: /plans/private\n",
			"https://example.com/":           page("/plans/private", "/plans/open"),
			"https://example.com/plans/open": page(),
		}}

		gate := NewRobotsGate(f, "urlscope/1.0")
		e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(2), WithRobotsGate(gate))
		inv := model.NewInventory()
		if err := e.Crawl(context.Background(), "https://example.com", []string{"https://example.com/"}, inv); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		if inv.Stats.RobotsDenied != 1 {
			t.Errorf("RobotsDenied = %d, want 1", inv.Stats.RobotsDenied)
		}
		if inv.Has("https://example.com/plans/private") {
			t.Error("disallowed page should not be recorded")
		}
		if !inv.Has("https://example.com/plans/open") {
			t.Error("allowed sibling should be discovered")
		}
	})

	t.Run("maxPages caps fetch attempts", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/":        page("/plans/a", "/plans/b", "/plans/c"),
			"https://example.com/plans/a": page(),
			"https://example.com/plans/b": page(),
			"https://example.com/plans/c": page(),
		}}

		e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(2), WithMaxPages(2))
		inv := model.NewInventory()
		if err := e.Crawl(context.Background(), "https://example.com", []string{"https://example.com/"}, inv); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}

		if got := len(f.fetched); got != 2 {
			t.Errorf("fetch attempts = %d, want 2", got)
		}
	})

	t.Run("cancellation returns partial results", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/":        page("/plans/a"),
			"https://example.com/plans/a": page(),
		}}

		ctx, cancel := context.WithCancel(context.Background())
		e := NewEngine(f, planClassifier(t), WithDelay(time.Hour), WithMaxDepth(2))
		inv := model.NewInventory()

		done := make(chan error, 1)
		go func() {
			done <- e.Crawl(ctx, "https://example.com", []string{"https://example.com/"}, inv)
		}()

		// Let the first fetch land, then cancel during the delay.
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Crawl() error = %v, want context.Canceled", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Crawl() did not return after cancellation")
		}

		if inv.Stats.PagesFetched != 1 {
			t.Errorf("PagesFetched = %d, want the partial result preserved", inv.Stats.PagesFetched)
		}
	})

	t.Run("invalid base URL is an error", func(t *testing.T) {
		t.Parallel()

		e := NewEngine(&stubFetcher{}, planClassifier(t), WithDelay(0))
		if err := e.Crawl(context.Background(), "://bad", nil, model.NewInventory()); err == nil {
			t.Error("expected error for invalid base")
		}
	})
}

func TestEngineDiscoverSitemaps(t *testing.T) {
	t.Parallel()

	t.Run("records in-scope sitemap candidates without fetching them", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/robots.txt": "Sitemap: https://example.com/sitemap.xml\n",
			"https://example.com/sitemap.xml": urlset(
				"https://example.com/plans/basic",
				"https://example.com/about",
				"https://other.com/plans/basic",
			),
		}}

		e := NewEngine(f, planClassifier(t), WithDelay(0))
		inv := model.NewInventory()
		if err := e.DiscoverSitemaps(context.Background(), "https://example.com", inv); err != nil {
			t.Fatalf("DiscoverSitemaps() error = %v", err)
		}

		rec, ok := inv.Get("https://example.com/plans/basic")
		if !ok {
			t.Fatal("in-scope sitemap URL not recorded")
		}
		if rec.Source != model.SourceSitemap {
			t.Errorf("Source = %q, want sitemap", rec.Source)
		}
		if rec.Entity != "plan" {
			t.Errorf("Entity = %q, want plan", rec.Entity)
		}

		if inv.Stats.SitemapURLs != 3 {
			t.Errorf("SitemapURLs = %d, want 3", inv.Stats.SitemapURLs)
		}
		if inv.Stats.OffDomain != 1 {
			t.Errorf("OffDomain = %d, want 1", inv.Stats.OffDomain)
		}
		if inv.Stats.OutOfScope != 1 {
			t.Errorf("OutOfScope = %d, want 1", inv.Stats.OutOfScope)
		}
		// Only robots.txt and the sitemap itself were fetched.
		if len(f.fetched) != 2 {
			t.Errorf("fetched = %v, want robots.txt and sitemap only", f.fetched)
		}
	})
}

func TestEngineDiscover(t *testing.T) {
	t.Parallel()

	t.Run("sitemap hit wins over later crawl hit", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/robots.txt":  "Sitemap: https://example.com/sitemap.xml\n",
			"https://example.com/sitemap.xml": urlset("https://example.com/plans/basic"),
			"https://example.com/":            page("/plans/basic"),
			"https://example.com/plans/basic": page(),
		}}

		e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(2))
		inv, err := e.Discover(context.Background(), "https://example.com", []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("Discover() error = %v", err)
		}

		rec, ok := inv.Get("https://example.com/plans/basic")
		if !ok {
			t.Fatal("page not discovered")
		}
		if rec.Source != model.SourceSitemap {
			t.Errorf("Source = %q, want the first-seen sitemap record kept", rec.Source)
		}
	})

	t.Run("identical runs yield identical inventories", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{
			"https://example.com/":            page("/plans/a", "/devices/b"),
			"https://example.com/plans/a":     page("/plans/a"),
			"https://example.com/devices/b":   page("/"),
		}

		run := func() []model.URLRecord {
			f := &stubFetcher{pages: pages}
			e := NewEngine(f, planClassifier(t), WithDelay(0), WithMaxDepth(3))
			inv, err := e.Discover(context.Background(), "https://example.com", []string{"https://example.com/"})
			if err != nil {
				t.Fatalf("Discover() error = %v", err)
			}
			return inv.Records()
		}

		first := run()
		second := run()
		if len(first) != len(second) {
			t.Fatalf("run sizes differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("record %d differs: %+v vs %+v", i, first[i], second[i])
			}
		}
	})
}
