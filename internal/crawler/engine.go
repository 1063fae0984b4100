package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/urlscope/urlscope/internal/model"
	"github.com/urlscope/urlscope/internal/scope"
)

// Engine orchestrates a discovery run: sitemap resolution, breadth-first
// crawling, canonical-URL deduplication, and scope classification.
//
// Fetching is strictly sequential with a mandatory politeness delay
// after every fetch. This is a deliberate ordering and politeness
// choice, not an accidental limitation; the visited set is still
// mutex-guarded so the invariants survive a future concurrent fetcher.
type Engine struct {
	// fetcher retrieves pages. Plain HTTP and browser-rendered
	// transports are interchangeable here.
	fetcher Fetcher

	// classifier decides scope membership and entity labels.
	classifier *scope.Classifier

	// robots, when non-nil, gates fetches on robots.txt Disallow rules.
	robots *RobotsGate

	// maxDepth bounds the BFS. 0 fetches only the seeds.
	maxDepth int

	// maxPages caps fetch attempts per run. 0 means no cap.
	maxPages int

	// delay is the politeness pause after every fetch, success or not.
	delay time.Duration

	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth sets the crawl depth bound. 0 fetches only the seeds.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithMaxPages caps the number of fetch attempts in one run.
func WithMaxPages(n int) EngineOption {
	return func(e *Engine) {
		e.maxPages = n
	}
}

// WithDelay sets the politeness delay between fetches.
func WithDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.delay = d
	}
}

// WithRobotsGate enables robots.txt Disallow checking.
func WithRobotsGate(gate *RobotsGate) EngineOption {
	return func(e *Engine) {
		e.robots = gate
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine using the given fetcher and classifier.
func NewEngine(fetcher Fetcher, classifier *scope.Classifier, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:    fetcher,
		classifier: classifier,
		maxDepth:   2,
		maxPages:   500,
		delay:      750 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Discover runs the full discovery for one base domain: sitemap
// candidates first, then the BFS crawl from the seeds. The returned
// inventory holds whatever was accumulated even when the context is
// cancelled mid-run; cancellation is reported via the error.
func (e *Engine) Discover(ctx context.Context, base string, seeds []string) (*model.Inventory, error) {
	inv := model.NewInventory()

	if err := e.DiscoverSitemaps(ctx, base, inv); err != nil {
		return inv, err
	}
	if err := e.Crawl(ctx, base, seeds, inv); err != nil {
		return inv, err
	}

	return inv, nil
}

// DiscoverSitemaps resolves the base's sitemaps and records in-scope
// candidates directly, without fetching them: sitemap URLs are trusted
// to exist. Off-domain and out-of-scope candidates are tallied.
func (e *Engine) DiscoverSitemaps(ctx context.Context, base string, inv *model.Inventory) error {
	baseURL, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", base, err)
	}

	resolver := NewSitemapResolver(e.fetcher, WithSitemapLogger(e.logger))
	candidates, pruned := resolver.Resolve(ctx, base)
	inv.Stats.SitemapErrors += pruned
	inv.Stats.SitemapURLs += len(candidates)

	// A throwaway frontier supplies the domain-scoping check; nothing
	// here is enqueued or fetched.
	frontier := NewFrontier(baseURL, 0)

	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !frontier.InDomain(candidate) {
			inv.Stats.OffDomain++
			continue
		}

		normalized := normalizeURL(candidate)
		inScope, entity := e.classifier.Classify(normalized)
		if !inScope {
			inv.Stats.OutOfScope++
			continue
		}

		inv.Record(model.URLRecord{
			URL:    normalized,
			Entity: entity,
			Source: model.SourceSitemap,
		})
	}

	e.logger.Info("sitemap resolution complete",
		"base", base,
		"candidates", len(candidates),
		"pruned", pruned,
		"hits", inv.Len(),
	)

	return nil
}

// Crawl drives the breadth-first traversal from the seeds, fetching
// each frontier URL at most once, classifying its canonical form, and
// enqueuing same-domain children up to the depth bound.
//
// A failed fetch is skipped and tallied, never retried; the politeness
// delay still applies. The loop checks cancellation between dequeue
// cycles and returns the context error with partial results intact.
func (e *Engine) Crawl(ctx context.Context, base string, seeds []string, inv *model.Inventory) error {
	baseURL, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", base, err)
	}

	frontier := NewFrontier(baseURL, e.maxDepth)
	if accepted := frontier.Seed(seeds); accepted < len(seeds) {
		e.logger.Warn("dropped off-domain seeds",
			"base", base,
			"dropped", len(seeds)-accepted,
		)
	}

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pageURL, depth, ok := frontier.Next()
		if !ok {
			break
		}
		if e.maxPages > 0 && attempts >= e.maxPages {
			e.logger.Warn("page cap reached", "base", base, "maxPages", e.maxPages)
			break
		}

		if e.robots != nil && !e.robots.Allowed(ctx, pageURL) {
			inv.Stats.RobotsDenied++
			e.logger.Debug("robots disallow", "url", pageURL)
			continue
		}

		attempts++
		links := e.visit(ctx, pageURL, depth, frontier, inv)

		for _, link := range links {
			if !frontier.InDomain(link) {
				inv.Stats.OffDomain++
				continue
			}
			frontier.Push(link, depth+1)
		}

		// Mandatory politeness delay, applied whether the fetch
		// succeeded or failed.
		if err := e.sleep(ctx); err != nil {
			return err
		}
	}

	return nil
}

// visit fetches one page, records its canonical form when in scope, and
// returns the extracted outbound links. Failures are tallied and yield
// no links.
func (e *Engine) visit(ctx context.Context, pageURL string, depth int, frontier *Frontier, inv *model.Inventory) []string {
	res, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		inv.Stats.FetchErrors++
		e.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return nil
	}
	if !res.IsSuccess() {
		inv.Stats.HTTPErrors++
		e.logger.Debug("non-success status", "url", pageURL, "status", res.StatusCode)
		return nil
	}
	inv.Stats.PagesFetched++

	parsed, err := ParsePage(bytes.NewReader(res.Body), res.FinalURL)
	if err != nil {
		inv.Stats.ParseErrors++
		e.logger.Debug("parse failed", "url", pageURL, "error", err)
		return nil
	}

	// The canonical form is always the unit of dedup and
	// classification: the declared canonical link if present,
	// otherwise the URL actually served after redirects.
	canonical := normalizeURL(res.FinalURL)
	if parsed.Canonical != "" {
		canonical = normalizeURL(parsed.Canonical)
	}
	frontier.MarkVisited(canonical)

	inScope, entity := e.classifier.Classify(canonical)
	if inScope {
		inv.Record(model.URLRecord{
			URL:    canonical,
			Entity: entity,
			Source: model.SourceCrawl,
			Depth:  depth,
		})
	} else {
		inv.Stats.OutOfScope++
	}

	return parsed.Links
}

// sleep waits out the politeness delay, aborting early on cancellation.
func (e *Engine) sleep(ctx context.Context) error {
	if e.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
