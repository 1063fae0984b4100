package pipeline

import (
	"context"
	"log/slog"

	"github.com/urlscope/urlscope/internal/crawler"
	"github.com/urlscope/urlscope/internal/model"
)

// SitemapStep resolves the base domain's sitemaps and records in-scope
// candidates in the report's inventory.
//
// Design decision: sitemap resolution runs as its own step rather than
// inside the crawl because its candidates are trusted without fetching.
// Running it first also lets the crawl's canonical dedup skip pages the
// sitemap already claimed.
type SitemapStep struct {
	// engine performs the resolution and classification.
	engine *crawler.Engine

	// logger for structured logging.
	logger *slog.Logger
}

// SitemapStepOption configures a SitemapStep.
type SitemapStepOption func(*SitemapStep)

// WithSitemapStepLogger sets a custom logger for the sitemap step.
func WithSitemapStepLogger(logger *slog.Logger) SitemapStepOption {
	return func(s *SitemapStep) {
		s.logger = logger
	}
}

// NewSitemapStep creates a sitemap resolution step backed by the engine.
func NewSitemapStep(engine *crawler.Engine, opts ...SitemapStepOption) *SitemapStep {
	s := &SitemapStep{
		engine: engine,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SitemapStep) Name() string {
	return "sitemap_resolution"
}

// Do executes the sitemap resolution step.
func (s *SitemapStep) Do(ctx context.Context, report *model.DiscoveryReport) error {
	before := report.Inventory.Len()
	if err := s.engine.DiscoverSitemaps(ctx, report.Base, report.Inventory); err != nil {
		return err
	}

	s.logger.Debug("sitemap step done",
		"base", report.Base,
		"new_urls", report.Inventory.Len()-before,
	)
	return nil
}

// CrawlStep runs the breadth-first crawl from the report's seeds,
// adding in-scope pages to the inventory.
type CrawlStep struct {
	// engine performs the crawl.
	engine *crawler.Engine

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlStepLogger sets a custom logger for the crawl step.
func WithCrawlStepLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step backed by the engine.
func NewCrawlStep(engine *crawler.Engine, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		engine: engine,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, report *model.DiscoveryReport) error {
	if err := s.engine.Crawl(ctx, report.Base, report.Seeds, report.Inventory); err != nil {
		return err
	}

	s.logger.Debug("crawl step done",
		"base", report.Base,
		"total_urls", report.Inventory.Len(),
		"pages_fetched", report.Inventory.Stats.PagesFetched,
	)
	return nil
}

// SummaryStep condenses the inventory into the report's summary,
// partitioning records into priority tiers.
//
// This step never fails: a summary can always be built, even from an
// empty inventory.
type SummaryStep struct {
	// highPriorityEntities are the entity labels assigned to the P1 tier.
	highPriorityEntities []string
}

// NewSummaryStep creates a summary step with the given high-priority
// entity labels.
func NewSummaryStep(highPriorityEntities []string) *SummaryStep {
	return &SummaryStep{highPriorityEntities: highPriorityEntities}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do builds the report's summary.
func (s *SummaryStep) Do(_ context.Context, report *model.DiscoveryReport) error {
	report.Summary = model.NewSummary(report, s.highPriorityEntities)
	return nil
}
