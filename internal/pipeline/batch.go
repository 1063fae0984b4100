package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/urlscope/urlscope/internal/model"
	"golang.org/x/sync/errgroup"
)

// Target is one base domain to discover, with the seeds its crawl
// starts from.
type Target struct {
	// Base is the base URL scoping the run.
	Base string

	// Seeds are the crawl's starting URLs. An empty list runs sitemap
	// resolution only.
	Seeds []string
}

// BatchProcessor handles concurrent discovery of multiple base domains.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-run execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
//
// Concurrency here is across domains; within one domain fetching stays
// sequential so per-site politeness holds.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each target.
	// Per-site configuration (scope rules, delay, session cookie) is
	// bound inside the factory.
	pipelineFactory func(target Target) *Pipeline

	// concurrency is the maximum number of domains discovered at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed discovery reports.
	// Access is synchronized via mutex.
	results []*model.DiscoveryReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent domain runs.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each target to create a
// fresh pipeline instance. This ensures that pipeline state doesn't
// leak between runs and binds per-site configuration to each run.
func NewBatchProcessor(pipelineFactory func(target Target) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*model.DiscoveryReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch discovers multiple base domains concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each target gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected, even for targets that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []Target) ([]*model.DiscoveryReport, error) {
	bp.logger.Info("starting batch discovery",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.DiscoveryReport, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("discovering target",
				"base", target.Base,
				"index", i+1,
				"total", len(targets),
			)

			report := model.NewDiscoveryReport(target.Base, target.Seeds)

			pipeline := bp.pipelineFactory(target)
			err := pipeline.Execute(ctx, report)

			// Store result regardless of error; partial results are
			// valid results and the report carries the error itself.
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("discovery failed",
					"base", target.Base,
					"error", err,
				)
				// Don't return the error to errgroup - other targets
				// should continue.
				return nil
			}

			bp.logger.Info("discovery completed",
				"base", target.Base,
				"urls", report.Inventory.Len(),
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch discovery complete",
		"total_targets", len(targets),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback discovers multiple targets and calls a
// callback for each completed run. This is useful for streaming results.
//
// The callback receives the report and the index of the target in the
// original slice. The callback is called from the goroutine that
// completed the run, so it should be thread-safe if it accesses shared
// state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []Target,
	callback func(report *model.DiscoveryReport, index int),
) error {
	bp.logger.Info("starting batch discovery with callback",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewDiscoveryReport(target.Base, target.Seeds)
			pipeline := bp.pipelineFactory(target)
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report

			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
