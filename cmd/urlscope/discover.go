package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/urlscope/urlscope/internal/config"
	"github.com/urlscope/urlscope/internal/crawler"
	"github.com/urlscope/urlscope/internal/database"
	"github.com/urlscope/urlscope/internal/log"
	"github.com/urlscope/urlscope/internal/model"
	"github.com/urlscope/urlscope/internal/pipeline"
	"github.com/urlscope/urlscope/internal/report"
)

// NewDiscoverCmd creates the discover command.
func NewDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover [base-url...]",
		Short: "Discover the in-scope URLs of a website",
		Long: `Discover builds the deduplicated URL inventory for one or more base domains.

For each base it resolves robots.txt sitemap declarations (recursing
through sitemap indexes), crawls breadth-first from the seeds while
staying within the base domain, classifies every canonical URL against
the configured include/exclude patterns, and reports each in-scope URL
exactly once with its entity label.

Examples:
  # Discover a single site using patterns from .urlscope
  urlscope discover https://pulse.example.com

  # Discover several sites concurrently
  urlscope discover https://a.example.com https://b.example.com

  # Deeper crawl with a slower politeness delay
  urlscope discover -d 3 --delay 2s https://pulse.example.com

  # JSON inventory for the scraping pipeline
  urlscope discover --json -o inventory.json https://pulse.example.com

Configuration file (.urlscope) example:
  sites:
    pulse.example.com:
      include:
        - pattern: "^/plans(/|$)"
          entity: plan
      exclude:
        - "/archive/"
      cookie: "session_id=abc123"`,
		Args: cobra.ArbitraryArgs,
		RunE: runDiscoverCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum crawl depth (0 fetches only the seeds)")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Politeness delay between fetches")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch per base domain")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("no-robots", false,
		"Skip robots.txt Disallow checking during the crawl")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of base domains discovered concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .urlscope in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON inventory (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown inventory (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the inventory to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not record the run in the history database")

	return cmd
}

// runDiscoverCmd executes the discover command.
func runDiscoverCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging. The secure handler masks session
	// cookies and auth headers that per-site configs may carry.
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runDiscover(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	noRobots, err := cmd.Flags().GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !noRobots

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the base URLs
	cfg.Targets = args

	return cfg, nil
}

// runDiscover executes the discovery.
func runDiscover(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more base URLs as arguments)")
	}

	// Normalize all base URLs before any work begins
	for i, target := range cfg.Targets {
		normalized, err := normalizeBase(target)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", target, err)
		}
		cfg.Targets[i] = normalized
	}

	logger.Info("starting discovery",
		"targets", cfg.Targets,
		"depth", cfg.MaxDepth,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Build the target list with per-site seeds and compile each
	// site's classifier up front so pattern errors fail fast.
	targets := make([]pipeline.Target, 0, len(cfg.Targets))
	factories := make(map[string]func() *pipeline.Pipeline, len(cfg.Targets))
	for _, base := range cfg.Targets {
		target, factory, err := preparePipeline(base, cfg, logger)
		if err != nil {
			return err
		}
		targets = append(targets, target)
		factories[base] = factory
	}

	factory := func(t pipeline.Target) *pipeline.Pipeline {
		return factories[t.Base]()
	}

	// Use batch processor for concurrent discovery if multiple targets
	if len(targets) > 1 && cfg.BatchSize > 1 {
		return runBatchDiscover(ctx, cfg, targets, factory, db, logger)
	}

	return runSequentialDiscover(ctx, cfg, targets, factory, db, logger)
}

// runSequentialDiscover discovers targets one at a time.
func runSequentialDiscover(ctx context.Context, cfg *config.Config, targets []pipeline.Target, factory func(pipeline.Target) *pipeline.Pipeline, db *database.HistoryDB, logger *slog.Logger) error {
	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := factory(target)
		discoveryReport := model.NewDiscoveryReport(target.Base, target.Seeds)

		fmt.Printf("Discovering %s...\n", target.Base)

		if err := p.Execute(ctx, discoveryReport); err != nil {
			logger.Error("discovery failed", "base", target.Base, "error", err)
			fmt.Fprintf(os.Stderr, "Discovery error for %s: %v\n", target.Base, err)
			// Partial results are valid results: fall through and emit
			// whatever the run accumulated.
		}

		fmt.Printf("Discovery completed in %s: %d URL(s)\n\n",
			discoveryReport.Elapsed.Round(time.Millisecond), discoveryReport.Inventory.Len())

		if err := outputReport(cfg, discoveryReport); err != nil {
			logger.Error("report failed", "base", target.Base, "error", err)
		}

		if err := saveDiscoveryReport(ctx, db, discoveryReport, logger); err != nil {
			logger.Error("failed to save run", "base", target.Base, "error", err)
		}

		if discoveryReport.Cancelled {
			return context.Canceled
		}
	}

	return nil
}

// runBatchDiscover discovers multiple targets concurrently using BatchProcessor.
func runBatchDiscover(ctx context.Context, cfg *config.Config, targets []pipeline.Target, factory func(pipeline.Target) *pipeline.Pipeline, db *database.HistoryDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch discovery of %d targets (concurrency: %d)...\n\n",
		len(targets), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, targets, func(discoveryReport *model.DiscoveryReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Discovery completed: %s (%d URLs)\n",
			index+1, len(targets), discoveryReport.Base, discoveryReport.Inventory.Len())

		if err := outputReport(cfg, discoveryReport); err != nil {
			logger.Error("report failed", "base", discoveryReport.Base, "error", err)
		}

		if err := saveDiscoveryReport(ctx, db, discoveryReport, logger); err != nil {
			logger.Error("failed to save run", "base", discoveryReport.Base, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch discovery completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// preparePipeline builds the pipeline.Target and a pipeline factory for
// one base URL, binding its site config (seeds, patterns, session) and
// compiling its classifier.
func preparePipeline(base string, cfg *config.Config, logger *slog.Logger) (pipeline.Target, func() *pipeline.Pipeline, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return pipeline.Target{}, nil, fmt.Errorf("invalid base URL %q: %w", base, err)
	}

	siteConfig := cfg.SiteConfigs.GetSiteConfig(baseURL.Hostname())

	classifier, err := siteConfig.CompileClassifier()
	if err != nil {
		return pipeline.Target{}, nil, fmt.Errorf("invalid patterns for %s: %w", baseURL.Hostname(), err)
	}
	if classifier.IncludeCount() == 0 {
		logger.Warn("no include patterns configured; nothing will be in scope",
			"base", base,
		)
	}

	seeds := siteConfig.Seeds
	if len(seeds) == 0 {
		seeds = []string{base}
	}

	// Site-specific overrides on top of global flags
	depth := cfg.MaxDepth
	if siteConfig.Depth > 0 {
		depth = siteConfig.Depth
	}
	delay := cfg.Delay
	if siteConfig.Delay > 0 {
		delay = time.Duration(siteConfig.Delay)
	}
	highPriority := siteConfig.HighPriority
	if len(highPriority) == 0 {
		highPriority = config.DefaultHighPriorityEntities()
	}

	fetcherOpts := []crawler.HTTPFetcherOption{
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	}
	if siteConfig.Cookie != "" {
		fetcherOpts = append(fetcherOpts, crawler.WithCookie(siteConfig.Cookie))
	}
	if len(siteConfig.Headers) > 0 {
		fetcherOpts = append(fetcherOpts, crawler.WithHeaders(siteConfig.Headers))
	}
	fetcher := crawler.NewHTTPFetcher(fetcherOpts...)

	engineOpts := []crawler.EngineOption{
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(delay),
		crawler.WithLogger(logger),
	}
	if cfg.RespectRobots {
		engineOpts = append(engineOpts, crawler.WithRobotsGate(
			crawler.NewRobotsGate(fetcher, cfg.UserAgent),
		))
	}

	target := pipeline.Target{Base: base, Seeds: seeds}
	factory := func() *pipeline.Pipeline {
		engine := crawler.NewEngine(fetcher, classifier, engineOpts...)

		p := pipeline.New(
			pipeline.WithLogger(logger),
			pipeline.WithContinueOnError(true),
		)
		p.AddSteps(
			pipeline.NewSitemapStep(engine, pipeline.WithSitemapStepLogger(logger)),
			pipeline.NewCrawlStep(engine, pipeline.WithCrawlStepLogger(logger)),
			pipeline.NewSummaryStep(highPriority),
		)
		return p
	}

	return target, factory, nil
}

// normalizeBase validates a base URL and applies https:// when the
// scheme is missing.
func normalizeBase(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("empty URL")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", errors.New("missing host")
	}

	return strings.TrimSuffix(u.String(), "/"), nil
}

// outputReport outputs the discovery report in the requested format.
func outputReport(cfg *config.Config, discoveryReport *model.DiscoveryReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Inventories may include authenticated URLs; keep them
		// owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.Write(discoveryReport)
	return err
}

// saveDiscoveryReport saves the run to the history database if enabled.
// If db is nil, this function is a no-op.
func saveDiscoveryReport(ctx context.Context, db *database.HistoryDB, discoveryReport *model.DiscoveryReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	runID, err := db.SaveRun(ctx, discoveryReport)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("run saved to history", "base", discoveryReport.Base, "runID", runID)
	return nil
}
