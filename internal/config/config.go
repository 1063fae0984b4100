package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the behavior of typical polite discovery crawls: shallow
// depth, conservative delay, generous timeout.
const (
	// DefaultTimeout is the per-request network timeout.
	// 15 seconds accommodates slow corporate sites behind SSO gateways
	// without letting a single stuck request stall the whole run.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxDepth bounds the BFS crawl. Depth 0 means only the seeds;
	// 2 reaches everything linked from a seed or from a seed's children,
	// which covers most marketing site structures.
	DefaultMaxDepth = 2

	// DefaultDelay is the mandatory politeness pause between fetches.
	// It applies after every fetch, success or failure.
	DefaultDelay = 750 * time.Millisecond

	// DefaultMaxPages is a safety bound on pages fetched per run.
	// It prevents runaway crawls on calendar-style infinitely-generating
	// sites even when the depth bound alone would not.
	DefaultMaxPages = 500

	// DefaultBatchSize is the number of base domains discovered
	// concurrently when several targets are given.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies urlscope in HTTP requests.
	// A descriptive User-Agent lets site operators attribute the traffic.
	DefaultUserAgent = "urlscope/1.0 (+https://github.com/urlscope/urlscope)"

	// DefaultMaxBodySize limits how much of a response body is read.
	// 5MB is ample for HTML pages and large sitemaps while preventing
	// memory exhaustion from unexpected responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "urlscope"
)

// DefaultHighPriorityEntities are the entity labels that receive tier P1
// in materialized inventories when the config file does not override them.
func DefaultHighPriorityEntities() []string {
	return []string{"plan", "device", "promo"}
}

// Config holds all options for a discovery invocation.
// It is populated from CLI flags plus the pattern file and passed through
// the application by dependency injection rather than global state.
type Config struct {
	// Timeout is the network timeout applied to each fetch.
	Timeout time.Duration

	// MaxDepth is the BFS depth bound. 0 fetches only the seeds.
	MaxDepth int

	// Delay is the politeness delay between successive fetches.
	Delay time.Duration

	// MaxPages caps the number of pages fetched in one run.
	MaxPages int

	// BatchSize is the number of concurrent discoveries when multiple
	// base domains are given.
	BatchSize int

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// ConfigFilePath is the pattern/site configuration file path.
	// Empty means search .urlscope in the current then home directory.
	ConfigFilePath string

	// SiteConfigs holds seeds and pattern rules loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON inventory output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown inventory output.
	MarkdownReport bool

	// ReportFile writes the inventory to this path instead of stdout.
	ReportFile string

	// Targets is the list of base URLs to discover.
	Targets []string

	// RespectRobots enables robots.txt Disallow checking during the crawl.
	// Sitemap resolution reads robots.txt regardless of this setting.
	RespectRobots bool

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// DBDir is the directory holding the SQLite run-history database.
	// Empty disables persistence.
	DBDir string

	// SaveToDB indicates whether run results are stored in the database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
//
// Design decision: a constructor rather than zero values, because most
// defaults are non-zero and the constructor documents them in one place.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		MaxDepth:      DefaultMaxDepth,
		Delay:         DefaultDelay,
		MaxPages:      DefaultMaxPages,
		BatchSize:     DefaultBatchSize,
		RespectRobots: true,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for urlscope.
// On Linux: ~/.local/share/urlscope
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for urlscope.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after CLI parsing, before any discovery begins, so
// that configuration errors fail fast with a clear message.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
