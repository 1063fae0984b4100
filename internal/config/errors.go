package config

import "errors"

// Configuration validation errors returned by Config.Validate().
//
// Design decision: package-level sentinel errors rather than fresh
// instances in Validate(), so callers can use errors.Is() while still
// getting human-readable messages.
var (
	// ErrNoTarget is returned when no base URL was given.
	ErrNoTarget = errors.New("no target specified: provide one or more base URLs")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	// Depth 0 is valid and fetches only the seeds.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoSeeds is returned when a target has neither configured seeds
	// nor a usable base URL to seed from.
	ErrNoSeeds = errors.New("no seeds available for target")
)
