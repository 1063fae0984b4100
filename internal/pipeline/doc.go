// Package pipeline orchestrates discovery runs as ordered steps over a
// shared report: sitemap resolution, crawling, and summary building.
// BatchProcessor runs the pipeline across multiple base domains with
// bounded concurrency.
package pipeline
