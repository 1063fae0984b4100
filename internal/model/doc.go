// Package model defines the data structures shared across the discovery
// engine: URL records, the deduplicated inventory, run statistics, and
// the discovery report that pipeline steps accumulate into.
//
// The types here are plain data with no I/O so that every other package
// can depend on them without import cycles.
package model
