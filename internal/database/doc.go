// Package database provides SQLite-based persistence for discovery
// runs, storing each run's summary and URL inventory for later
// history queries.
package database
