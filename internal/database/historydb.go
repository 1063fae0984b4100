package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/urlscope/urlscope/internal/model"
)

// HistoryDB provides SQLite-based storage for discovery runs and their
// URL inventories.
//
// Design decision: one database file holds every run rather than one
// file per base domain. Cross-run queries (history listings, diffing a
// base over time) stay simple, and backup is a single file copy.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created as needed; otherwise a missing database is an error.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "urlscope.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Runs store one row per discovery run plus the full report as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base TEXT NOT NULL,
		started DATETIME DEFAULT CURRENT_TIMESTAMP,
		elapsed_ms INTEGER DEFAULT 0,
		url_count INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		error_message TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_base ON runs(base);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	-- URLs store the per-run inventory, one row per canonical URL
	CREATE TABLE IF NOT EXISTS urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		entity TEXT NOT NULL,
		source TEXT NOT NULL,
		depth INTEGER DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'todo',
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_urls_run ON urls(run_id);
	CREATE INDEX IF NOT EXISTS idx_urls_entity ON urls(entity);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun persists a discovery report and its inventory, returning the
// new run's database ID. The run row and its URL rows are written in
// one transaction so a failed save leaves no partial run behind.
func (hdb *HistoryDB) SaveRun(ctx context.Context, report *model.DiscoveryReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (base, started, elapsed_ms, url_count, cancelled, error_message, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.Base,
		report.DateStarted.UTC().Format("2006-01-02 15:04:05"),
		report.Elapsed.Milliseconds(),
		report.Inventory.Len(),
		report.Cancelled,
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO urls (run_id, url, entity, source, depth, status)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		entity = excluded.entity,
		source = excluded.source,
		depth = excluded.depth,
		status = excluded.status
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare url insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range report.Inventory.Records() {
		if _, err := stmt.ExecContext(ctx, runID, rec.URL, rec.Entity, string(rec.Source), rec.Depth, rec.Status); err != nil {
			return 0, fmt.Errorf("failed to insert url %s: %w", rec.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunMetadata contains summary information about a stored run.
// Used for history listings without loading the full report.
type RunMetadata struct {
	// ID is the run's database identifier.
	ID int64

	// Base is the base URL the run was scoped to.
	Base string

	// Started is when the run began.
	Started time.Time

	// Elapsed is the total run duration.
	Elapsed time.Duration

	// URLCount is the number of unique URLs the run discovered.
	URLCount int

	// Cancelled is true when the run was interrupted.
	Cancelled bool

	// ErrorMessage holds the run's first error, if any.
	ErrorMessage string
}

// ListRuns returns metadata for stored runs, newest first. An empty
// base lists runs for every base.
func (hdb *HistoryDB) ListRuns(ctx context.Context, base string) ([]RunMetadata, error) {
	query := `
	SELECT id, base, started, elapsed_ms, url_count, cancelled, error_message
	FROM runs
	`
	args := make([]any, 0, 1)
	if base != "" {
		query += " WHERE base = ?"
		args = append(args, base)
	}
	query += " ORDER BY started DESC, id DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var started string
		var elapsedMS int64
		var errMsg sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Base, &started, &elapsedMS, &meta.URLCount, &meta.Cancelled, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.Started = parseTimestamp(started)
		meta.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if errMsg.Valid {
			meta.ErrorMessage = errMsg.String
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun retrieves a full discovery report by run ID.
// A missing run returns (nil, nil).
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (*model.DiscoveryReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.DiscoveryReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetLatestRun retrieves the most recent run for a base URL.
// No stored run returns (nil, nil).
func (hdb *HistoryDB) GetLatestRun(ctx context.Context, base string) (*model.DiscoveryReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, `
	SELECT report_json FROM runs
	WHERE base = ?
	ORDER BY started DESC, id DESC
	LIMIT 1
	`, base).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	var report model.DiscoveryReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetRunURLs retrieves the stored inventory rows for a run, sorted by URL.
func (hdb *HistoryDB) GetRunURLs(ctx context.Context, runID int64) ([]model.URLRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT url, entity, source, depth, status
	FROM urls
	WHERE run_id = ?
	ORDER BY url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run urls: %w", err)
	}
	defer rows.Close()

	var records []model.URLRecord
	for rows.Next() {
		var rec model.URLRecord
		var source string
		if err := rows.Scan(&rec.URL, &rec.Entity, &source, &rec.Depth, &rec.Status); err != nil {
			return nil, fmt.Errorf("failed to scan url record: %w", err)
		}
		rec.Source = model.DiscoverySource(source)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListBases returns every base URL with at least one stored run.
func (hdb *HistoryDB) ListBases(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `SELECT DISTINCT base FROM runs ORDER BY base`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bases: %w", err)
	}
	defer rows.Close()

	var bases []string
	for rows.Next() {
		var base string
		if err := rows.Scan(&base); err != nil {
			return nil, fmt.Errorf("failed to scan base: %w", err)
		}
		bases = append(bases, base)
	}

	return bases, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats; SQLite returns different formats depending on configuration.
// Returns zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
