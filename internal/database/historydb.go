package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// HistoryDB provides SQLite-based storage for run history. Every
// executed script can record its outcome so `msl history` can show
// what was crawled, when, and what was saved.
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

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
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
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "msl.db")

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

	// modernc.org/sqlite uses URI-style modes: rw requires the file to
	// exist, rwc allows creation.
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
	-- Runs store one row per executed script
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		script_path TEXT NOT NULL,
		started DATETIME NOT NULL,
		finished DATETIME NOT NULL,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		branches_total INTEGER NOT NULL DEFAULT 0,
		branches_failed INTEGER NOT NULL DEFAULT 0,
		saves_total INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_script ON runs(script_path);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	-- Saves store one row per stored media file
	CREATE TABLE IF NOT EXISTS saves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		source_url TEXT NOT NULL,
		dest_path TEXT NOT NULL,
		FOREIGN KEY(run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_saves_run ON saves(run_id);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run represents one recorded script execution.
type Run struct {
	// ID is the unique run identifier (a UUID assigned at run start).
	ID string

	// ScriptPath is the path of the executed script.
	ScriptPath string

	// Started is when execution began.
	Started time.Time

	// Finished is when execution completed.
	Finished time.Time

	// PagesFetched is the number of pages fetched during the run.
	PagesFetched int

	// BranchesTotal is the number of branches the run explored.
	BranchesTotal int

	// BranchesFailed is the number of branches that ended with an error.
	BranchesFailed int

	// SavesTotal is the number of media files stored.
	SavesTotal int
}

// SavedFile represents one stored media file within a run.
type SavedFile struct {
	// RunID identifies the run that stored the file.
	RunID string

	// SourceURL is the URL the file was downloaded from.
	SourceURL string

	// DestPath is the directory the file was stored under.
	DestPath string
}

// InsertRun records a completed run and its saved files in one
// transaction, so history never shows a run with half its saves.
func (hdb *HistoryDB) InsertRun(ctx context.Context, run *Run, saves []SavedFile) error {
	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
	INSERT INTO runs (id, script_path, started, finished, pages_fetched, branches_total, branches_failed, saves_total)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.ScriptPath,
		run.Started.UTC().Format(time.RFC3339),
		run.Finished.UTC().Format(time.RFC3339),
		run.PagesFetched,
		run.BranchesTotal,
		run.BranchesFailed,
		run.SavesTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	saveQuery := `
	INSERT INTO saves (run_id, source_url, dest_path)
	VALUES (?, ?, ?)
	`
	for _, s := range saves {
		if _, err := tx.ExecContext(ctx, saveQuery, run.ID, s.SourceURL, s.DestPath); err != nil {
			return fmt.Errorf("failed to insert save: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by its identifier. Returns nil without error
// when no run exists with that ID.
func (hdb *HistoryDB) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
	SELECT id, script_path, started, finished, pages_fetched, branches_total, branches_failed, saves_total
	FROM runs
	WHERE id = ?
	`

	var run Run
	var started, finished string

	err := hdb.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.ScriptPath,
		&started,
		&finished,
		&run.PagesFetched,
		&run.BranchesTotal,
		&run.BranchesFailed,
		&run.SavesTotal,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Started = parseTimestamp(started)
	run.Finished = parseTimestamp(finished)

	return &run, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero
// or less means no limit.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, script_path, started, finished, pages_fetched, branches_total, branches_failed, saves_total
	FROM runs
	ORDER BY started DESC
	`
	args := make([]interface{}, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var run Run
		var started, finished string

		err := rows.Scan(
			&run.ID,
			&run.ScriptPath,
			&started,
			&finished,
			&run.PagesFetched,
			&run.BranchesTotal,
			&run.BranchesFailed,
			&run.SavesTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Started = parseTimestamp(started)
		run.Finished = parseTimestamp(finished)
		results = append(results, run)
	}

	return results, rows.Err()
}

// GetSaves retrieves the saved files recorded for a run.
func (hdb *HistoryDB) GetSaves(ctx context.Context, runID string) ([]SavedFile, error) {
	query := `
	SELECT run_id, source_url, dest_path
	FROM saves
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := hdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get saves: %w", err)
	}
	defer rows.Close()

	var results []SavedFile
	for rows.Next() {
		var s SavedFile
		if err := rows.Scan(&s.RunID, &s.SourceURL, &s.DestPath); err != nil {
			return nil, fmt.Errorf("failed to scan save: %w", err)
		}
		results = append(results, s)
	}

	return results, rows.Err()
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

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
