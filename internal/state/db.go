// Package state provides checkpoint persistence for surge runs.
// It handles the project-local store (.surge/state.db) and an optional
// global store (~/.local/share/surge/surge.db).
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	// DriverSQLite is the pure Go modernc.org/sqlite driver.
	DriverSQLite = "sqlite"
	// DriverSQLite3 is the cgo github.com/mattn/go-sqlite3 driver.
	DriverSQLite3 = "sqlite3"
)

// DB wraps an SQLite database connection with checkpoint operations.
type DB struct {
	conn   *sql.DB
	path   string
	driver string
	mu     sync.RWMutex
}

// GlobalDBPath returns the path to the global surge database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "surge", "surge.db")
}

// ProjectDBPath returns the path to the project-local database.
func ProjectDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".surge", "state.db")
}

// Open opens an SQLite database at the given path with the default driver.
func Open(path string) (*DB, error) {
	return OpenWithDriver(DriverSQLite, path)
}

// OpenWithDriver opens an SQLite database using the named driver.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func OpenWithDriver(driver, path string) (*DB, error) {
	switch driver {
	case "":
		driver = DriverSQLite
	case DriverSQLite, DriverSQLite3:
	default:
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &DB{
		conn:   conn,
		path:   path,
		driver: driver,
	}, nil
}

// OpenProject opens the project-local database.
func OpenProject(projectRoot string) (*DB, error) {
	return Open(ProjectDBPath(projectRoot))
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Create schema version table
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return v, nil
}

var migrations = []struct {
	version int
	sql     string
}{
	{1, migrationV1Runs},
	{2, migrationV2Checkpoints},
	{3, migrationV3Decisions},
	{4, migrationV4Barriers},
}

// Migration SQL statements
const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	task_hash TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'running',
	reason TEXT NOT NULL DEFAULT '',
	stopped_at_wave INTEGER NOT NULL DEFAULT -1,
	task_count INTEGER NOT NULL DEFAULT 0,
	wave_count INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL,
	ended_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

const migrationV2Checkpoints = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	wave_index INTEGER NOT NULL,
	task_id TEXT NOT NULL,
	status TEXT NOT NULL,
	attempt INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME,
	ended_at DATETIME,
	result TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, wave_index, task_id)
);

CREATE TABLE IF NOT EXISTS checkpoint_attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	wave_index INTEGER NOT NULL,
	task_id TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	status TEXT NOT NULL,
	started_at DATETIME,
	ended_at DATETIME,
	result TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_attempts_task ON checkpoint_attempts(run_id, task_id);
`

const migrationV3Decisions = `
CREATE TABLE IF NOT EXISTS scaling_decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	wave_index INTEGER NOT NULL,
	concurrency INTEGER NOT NULL,
	mode TEXT NOT NULL,
	resource_class TEXT NOT NULL,
	task_count INTEGER NOT NULL,
	rationale TEXT NOT NULL,
	decided_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_run ON scaling_decisions(run_id, wave_index);
`

const migrationV4Barriers = `
CREATE TABLE IF NOT EXISTS wave_barriers (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	wave_index INTEGER NOT NULL,
	state TEXT NOT NULL,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	completed_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, wave_index)
);
`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	return db.ExecContext(context.Background(), query, args...)
}

// ExecContext executes a query that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(context.Background(), query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	return db.QueryRowContext(context.Background(), query, args...)
}

// QueryRowContext executes a query that returns at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRowContext(ctx, query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullableTime formats a zero time as NULL.
func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

// parseNullableTime parses a nullable time string from SQLite.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := parseTime(s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// PurgeOldRuns deletes finished runs that started before olderThan ago,
// together with their checkpoints, attempts, decisions and barriers.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	var count int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		const stale = `SELECT id FROM runs WHERE started_at < ? AND status != 'running'`
		for _, table := range []string{"checkpoint_attempts", "checkpoints", "scaling_decisions", "wave_barriers"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id IN ("+stale+")", cutoff); err != nil {
				return fmt.Errorf("purge %s: %w", table, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ? AND status != 'running'`, cutoff)
		if err != nil {
			return fmt.Errorf("purge old runs: %w", err)
		}
		count, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
