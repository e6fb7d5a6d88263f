package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"jordanella.com/desktop-uitest/internal/logging"
)

// busyTimeout bounds how long a writer waits on a locked journal
const busyTimeout = 5 * time.Second

// DB wraps the SQLite run journal connection
type DB struct {
	conn   *sql.DB
	path   string
	logger *logging.Logger
}

// Stats summarises the journal contents
type Stats struct {
	Version  int
	Runs     int64
	Steps    int64
	Failures int64
}

// Open opens or creates the journal at dbPath, creating its directory
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", fmt.Sprint(busyTimeout.Milliseconds()))

	conn, err := sql.Open("sqlite3", dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open journal %s: %w", dbPath, err)
	}

	// One writer at a time; steps are recorded from a single engine
	conn.SetMaxOpenConns(1)

	return &DB{
		conn:   conn,
		path:   dbPath,
		logger: logging.NewNopLogger(),
	}, nil
}

// SetLogger sets the logger used for migration progress
func (db *DB) SetLogger(logger *logging.Logger) {
	db.logger = logger
}

// Close closes the journal
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Path returns the journal file path
func (db *DB) Path() string {
	return db.path
}

// ExecTx runs fn in a transaction, rolling back if fn fails
func (db *DB) ExecTx(fn func(*sql.Tx) error) (err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// GetVersion returns the current schema version
func (db *DB) GetVersion() (int, error) {
	return db.getCurrentVersion()
}

// GetStats counts runs, steps and failures in the journal
func (db *DB) GetStats() (*Stats, error) {
	version, err := db.getCurrentVersion()
	if err != nil {
		return nil, err
	}
	stats := &Stats{Version: version}
	err = db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM test_runs),
			(SELECT COUNT(*) FROM run_steps),
			(SELECT COUNT(*) FROM run_failures)
	`).Scan(&stats.Runs, &stats.Steps, &stats.Failures)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal rows: %w", err)
	}
	return stats, nil
}

// Snapshot writes a consistent copy of the journal to path, replacing any
// existing file, e.g. to attach it to a report
func (db *DB) Snapshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	if _, err := db.conn.Exec(`VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("failed to snapshot journal: %w", err)
	}
	return nil
}

// Prune deletes runs started before olderThan and compacts the file
func (db *DB) Prune(olderThan time.Time) (int64, error) {
	removed, err := db.DeleteOldRuns(olderThan)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		if _, err := db.conn.Exec("VACUUM"); err != nil {
			return removed, fmt.Errorf("failed to compact journal: %w", err)
		}
		db.logger.InfoWithContext("journal pruned", map[string]interface{}{"runs": removed})
	}
	return removed, nil
}
