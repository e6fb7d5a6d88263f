package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Failure logging operations

// RecordFailure stores a failure of a run
func (db *DB) RecordFailure(runID string, f *Failure) (int64, error) {
	if f.Category == "" || f.Operation == "" {
		return 0, fmt.Errorf("failure category and operation are required")
	}
	occurredAt := f.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	severity := f.Severity
	if severity == "" {
		severity = "high"
	}

	var failureID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO run_failures (
				run_id, category, severity, operation, element,
				message, screenshot_path, occurred_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, f.Category, severity, f.Operation, f.Element,
			f.Message, f.ScreenshotPath, occurredAt)
		if err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}

		failureID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return failureID, nil
}

// ListFailures returns the failures of a run, oldest first
func (db *DB) ListFailures(runID string) ([]*Failure, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, category, severity, operation, element,
			message, screenshot_path, occurred_at
		FROM run_failures
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	return scanFailures(rows)
}

// GetRecentFailures returns the most recent failures across runs
func (db *DB) GetRecentFailures(limit int) ([]*Failure, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, category, severity, operation, element,
			message, screenshot_path, occurred_at
		FROM run_failures
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	return scanFailures(rows)
}

// GetFailureStatsByCategory counts failures per category, optionally for one run
func (db *DB) GetFailureStatsByCategory(runID string) (map[string]int, error) {
	query := `SELECT category, COUNT(*) FROM run_failures`
	var args []interface{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` GROUP BY category`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query failure stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats[category] = count
	}
	return stats, rows.Err()
}

func scanFailures(rows *sql.Rows) ([]*Failure, error) {
	var failures []*Failure
	for rows.Next() {
		f := &Failure{}
		var element sql.NullString
		if err := rows.Scan(&f.ID, &f.RunID, &f.Category, &f.Severity, &f.Operation, &element,
			&f.Message, &f.ScreenshotPath, &f.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Element = element.String
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
