package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run journal operations

// StartRun creates a running test run and returns its ID
func (db *DB) StartRun(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("run name cannot be empty")
	}

	id := uuid.NewString()
	err := db.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO test_runs (id, name, status, started_at)
			VALUES (?, ?, ?, ?)
		`, id, name, RunStatusRunning, time.Now())
		if err != nil {
			return fmt.Errorf("failed to insert test run: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishRun sets the final status of a run
func (db *DB) FinishRun(runID, status, message string) error {
	switch status {
	case RunStatusPassed, RunStatusFailed, RunStatusAborted:
	default:
		return fmt.Errorf("invalid final run status: %s", status)
	}

	return db.ExecTx(func(tx *sql.Tx) error {
		finishedAt := time.Now()

		var startedAt time.Time
		err := tx.QueryRow(`SELECT started_at FROM test_runs WHERE id = ?`, runID).Scan(&startedAt)
		if err == sql.ErrNoRows {
			return fmt.Errorf("run %s not found", runID)
		}
		if err != nil {
			return fmt.Errorf("failed to get run start time: %w", err)
		}

		durationMs := finishedAt.Sub(startedAt).Milliseconds()

		var msg *string
		if message != "" {
			msg = &message
		}

		_, err = tx.Exec(`
			UPDATE test_runs
			SET status = ?, finished_at = ?, duration_ms = ?, message = ?
			WHERE id = ?
		`, status, finishedAt, durationMs, msg, runID)
		return err
	})
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(runID string) (*Run, error) {
	run := &Run{}
	err := db.conn.QueryRow(`
		SELECT id, name, status, started_at, finished_at, duration_ms, message
		FROM test_runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.Name, &run.Status, &run.StartedAt, &run.FinishedAt, &run.DurationMs, &run.Message)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, status, started_at, finished_at, duration_ms, message
		FROM test_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.Name, &run.Status, &run.StartedAt, &run.FinishedAt, &run.DurationMs, &run.Message); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Summarize counts the steps and failures of a run
func (db *DB) Summarize(runID string) (*RunSummary, error) {
	run, err := db.GetRun(runID)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Run: *run}
	err = db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM run_steps WHERE run_id = ?
	`, runID).Scan(&summary.Steps, &summary.FailedSteps)
	if err != nil {
		return nil, fmt.Errorf("failed to count steps: %w", err)
	}

	err = db.conn.QueryRow(`SELECT COUNT(*) FROM run_failures WHERE run_id = ?`, runID).Scan(&summary.Failures)
	if err != nil {
		return nil, fmt.Errorf("failed to count failures: %w", err)
	}
	return summary, nil
}

// DeleteOldRuns removes runs started before olderThan along with their steps and failures
func (db *DB) DeleteOldRuns(olderThan time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM test_runs WHERE started_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}
	return result.RowsAffected()
}
