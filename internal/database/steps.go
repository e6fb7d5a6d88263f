package database

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordStep appends an engine step to a run
func (db *DB) RecordStep(runID, action, target string, success bool, duration time.Duration, errMessage string) (int64, error) {
	var stepID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		var msg *string
		if errMessage != "" {
			msg = &errMessage
		}

		result, err := tx.Exec(`
			INSERT INTO run_steps (
				run_id, action, target, success, duration_ms,
				error_message, recorded_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, action, target, success, duration.Milliseconds(), msg, time.Now())
		if err != nil {
			return fmt.Errorf("failed to insert step: %w", err)
		}

		stepID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return stepID, nil
}

// ListSteps returns the steps of a run in execution order
func (db *DB) ListSteps(runID string) ([]*Step, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, action, target, success, duration_ms, error_message, recorded_at
		FROM run_steps
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []*Step
	for rows.Next() {
		s := &Step{}
		var target sql.NullString
		if err := rows.Scan(&s.ID, &s.RunID, &s.Action, &target, &s.Success, &s.DurationMs, &s.ErrorMessage, &s.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		s.Target = target.String
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
