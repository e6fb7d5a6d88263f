package database

import (
	"time"

	"jordanella.com/desktop-uitest/internal/logging"
)

// Journal binds the database to one run. The engine records its steps
// through it and the failure reporter persists reports through it.
type Journal struct {
	db    *DB
	runID string
}

// BeginRun starts a run and returns its journal
func (db *DB) BeginRun(name string) (*Journal, error) {
	id, err := db.StartRun(name)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db, runID: id}, nil
}

// RunID returns the bound run
func (j *Journal) RunID() string {
	return j.runID
}

// RecordStep records an engine step
func (j *Journal) RecordStep(action, target string, success bool, duration time.Duration, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	_, recErr := j.db.RecordStep(j.runID, action, target, success, duration, msg)
	return recErr
}

// RecordFailure persists a failure report
func (j *Journal) RecordFailure(report *logging.FailureReport) error {
	f := &Failure{
		Category:   string(report.Category),
		Severity:   string(report.Severity),
		Operation:  report.Operation,
		Element:    report.Element,
		Message:    report.Message,
		OccurredAt: report.Timestamp,
	}
	if report.Screenshot != "" {
		shot := report.Screenshot
		f.ScreenshotPath = &shot
	}
	_, err := j.db.RecordFailure(j.runID, f)
	return err
}

// Finish closes the run as passed, or failed when any failure was recorded
func (j *Journal) Finish(message string) error {
	summary, err := j.db.Summarize(j.runID)
	if err != nil {
		return err
	}
	status := RunStatusPassed
	if summary.Failures > 0 {
		status = RunStatusFailed
	}
	return j.db.FinishRun(j.runID, status, message)
}
