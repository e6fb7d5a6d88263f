package database

import (
	"time"
)

// Run status values
const (
	RunStatusRunning = "running"
	RunStatusPassed  = "passed"
	RunStatusFailed  = "failed"
	RunStatusAborted = "aborted"
)

// Run is one test run
type Run struct {
	ID         string     `db:"id"`
	Name       string     `db:"name"`
	Status     string     `db:"status"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	DurationMs *int64     `db:"duration_ms"`
	Message    *string    `db:"message"`
}

// Step is one engine operation executed during a run
type Step struct {
	ID           int64     `db:"id"`
	RunID        string    `db:"run_id"`
	Action       string    `db:"action"`
	Target       string    `db:"target"`
	Success      bool      `db:"success"`
	DurationMs   int64     `db:"duration_ms"`
	ErrorMessage *string   `db:"error_message"`
	RecordedAt   time.Time `db:"recorded_at"`
}

// Failure is a reported failure of a run
type Failure struct {
	ID             int64     `db:"id"`
	RunID          string    `db:"run_id"`
	Category       string    `db:"category"`
	Severity       string    `db:"severity"`
	Operation      string    `db:"operation"`
	Element        string    `db:"element"`
	Message        string    `db:"message"`
	ScreenshotPath *string   `db:"screenshot_path"`
	OccurredAt     time.Time `db:"occurred_at"`
}

// RunSummary aggregates a run's steps
type RunSummary struct {
	Run
	Steps       int
	FailedSteps int
	Failures    int
}
