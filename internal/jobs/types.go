package jobs

import (
	"context"
	"time"
)

// JobType represents the type of scheduled job.
type JobType string

const (
	// JobTypeDailyReport sends each sender the day's summary.
	JobTypeDailyReport JobType = "daily_report"
	// JobTypeRecurring materializes due recurring transactions.
	JobTypeRecurring JobType = "recurring"
)

// JobStatus represents the current status of a run.
type JobStatus string

const (
	// JobStatusRunning indicates the run is in progress.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the run finished. Individual items may
	// still have failed; see Failed.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the run could not complete.
	JobStatusFailed JobStatus = "failed"
)

// Run is one execution of a scheduled job.
type Run struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"run_id"`

	// Type is the job that ran.
	Type JobType `json:"type"`

	// Status is the current status of the run.
	Status JobStatus `json:"status"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run finished (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Processed counts items handled successfully.
	Processed int `json:"processed"`

	// Skipped counts items that needed no work.
	Skipped int `json:"skipped"`

	// Failed counts items that errored.
	Failed int `json:"failed"`

	// Error contains error details if the run failed.
	Error string `json:"error,omitempty"`
}

// RunStore defines the interface for storing and retrieving job runs.
type RunStore interface {
	// SaveRun saves or updates a run.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns retrieves runs, newest first, with optional filtering.
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// RunFilter defines filtering criteria for listing runs.
type RunFilter struct {
	// Type filters runs by job type.
	Type JobType

	// Status filters runs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
