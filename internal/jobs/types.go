package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// RunStatus represents the current status of a report run.
type RunStatus string

const (
	// RunStatusPending indicates the run was accepted but has not started.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the pipeline is executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusSucceeded indicates the report was loaded.
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusFailed indicates the run failed. The message is redelivered
	// according to the subscription's policy, not by this service.
	RunStatusFailed RunStatus = "failed"
)

// ReportRun records one invocation of the network report pipeline.
type ReportRun struct {
	// RunID is the unique identifier for this run. It matches the run_id
	// field of the run's log lines.
	RunID string `json:"run_id"`

	// PublisherID is the AdMob publisher the report was requested for.
	PublisherID string `json:"publisher_id"`

	// MessageID is the Pub/Sub message that triggered the run, if any.
	MessageID string `json:"message_id,omitempty"`

	// Status is the current status of the run.
	Status RunStatus `json:"status"`

	// ReportDate is the day the report covers (YYYY-MM-DD).
	ReportDate string `json:"report_date,omitempty"`

	// Records is the number of records submitted to the warehouse.
	Records int `json:"records"`

	// LoadJobID is the BigQuery load job id.
	LoadJobID string `json:"load_job_id,omitempty"`

	// CreatedAt is when the run was accepted.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the pipeline started.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the run finished (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the run failed.
	Error string `json:"error,omitempty"`
}

// Terminal reports whether the run has finished.
func (r *ReportRun) Terminal() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}

// RunStore defines the interface for storing and retrieving run status.
type RunStore interface {
	// SaveRun saves or updates a run's state.
	SaveRun(ctx context.Context, run *ReportRun) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*ReportRun, error)

	// ListRuns retrieves runs, newest first, with optional filtering.
	ListRuns(ctx context.Context, filter RunFilter) ([]*ReportRun, error)
}

// RunFilter defines filtering criteria for listing runs.
type RunFilter struct {
	// PublisherID filters runs by publisher.
	PublisherID string

	// Status filters runs by status.
	Status RunStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
