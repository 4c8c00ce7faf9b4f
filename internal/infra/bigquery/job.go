package bigquery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/bigquery"
)

// ErrLoadFailed is returned by LoadJob.Wait when the job finished with an error.
var ErrLoadFailed = errors.New("load job failed")

// JobState is the lifecycle state of a load job. States only move forward:
// SUBMITTED → RUNNING → SUCCEEDED | FAILED.
type JobState string

const (
	JobSubmitted JobState = "SUBMITTED"
	JobRunning   JobState = "RUNNING"
	JobSucceeded JobState = "SUCCEEDED"
	JobFailed    JobState = "FAILED"
)

func (s JobState) rank() int {
	switch s {
	case JobSubmitted:
		return 0
	case JobRunning:
		return 1
	case JobSucceeded, JobFailed:
		return 2
	}
	return -1
}

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// JobResult is one observation of a job. Err is the job's own error and is
// only set together with JobFailed.
type JobResult struct {
	State JobState
	Err   error
}

// JobHandle is the server-side job a LoadJob tracks.
type JobHandle interface {
	ID() string
	Status(ctx context.Context) (JobResult, error)
	Wait(ctx context.Context) (JobResult, error)
}

// LoadJob is a handle on a submitted load job.
type LoadJob struct {
	handle JobHandle

	mu    sync.Mutex
	state JobState
}

// NewLoadJob wraps a submitted job.
func NewLoadJob(h JobHandle) *LoadJob {
	return &LoadJob{handle: h, state: JobSubmitted}
}

// ID returns the job id.
func (j *LoadJob) ID() string {
	return j.handle.ID()
}

// State polls the job once and returns its state.
func (j *LoadJob) State(ctx context.Context) (JobState, error) {
	res, err := j.handle.Status(ctx)
	if err != nil {
		return j.current(), fmt.Errorf("LoadJob.State: polling job %s: %w", j.ID(), err)
	}
	return j.advance(res.State), nil
}

// Wait blocks until the job is terminal. A job that finished with an error
// yields ErrLoadFailed wrapping the job's error.
func (j *LoadJob) Wait(ctx context.Context) error {
	res, err := j.handle.Wait(ctx)
	if err != nil {
		return fmt.Errorf("LoadJob.Wait: waiting for job %s: %w", j.ID(), err)
	}

	if res.Err != nil {
		j.advance(JobFailed)
		return fmt.Errorf("%w: job %s: %w", ErrLoadFailed, j.ID(), res.Err)
	}
	if !res.State.Terminal() {
		return fmt.Errorf("LoadJob.Wait: job %s returned in state %s", j.ID(), res.State)
	}

	j.advance(res.State)
	return nil
}

func (j *LoadJob) current() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *LoadJob) advance(next JobState) JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.state.Terminal() && next.rank() > j.state.rank() {
		j.state = next
	}
	return j.state
}

// bqJob adapts *bigquery.Job to JobHandle.
type bqJob struct {
	job *bigquery.Job
}

func (b bqJob) ID() string {
	return b.job.ID()
}

func (b bqJob) Status(ctx context.Context) (JobResult, error) {
	status, err := b.job.Status(ctx)
	if err != nil {
		return JobResult{}, err
	}
	return resultOf(status), nil
}

// Wait returns a nil error when the status was retrieved, even if the job
// itself failed; that failure is carried in JobResult.Err.
func (b bqJob) Wait(ctx context.Context) (JobResult, error) {
	status, err := b.job.Wait(ctx)
	if err != nil {
		return JobResult{}, err
	}
	return resultOf(status), nil
}

func resultOf(status *bigquery.JobStatus) JobResult {
	switch status.State {
	case bigquery.Pending:
		return JobResult{State: JobSubmitted}
	case bigquery.Running:
		return JobResult{State: JobRunning}
	}
	if err := status.Err(); err != nil {
		return JobResult{State: JobFailed, Err: err}
	}
	return JobResult{State: JobSucceeded}
}
