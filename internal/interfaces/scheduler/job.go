package scheduler

import "context"

// Job is a unit of background work processed by the worker pool.
type Job interface {
	// Execute runs the job. The context carries the pool's lifetime and a
	// per-job timeout.
	Execute(ctx context.Context) error

	// UserID returns the user the job belongs to, or "system" for global jobs.
	UserID() string

	// Description returns a human-readable description of the job
	Description() string
}
