package store

import (
	"context"
	"time"

	"cert-verification/internal/model"
)

// ResultStore tracks each job from enqueue to its terminal state.
// State transitions are monotonic: pending -> processing -> completed|failed.
// Writes for a given job id come from the single worker that owns the job;
// reads may observe any state up to the latest write.
type ResultStore interface {
	// Create inserts the job as pending. Fails with ErrJobExists if the id
	// is already present.
	Create(ctx context.Context, jobID string, enqueuedAt time.Time) error

	MarkProcessing(ctx context.Context, jobID string) error

	// Complete records the classification result and moves the job to the
	// completed state. Fails with ErrJobTerminal if the job already reached
	// a terminal state.
	Complete(ctx context.Context, jobID string, result model.ClassificationResult) error

	// Fail records the error message and moves the job to the failed state.
	Fail(ctx context.Context, jobID string, errMsg string) error

	// Get returns the current record, or ErrJobNotFound.
	Get(ctx context.Context, jobID string) (*model.JobRecord, error)

	// Await blocks until the job reaches a terminal state or ctx is done.
	Await(ctx context.Context, jobID string) (*model.JobRecord, error)
}
