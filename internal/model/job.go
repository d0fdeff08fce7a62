package model

import "time"

type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// VerificationJob is the queue payload for one uploaded document.
// SourcePath is the blob-storage key of the uploaded file; the worker
// that consumes the job owns and eventually deletes it.
type VerificationJob struct {
	JobID       string    `json:"job_id"`
	SourcePath  string    `json:"source_path"`
	ContentType string    `json:"content_type"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// JobRecord is the result-store value for a job. Result is set only in
// the completed state, Error only in the failed state.
type JobRecord struct {
	JobID      string                `json:"job_id"`
	State      JobState              `json:"state"`
	Result     *ClassificationResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
	EnqueuedAt time.Time             `json:"enqueued_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}
