package model

import "time"

// JobStatus is the state of a batch enrichment job.
type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// BatchJobProgress is the observable state of a batch job.
type BatchJobProgress struct {
	JobID           string     `json:"jobId"`
	TotalItems      int        `json:"totalItems"`
	ProcessedItems  int        `json:"processedItems"`
	SuccessfulItems int        `json:"successfulItems"`
	FailedItems     int        `json:"failedItems"`
	Status          JobStatus  `json:"status"`
	CurrentItem     string     `json:"currentItem"`
	PercentComplete int        `json:"percentComplete"`
	Error           string     `json:"error"`
	Aborted         bool       `json:"aborted,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
}
