package domain

import "time"

// JobStatus is the lifecycle state of an index job.
type JobStatus string

// Index job states.
const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobError is one entry in a job's error log: a single document that
// failed, with the originating step and error kind.
type JobError struct {
	DocumentID string    `json:"document_id"`
	Kind       ErrorKind `json:"kind"`
	Step       string    `json:"step"`
	Message    string    `json:"message"`
}

// IndexJob is one run of the batch indexing pipeline. At most one job
// is processing at a time per pipeline instance.
type IndexJob struct {
	ID             string
	Status         JobStatus
	TotalFiles     int
	ProcessedFiles int
	FailedFiles    int
	StartedAt      time.Time
	FinishedAt     *time.Time
	Errors         []JobError
}

// ProgressPercent returns the completed fraction of the job as a
// whole percentage.
func (j *IndexJob) ProgressPercent() int {
	if j.TotalFiles <= 0 {
		return 0
	}
	done := j.ProcessedFiles + j.FailedFiles
	return done * 100 / j.TotalFiles
}

// JobProgress is the polling shape produced for the REST layer and
// agent tools.
type JobProgress struct {
	JobID           string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	Total           int       `json:"total"`
	Processed       int       `json:"processed"`
	Failed          int       `json:"failed"`
	CurrentFile     string    `json:"current_file,omitempty"`
	ProgressPercent int       `json:"progress_percent"`
}
