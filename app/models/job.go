package models

import "encoding/json"

// Job statuses for asynchronous drawing analysis.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// JobStatus summarizes an analysis job for status polling.
type JobStatus struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// JobMessage is the SQS payload handed to the analysis worker.
type JobMessage struct {
	JobID     string `json:"job_id"`
	ProjectID string `json:"project_id"`
	DrawingID string `json:"drawing_id"`
}
