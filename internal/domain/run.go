package domain

import "time"

// RunStatus enumerates the lifecycle of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// PipelineRun records the aggregate outcome of one dispatch run.
type PipelineRun struct {
	ID             string     `json:"id" db:"id"`
	Status         RunStatus  `json:"status" db:"status"`
	DryRun         bool       `json:"dry_run" db:"dry_run"`
	MessagesSent   int        `json:"messages_sent" db:"messages_sent"`
	MessagesFailed int        `json:"messages_failed" db:"messages_failed"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
