package pipeline

import (
	"context"
	"time"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is the persisted view of one pipeline run.
type Record struct {
	ID          string     `json:"id"`
	Operation   string     `json:"operation"`
	InputURL    string     `json:"inputUrl"`
	Key         string     `json:"storageKey"`
	Status      Status     `json:"status"`
	FailedStage Stage      `json:"failedStage,omitempty"`
	Error       string     `json:"error,omitempty"`
	PublicURL   string     `json:"publicUrl,omitempty"`
	OutputBytes int64      `json:"outputBytes"`
	Warning     string     `json:"warning,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// History persists run records. Failures to record are logged and never
// fail the run.
type History interface {
	Begin(ctx context.Context, rec Record) error
	Finish(ctx context.Context, rec Record) error
}
