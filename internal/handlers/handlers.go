package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"clip-worker/internal/jobs"
	"clip-worker/internal/pipeline"
)

// Runner executes pipeline operations.
type Runner interface {
	Clip(ctx context.Context, req pipeline.ClipRequest) (*pipeline.Result, error)
	ExtractAudio(ctx context.Context, req pipeline.AudioRequest) (*pipeline.Result, error)
}

// JobStore reads job history.
type JobStore interface {
	Get(ctx context.Context, id string) (*pipeline.Record, error)
	Recent(ctx context.Context, f jobs.Filter) ([]pipeline.Record, error)
}

// ScratchUsage reports scratch directory state.
type ScratchUsage interface {
	Dir() string
	Active() []string
	Usage() (files int, bytes int64, err error)
}

// ProcessCounter reports transcoder activity.
type ProcessCounter interface {
	Binary() string
	Running() int
}

// Deps are the collaborators of Handlers. Jobs may be nil when history is
// disabled.
type Deps struct {
	Runner     Runner
	Jobs       JobStore
	Scratch    ScratchUsage
	Transcoder ProcessCounter
}

// Handlers serves the HTTP API.
type Handlers struct {
	runner     Runner
	jobs       JobStore
	scratch    ScratchUsage
	transcoder ProcessCounter

	startTime    time.Time
	shuttingDown atomic.Bool
}

// New creates the handler set.
func New(d Deps) *Handlers {
	return &Handlers{
		runner:     d.Runner,
		jobs:       d.Jobs,
		scratch:    d.Scratch,
		transcoder: d.Transcoder,
		startTime:  time.Now(),
	}
}

// SetShuttingDown marks the service as draining so readiness probes fail
// while in-flight requests finish.
func (h *Handlers) SetShuttingDown() {
	h.shuttingDown.Store(true)
}
