package metrics

import (
	"errors"
	"time"

	"clip-worker/internal/filesystem"
	"clip-worker/internal/pipeline"
)

// filesystemObserver implements filesystem.Observer using the Prometheus
// metrics declared in this package.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records filesystem metrics
// into the Prometheus counters and histograms declared in metrics.go.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveOperation(operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(operation).Inc()
	}
}

func (o *filesystemObserver) ObserveRetryAttempt(operation string) {
	FilesystemRetryAttempts.WithLabelValues(operation).Inc()
}

func (o *filesystemObserver) ObserveRetrySuccess(operation string) {
	FilesystemRetrySuccess.WithLabelValues(operation).Inc()
}

func (o *filesystemObserver) ObserveRetryFailure(operation string) {
	FilesystemRetryFailures.WithLabelValues(operation).Inc()
}

func (o *filesystemObserver) ObserveStaleError(operation string) {
	FilesystemStaleErrors.WithLabelValues(operation).Inc()
}

func (o *filesystemObserver) ObserveScratchFiles(delta int) {
	ScratchFilesActive.Add(float64(delta))
}

func (o *filesystemObserver) ObserveCleanupFailure() {
	ScratchCleanupFailures.Inc()
}

// pipelineObserver implements pipeline.Observer.
type pipelineObserver struct{}

// NewPipelineObserver creates an observer that records run, stage and
// transfer metrics.
func NewPipelineObserver() pipeline.Observer {
	return &pipelineObserver{}
}

func (o *pipelineObserver) RunStarted(operation string) {
	PipelineRunsInFlight.WithLabelValues(operation).Inc()
}

func (o *pipelineObserver) RunFinished(operation string, d time.Duration, err error) {
	PipelineRunsInFlight.WithLabelValues(operation).Dec()
	PipelineRunsTotal.WithLabelValues(operation, RunStatus(err)).Inc()
	if !pipeline.IsValidation(err) {
		PipelineRunDuration.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (o *pipelineObserver) StageFinished(operation string, stage pipeline.Stage, d time.Duration, err error) {
	PipelineStageDuration.WithLabelValues(operation, string(stage)).Observe(d.Seconds())
	if err != nil {
		PipelineStageFailures.WithLabelValues(operation, string(stage)).Inc()
	}
}

func (o *pipelineObserver) Transferred(operation, direction string, n int64) {
	PipelineBytesTotal.WithLabelValues(operation, direction).Add(float64(n))
}

func (o *pipelineObserver) Warned(operation string) {
	PipelineWarningsTotal.WithLabelValues(operation).Inc()
}

// RunStatus maps a pipeline result to the status label of
// PipelineRunsTotal.
func RunStatus(err error) string {
	var (
		ve *pipeline.ValidationError
		fe *pipeline.FetchError
		te *pipeline.TranscodeError
		ue *pipeline.UploadError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &fe):
		return "fetch_error"
	case errors.As(err, &te):
		return "transcode_error"
	case errors.As(err, &ue):
		return "upload_error"
	default:
		return "error"
	}
}
