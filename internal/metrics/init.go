package metrics

import "clip-worker/internal/pipeline"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	operations := []string{pipeline.OpClip, pipeline.OpExtractAudio}
	stages := []pipeline.Stage{
		pipeline.StageValidating,
		pipeline.StageFetching,
		pipeline.StageTranscoding,
		pipeline.StageUploading,
		pipeline.StageResolving,
	}

	// --- Pipeline runs and stages (per operation) ---
	for _, op := range operations {
		for _, status := range []string{"success", "invalid", "fetch_error", "transcode_error", "upload_error", "error"} {
			PipelineRunsTotal.WithLabelValues(op, status)
		}
		PipelineRunDuration.WithLabelValues(op)
		PipelineRunsInFlight.WithLabelValues(op)
		PipelineWarningsTotal.WithLabelValues(op)
		PipelineBytesTotal.WithLabelValues(op, pipeline.DirectionDownload)
		PipelineBytesTotal.WithLabelValues(op, pipeline.DirectionUpload)

		for _, s := range stages {
			PipelineStageDuration.WithLabelValues(op, string(s))
			PipelineStageFailures.WithLabelValues(op, string(s))
		}
	}

	// --- Filesystem operation and retry metrics ---
	for _, op := range []string{"stat", "open", "create", "remove"} {
		FilesystemOperationDuration.WithLabelValues(op)
		FilesystemOperationErrors.WithLabelValues(op)
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	// --- Job history queries ---
	for _, op := range []string{"initialize_schema", "begin_job", "finish_job", "get_job", "list_jobs"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	// --- Auth ---
	for _, status := range []string{"success", "failure", "missing"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}
}
