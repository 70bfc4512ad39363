// Package metrics provides Prometheus instrumentation for clip-worker.
//
// All metrics are prefixed with "clip_worker_" and registered on the
// default registry through promauto. They are served by the metrics
// listener in main.go.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of requests being processed
//
// ## Pipeline Metrics
//
// Recorded by the pipeline observer returned from NewPipelineObserver:
//   - PipelineRunsTotal: Counter of runs by operation and outcome
//   - PipelineRunDuration: Histogram of end-to-end duration
//   - PipelineRunsInFlight: Gauge of runs in progress per operation
//   - PipelineStageDuration: Histogram of each stage's duration
//   - PipelineStageFailures: Counter of runs that failed in a stage
//   - PipelineWarningsTotal: Counter of non-fatal output warnings
//   - PipelineBytesTotal: Counter of bytes downloaded and uploaded
//
// ## Scratch Filesystem Metrics
//
// Recorded by the filesystem observer and the periodic Collector:
//   - FilesystemOperationDuration / FilesystemOperationErrors
//   - FilesystemRetryAttempts / FilesystemRetrySuccess / FilesystemRetryFailures
//   - FilesystemStaleErrors: stale NFS handle errors
//   - ScratchFilesActive: reservations held by in-flight runs
//   - ScratchCleanupFailures: scratch files that could not be removed
//   - ScratchDirFiles / ScratchDirBytes: directory usage
//
// ## Job History Metrics
//
//   - DBQueryTotal / DBQueryDuration: queries by operation
//   - DBConnectionsOpen, DBSizeBytes
//
// ## Other
//
//   - TranscoderProcessesRunning, AuthAttemptsTotal, AppInfo
package metrics
