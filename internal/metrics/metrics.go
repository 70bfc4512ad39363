package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_worker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.05, 0.25, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_worker_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_pipeline_runs_total",
			Help: "Total number of pipeline runs by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_worker_pipeline_run_duration_seconds",
			Help:    "End-to-end pipeline run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"operation"},
	)

	PipelineRunsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clip_worker_pipeline_runs_in_flight",
			Help: "Number of pipeline runs currently in progress",
		},
		[]string{"operation"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_worker_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"operation", "stage"},
	)

	PipelineStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_pipeline_stage_failures_total",
			Help: "Total number of pipeline runs that ended in a given stage",
		},
		[]string{"operation", "stage"},
	)

	PipelineWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_pipeline_warnings_total",
			Help: "Total number of non-fatal output warnings",
		},
		[]string{"operation"},
	)

	PipelineBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_pipeline_bytes_total",
			Help: "Bytes downloaded from sources and uploaded to storage",
		},
		[]string{"operation", "direction"},
	)
)

// Transcoder metrics
var (
	TranscoderProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_worker_transcoder_processes_running",
			Help: "Number of transcoder processes currently running",
		},
	)
)

// Filesystem and scratch directory metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_worker_filesystem_operation_duration_seconds",
			Help:    "Scratch filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_filesystem_operation_errors_total",
			Help: "Total number of failed scratch filesystem operations",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_filesystem_stale_errors_total",
			Help: "Total number of stale NFS file handle errors",
		},
		[]string{"operation"},
	)

	ScratchFilesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_worker_scratch_files_active",
			Help: "Number of scratch files reserved by in-flight runs",
		},
	)

	ScratchCleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_worker_scratch_cleanup_failures_total",
			Help: "Total number of scratch files that could not be removed",
		},
	)

	ScratchDirFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_worker_scratch_dir_files",
			Help: "Number of files present in the scratch directory",
		},
	)

	ScratchDirBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_worker_scratch_dir_bytes",
			Help: "Total size of files in the scratch directory",
		},
	)
)

// Job history metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_db_queries_total",
			Help: "Total number of job history queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_worker_db_query_duration_seconds",
			Help:    "Job history query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_worker_db_connections_open",
			Help: "Number of open job history database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clip_worker_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_worker_auth_attempts_total",
			Help: "Total number of API token checks",
		},
		[]string{"status"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clip_worker_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
