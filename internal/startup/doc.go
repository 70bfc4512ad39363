// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - PORT: HTTP server port (default: 3000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - SCRATCH_DIR: Scratch directory for downloads and transcoder output
//     (default: $TMPDIR/clip-worker); must be writable
//   - FFMPEG_PATH: Transcoder binary (default: ffmpeg)
//   - FETCH_TIMEOUT_HEADERS: Time to wait for source response headers (default: 30s)
//   - STORAGE_URL: Storage API endpoint (required)
//   - STORAGE_KEY: Storage API key (required)
//   - STORAGE_BUCKET: Destination bucket (default: processed-videos)
//   - HISTORY_ENABLED: Record job history in SQLite (default: true)
//   - DATABASE_DIR: Job history database directory (default: /database)
//   - API_TOKEN_HASH: bcrypt hash of the API bearer token; unset disables auth
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Missing storage credentials and an unwritable scratch directory are
// fatal. An unusable database directory only disables job history.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig], [LogScratchInit], [LogTranscoderInit],
//     [LogStorageInit], [LogHistoryInit]: component initialization
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownStepComplete], [LogShutdownComplete]
package startup
