package filesystem

// Observer records filesystem metrics. Implementations are provided by the
// metrics package to break the import cycle between filesystem and metrics.
type Observer interface {
	// ObserveOperation records duration and error status for an operation:
	// "stat", "open", "create" or "remove".
	ObserveOperation(operation string, durationSeconds float64, err error)

	ObserveRetryAttempt(operation string)
	ObserveRetrySuccess(operation string)
	ObserveRetryFailure(operation string)
	ObserveStaleError(operation string)

	// ObserveScratchFiles adjusts the number of live scratch reservations.
	ObserveScratchFiles(delta int)

	// ObserveCleanupFailure counts scratch files that could not be removed.
	ObserveCleanupFailure()
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is silently skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}

// observe is a nil-safe helper for the package-level observer.
func observe() Observer {
	return defaultObserver
}
