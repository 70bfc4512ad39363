package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"clip-worker/internal/logging"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs fn until it succeeds, fails with a non-ESTALE error, or
// the retry budget is spent.
func withRetry[T any](operation, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	start := time.Now()
	obs := observe()
	backoff := config.InitialBackoff

	var (
		result  T
		lastErr error
	)

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", operation, attempt, path)
				if obs != nil {
					obs.ObserveRetrySuccess(operation)
				}
			}
			break
		}

		if !isNFSStaleError(lastErr) {
			break
		}

		if obs != nil {
			obs.ObserveStaleError(operation)
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			if obs != nil {
				obs.ObserveRetryAttempt(operation)
			}
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				operation, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
			continue
		}

		logging.Warn("NFS %s failed after %d retries for %s: %v", operation, config.MaxRetries, path, lastErr)
		if obs != nil {
			obs.ObserveRetryFailure(operation)
		}
	}

	if obs != nil {
		obs.ObserveOperation(operation, time.Since(start).Seconds(), lastErr)
	}
	return result, lastErr
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return withRetry("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return withRetry("open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}

// CreateWithRetry performs os.Create with retry logic for NFS stale file handle errors
func CreateWithRetry(path string, config RetryConfig) (*os.File, error) {
	return withRetry("create", path, config, func() (*os.File, error) {
		return os.Create(path)
	})
}

// RemoveWithRetry removes path, retrying on stale file handles. A path that
// does not exist is not an error.
func RemoveWithRetry(path string, config RetryConfig) error {
	_, err := withRetry("remove", path, config, func() (struct{}, error) {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	return err
}
