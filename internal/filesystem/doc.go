/*
Package filesystem manages the scratch directory that holds the transient
files of each pipeline run, with retry logic for stale NFS file handles.

# Scratch files

Every pipeline run allocates at most two scratch files: the downloaded
source and the transcoder output. Names embed a random UUID, so concurrent
runs never collide:

	scratch, err := filesystem.NewScratch("/tmp/clip-worker")
	in := scratch.Allocate("input", ".mp4")
	defer in.Release()

Allocate only reserves a path; nothing is written until the caller
creates the file. Release is idempotent and best-effort: failures are
logged and counted, never returned.

# Retry

The scratch directory is frequently a shared or network volume. Stat, Open
and Remove retry with exponential backoff on ESTALE (errno 116) and fail
fast on every other error.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Metrics

Metric recording goes through the Observer interface, installed once at
startup with SetObserver. The metrics package provides the Prometheus
implementation; with no observer installed recording is skipped.
*/
package filesystem
