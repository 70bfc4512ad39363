// Package logging provides the leveled logger used throughout clip-worker.
//
// Levels, from most to least verbose:
//   - DEBUG: stage-by-stage pipeline tracing, ffmpeg argument lists
//   - INFO: request outcomes and startup progress
//   - WARN: non-fatal conditions such as failed scratch cleanup
//   - ERROR: failed pipeline stages
//   - FATAL: startup errors that terminate the process
//
// The level comes from the LOG_LEVEL environment variable, or DEBUG=true.
// Pipeline code logs through a JobLogger so every line carries the job id.
package logging
