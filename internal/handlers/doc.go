// Package handlers provides the HTTP handlers for clip-worker.
//
// It includes handlers for:
//   - The liveness text endpoint (GET /)
//   - The pipeline operations (POST /clip, POST /extract-audio)
//   - Probes and status (/livez, /readyz, /healthz, /version)
//   - Job history (/api/jobs, /api/jobs/{id})
package handlers
