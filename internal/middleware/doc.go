// Package middleware provides HTTP middleware for clip-worker.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with the job id of
//     pipeline requests
//   - Prometheus request metrics labelled by route template
//   - gzip compression for larger JSON responses such as job listings
//   - Bearer token authentication against a bcrypt hash
package middleware
