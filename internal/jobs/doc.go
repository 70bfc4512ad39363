// Package jobs persists a history of pipeline runs in SQLite.
//
// Each run is written twice: once when it starts (status "running") and
// once when it finishes with its outcome, failing stage and public URL.
// The store implements pipeline.History and backs the /api/jobs
// endpoints. The database uses WAL mode and is created on first use.
package jobs
