package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"clip-worker/internal/jobs"
	"clip-worker/internal/logging"
	"clip-worker/internal/pipeline"

	"github.com/gorilla/mux"
)

// JobListResponse is the body of GET /api/jobs.
type JobListResponse struct {
	Jobs  []pipeline.Record `json:"jobs"`
	Count int               `json:"count"`
}

// ListJobs handles GET /api/jobs?limit=&operation=&status=.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeJSONError(w, "job history is disabled", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	filter := jobs.Filter{
		Operation: q.Get("operation"),
		Status:    pipeline.Status(q.Get("status")),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	switch filter.Status {
	case "", pipeline.StatusRunning, pipeline.StatusSucceeded, pipeline.StatusFailed:
	default:
		writeJSONError(w, "status must be running, succeeded or failed", http.StatusBadRequest)
		return
	}

	recs, err := h.jobs.Recent(r.Context(), filter)
	if err != nil {
		logging.Error("failed to list jobs: %v", err)
		writeJSONError(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusOK, JobListResponse{Jobs: recs, Count: len(recs)})
}

// GetJob handles GET /api/jobs/{id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeJSONError(w, "job history is disabled", http.StatusServiceUnavailable)
		return
	}

	id := mux.Vars(r)["id"]
	rec, err := h.jobs.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		writeJSONError(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to load job %s: %v", id, err)
		writeJSONError(w, "failed to load job", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusOK, rec)
}
