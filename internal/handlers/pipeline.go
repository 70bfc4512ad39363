package handlers

import (
	"errors"
	"io"
	"net/http"

	"clip-worker/internal/logging"
	"clip-worker/internal/middleware"
	"clip-worker/internal/pipeline"
)

// maxBodyBytes bounds request bodies; valid bodies are a few hundred bytes.
const maxBodyBytes = 1 << 20

// Alive answers the plain-text liveness check on GET /.
func (h *Handlers) Alive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		if _, err := io.WriteString(w, "alive"); err != nil {
			logging.Debug("failed to write liveness response: %v", err)
		}
	}
}

// Clip handles POST /clip.
func (h *Handlers) Clip(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := pipeline.DecodeClipRequest(body)
	if err != nil {
		annotate(r, pipeline.OpClip, nil, err)
		writePipelineError(w, err)
		return
	}

	res, err := h.runner.Clip(r.Context(), req)
	annotate(r, pipeline.OpClip, res, err)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	w.Header().Set(middleware.JobIDHeader, res.JobID)
	writeJSONStatus(w, http.StatusOK, map[string]string{"clippedUrl": res.PublicURL})
}

// ExtractAudio handles POST /extract-audio.
func (h *Handlers) ExtractAudio(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := pipeline.DecodeAudioRequest(body)
	if err != nil {
		annotate(r, pipeline.OpExtractAudio, nil, err)
		writePipelineError(w, err)
		return
	}

	res, err := h.runner.ExtractAudio(r.Context(), req)
	annotate(r, pipeline.OpExtractAudio, res, err)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	w.Header().Set(middleware.JobIDHeader, res.JobID)
	writeJSONStatus(w, http.StatusOK, map[string]string{"audioUrl": res.PublicURL})
}

// annotate records the run outcome for the access log.
func annotate(r *http.Request, operation string, res *pipeline.Result, err error) {
	info := middleware.JobInfoFrom(r.Context())
	if info == nil {
		return
	}
	info.Operation = operation
	if res != nil {
		info.JobID = res.JobID
		info.OutputBytes = res.OutputBytes
	}
	if err != nil {
		info.FailedStage = string(pipeline.StageOf(err, ""))
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		writeJSONError(w, "failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// writePipelineError maps the pipeline error taxonomy onto HTTP: 400 for
// validation failures, 500 for everything else.
func writePipelineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if pipeline.IsValidation(err) {
		status = http.StatusBadRequest
	}
	writeJSONStatus(w, status, errorResponse{
		Error:  err.Error(),
		Stderr: pipeline.Diagnostics(err),
	})
}
