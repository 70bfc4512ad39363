package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"clip-worker/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusDraining = "draining"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	ScratchDir         string `json:"scratchDir"`
	ScratchFiles       int    `json:"scratchFiles"`
	ScratchBytes       int64  `json:"scratchBytes"`
	ActiveReservations int    `json:"activeReservations"`
	TranscoderBinary   string `json:"transcoderBinary"`
	TranscodesRunning  int    `json:"transcodesRunning"`
	HistoryEnabled     bool   `json:"historyEnabled"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns detailed service status on /healthz.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:           statusHealthy,
		Version:          startup.Version,
		Uptime:           time.Since(h.startTime).Round(time.Second).String(),
		ScratchDir:       h.scratch.Dir(),
		TranscoderBinary: h.transcoder.Binary(),
		HistoryEnabled:   h.jobs != nil,
		GoVersion:        runtime.Version(),
		NumCPU:           runtime.NumCPU(),
		NumGoroutine:     runtime.NumGoroutine(),
	}

	response.ActiveReservations = len(h.scratch.Active())
	response.TranscodesRunning = h.transcoder.Running()

	if files, bytes, err := h.scratch.Usage(); err == nil {
		response.ScratchFiles = files
		response.ScratchBytes = bytes
	}

	if err := h.ready(); err != nil {
		response.Error = err.Error()
		response.Status = statusDegraded
		if h.shuttingDown.Load() {
			response.Status = statusDraining
		}
	} else {
		response.Ready = true
	}

	code := http.StatusOK
	if !response.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the service can accept work.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if err := h.ready(); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}

type notReadyError string

func (e notReadyError) Error() string { return string(e) }

// ready fails while draining or when the scratch directory stops
// accepting writes.
func (h *Handlers) ready() error {
	if h.shuttingDown.Load() {
		return notReadyError("shutting down")
	}

	probe, err := os.CreateTemp(h.scratch.Dir(), ".ready-*")
	if err != nil {
		return notReadyError("scratch directory not writable: " + err.Error())
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(filepath.Clean(name))
	return nil
}
