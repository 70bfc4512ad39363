package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"clip-worker/internal/filesystem"
	"clip-worker/internal/jobs"
	"clip-worker/internal/middleware"
	"clip-worker/internal/pipeline"
)

type fakeRunner struct {
	clipReq  pipeline.ClipRequest
	audioReq pipeline.AudioRequest
	result   *pipeline.Result
	err      error
	calls    int
}

func (f *fakeRunner) Clip(_ context.Context, req pipeline.ClipRequest) (*pipeline.Result, error) {
	f.calls++
	f.clipReq = req
	return f.result, f.err
}

func (f *fakeRunner) ExtractAudio(_ context.Context, req pipeline.AudioRequest) (*pipeline.Result, error) {
	f.calls++
	f.audioReq = req
	return f.result, f.err
}

type fakeJobs struct {
	records []pipeline.Record
	filter  jobs.Filter
	err     error
}

func (f *fakeJobs) Get(_ context.Context, id string) (*pipeline.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, jobs.ErrNotFound
}

func (f *fakeJobs) Recent(_ context.Context, filter jobs.Filter) ([]pipeline.Record, error) {
	f.filter = filter
	return f.records, f.err
}

type fakeTranscoder struct{ running int }

func (f fakeTranscoder) Binary() string { return "ffmpeg" }
func (f fakeTranscoder) Running() int   { return f.running }

func newTestHandlers(t *testing.T, runner Runner, store JobStore) *Handlers {
	t.Helper()

	scratch, err := filesystem.NewScratch(t.TempDir())
	if err != nil {
		t.Fatalf("NewScratch() error = %v", err)
	}

	return New(Deps{
		Runner:     runner,
		Jobs:       store,
		Scratch:    scratch,
		Transcoder: fakeTranscoder{running: 1},
	})
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rr.Body.String())
	}
	return body
}

func TestAlive(t *testing.T) {
	h := newTestHandlers(t, &fakeRunner{}, nil)

	rr := httptest.NewRecorder()
	h.Alive(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "alive" {
		t.Errorf("body = %q, want %q", rr.Body.String(), "alive")
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestClipSuccess(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{
		JobID:     "job-1",
		PublicURL: "https://storage.example/processed-videos/out.mp4",
	}}
	h := newTestHandlers(t, runner, nil)

	body := `{"inputUrl":"https://src.example/v.mp4","startTime":5,"endTime":"12.5","fileName":"out.mp4"}`
	rr := httptest.NewRecorder()
	h.Clip(rr, httptest.NewRequest(http.MethodPost, "/clip", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	got := decodeBody(t, rr)
	if got["clippedUrl"] != "https://storage.example/processed-videos/out.mp4" {
		t.Errorf("clippedUrl = %v", got["clippedUrl"])
	}
	if rr.Header().Get(middleware.JobIDHeader) != "job-1" {
		t.Errorf("%s = %q, want job-1", middleware.JobIDHeader, rr.Header().Get(middleware.JobIDHeader))
	}
	if runner.clipReq.StartTime.String() != "5" || runner.clipReq.EndTime.String() != "12.5" {
		t.Errorf("times = %q..%q, want 5..12.5", runner.clipReq.StartTime, runner.clipReq.EndTime)
	}
}

func TestClipValidationFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "malformed JSON", body: `{"inputUrl":`},
		{name: "missing fields", body: `{"inputUrl":"https://src.example/v.mp4"}`},
		{name: "null times", body: `{"inputUrl":"u","startTime":null,"endTime":null,"fileName":"f"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			h := newTestHandlers(t, runner, nil)

			rr := httptest.NewRecorder()
			h.Clip(rr, httptest.NewRequest(http.MethodPost, "/clip", strings.NewReader(tt.body)))

			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
			if runner.calls != 0 {
				t.Errorf("runner called %d times, want 0", runner.calls)
			}
			if got := decodeBody(t, rr); got["error"] == "" || got["error"] == nil {
				t.Errorf("error message missing: %v", got)
			}
		})
	}
}

func TestPipelineErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantStderr string
	}{
		{
			name:       "validation from runner",
			err:        &pipeline.ValidationError{Fields: []string{"inputUrl"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "fetch",
			err:        &pipeline.FetchError{URL: "u", Err: errors.New("status 404")},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "transcode carries stderr",
			err:        &pipeline.TranscodeError{Err: errors.New("exit status 1"), Stderr: "Invalid data found"},
			wantStatus: http.StatusInternalServerError,
			wantStderr: "Invalid data found",
		},
		{
			name:       "upload",
			err:        &pipeline.UploadError{Bucket: "b", Key: "k", Err: errors.New("403")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(t, &fakeRunner{err: tt.err}, nil)

			rr := httptest.NewRecorder()
			body := `{"inputUrl":"https://src.example/v.mp4"}`
			h.ExtractAudio(rr, httptest.NewRequest(http.MethodPost, "/extract-audio", strings.NewReader(body)))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			got := decodeBody(t, rr)
			if got["error"] != tt.err.Error() {
				t.Errorf("error = %v, want %q", got["error"], tt.err.Error())
			}
			stderr, _ := got["stderr"].(string)
			if stderr != tt.wantStderr {
				t.Errorf("stderr = %q, want %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestExtractAudioSuccess(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{
		JobID:     "job-2",
		PublicURL: "https://storage.example/processed-videos/talk_audio.wav",
	}}
	h := newTestHandlers(t, runner, nil)

	rr := httptest.NewRecorder()
	body := `{"inputUrl":"https://src.example/v.mp4","fileName":"talk"}`
	h.ExtractAudio(rr, httptest.NewRequest(http.MethodPost, "/extract-audio", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := decodeBody(t, rr); got["audioUrl"] != "https://storage.example/processed-videos/talk_audio.wav" {
		t.Errorf("audioUrl = %v", got["audioUrl"])
	}
	if runner.audioReq.FileName != "talk" {
		t.Errorf("fileName = %q, want talk", runner.audioReq.FileName)
	}
}

func TestBodyTooLarge(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestHandlers(t, runner, nil)

	big := `{"inputUrl":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	rr := httptest.NewRecorder()
	h.ExtractAudio(rr, httptest.NewRequest(http.MethodPost, "/extract-audio", strings.NewReader(big)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
	if runner.calls != 0 {
		t.Error("runner should not be called for oversized bodies")
	}
}

func TestLivenessCheck(t *testing.T) {
	h := newTestHandlers(t, &fakeRunner{}, nil)

	rr := httptest.NewRecorder()
	h.LivenessCheck(rr, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if got := decodeBody(t, rr); got["status"] != "alive" {
		t.Errorf("status field = %v, want alive", got["status"])
	}

	rr = httptest.NewRecorder()
	h.LivenessCheck(rr, httptest.NewRequest(http.MethodHead, "/livez", nil))
	if rr.Body.Len() != 0 {
		t.Errorf("HEAD body length = %d, want 0", rr.Body.Len())
	}
}

func TestReadinessCheck(t *testing.T) {
	h := newTestHandlers(t, &fakeRunner{}, nil)

	rr := httptest.NewRecorder()
	h.ReadinessCheck(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}

	h.SetShuttingDown()

	rr = httptest.NewRecorder()
	h.ReadinessCheck(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status after shutdown = %d, want 503", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandlers(t, &fakeRunner{}, &fakeJobs{})

	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != statusHealthy || !resp.Ready {
		t.Errorf("status = %q ready = %v, want healthy/true", resp.Status, resp.Ready)
	}
	if !resp.HistoryEnabled {
		t.Error("historyEnabled = false, want true")
	}
	if resp.TranscodesRunning != 1 || resp.TranscoderBinary != "ffmpeg" {
		t.Errorf("transcoder = %q/%d, want ffmpeg/1", resp.TranscoderBinary, resp.TranscodesRunning)
	}

	h.SetShuttingDown()
	rr = httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status while draining = %d, want 503", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != statusDraining {
		t.Errorf("status = %q, want %q", resp.Status, statusDraining)
	}
}

func TestGetVersion(t *testing.T) {
	h := newTestHandlers(t, &fakeRunner{}, nil)

	rr := httptest.NewRecorder()
	h.GetVersion(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	got := decodeBody(t, rr)
	for _, key := range []string{"version", "commit", "buildTime", "goVersion"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing %q in version response", key)
		}
	}
}

func TestJobsDisabled(t *testing.T) {
	h := newTestHandlers(t, &fakeRunner{}, nil)

	rr := httptest.NewRecorder()
	h.ListJobs(rr, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("ListJobs status = %d, want 503", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/jobs/x", nil), map[string]string{"id": "x"})
	h.GetJob(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("GetJob status = %d, want 503", rr.Code)
	}
}

func TestListJobs(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := &fakeJobs{records: []pipeline.Record{
		{ID: "a", Operation: pipeline.OpClip, Status: pipeline.StatusSucceeded, StartedAt: started},
	}}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFilter jobs.Filter
	}{
		{name: "no filter", query: "", wantStatus: http.StatusOK},
		{
			name:       "all filters",
			query:      "?operation=clip&status=failed&limit=10",
			wantStatus: http.StatusOK,
			wantFilter: jobs.Filter{Operation: "clip", Status: pipeline.StatusFailed, Limit: 10},
		},
		{name: "bad limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "zero limit", query: "?limit=0", wantStatus: http.StatusBadRequest},
		{name: "bad status", query: "?status=done", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.filter = jobs.Filter{}
			h := newTestHandlers(t, &fakeRunner{}, store)

			rr := httptest.NewRecorder()
			h.ListJobs(rr, httptest.NewRequest(http.MethodGet, "/api/jobs"+tt.query, nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if store.filter != tt.wantFilter {
				t.Errorf("filter = %+v, want %+v", store.filter, tt.wantFilter)
			}

			var resp JobListResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if resp.Count != 1 || resp.Jobs[0].ID != "a" {
				t.Errorf("response = %+v, want one job a", resp)
			}
		})
	}
}

func TestGetJob(t *testing.T) {
	store := &fakeJobs{records: []pipeline.Record{
		{ID: "a", Operation: pipeline.OpExtractAudio, Status: pipeline.StatusFailed, FailedStage: pipeline.StageFetching},
	}}
	h := newTestHandlers(t, &fakeRunner{}, store)

	tests := []struct {
		id         string
		wantStatus int
	}{
		{id: "a", wantStatus: http.StatusOK},
		{id: "missing", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/jobs/"+tt.id, nil), map[string]string{"id": tt.id})
			rr := httptest.NewRecorder()
			h.GetJob(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}

	store.err = errors.New("database is locked")
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/jobs/a", nil), map[string]string{"id": "a"})
	rr := httptest.NewRecorder()
	h.GetJob(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status on store error = %d, want 500", rr.Code)
	}
}

func TestPipelineHandlersFillJobInfo(t *testing.T) {
	tests := []struct {
		name      string
		runner    *fakeRunner
		body      string
		wantJobID string
		wantBytes int64
		wantStage string
	}{
		{
			name:      "success",
			runner:    &fakeRunner{result: &pipeline.Result{JobID: "job-9", OutputBytes: 4096, PublicURL: "u"}},
			body:      `{"inputUrl":"https://src.example/v.mp4"}`,
			wantJobID: "job-9",
			wantBytes: 4096,
		},
		{
			name:      "transcode failure",
			runner:    &fakeRunner{err: &pipeline.TranscodeError{Err: errors.New("exit status 1")}},
			body:      `{"inputUrl":"https://src.example/v.mp4"}`,
			wantStage: string(pipeline.StageTranscoding),
		},
		{
			name:      "invalid body",
			runner:    &fakeRunner{},
			body:      `{}`,
			wantStage: string(pipeline.StageValidating),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(t, tt.runner, nil)

			var got middleware.JobInfo
			handler := middleware.Logger(middleware.DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				h.ExtractAudio(w, r)
				got = *middleware.JobInfoFrom(r.Context())
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/extract-audio", strings.NewReader(tt.body)))

			if got.Operation != pipeline.OpExtractAudio {
				t.Errorf("Operation = %q, want %q", got.Operation, pipeline.OpExtractAudio)
			}
			if got.JobID != tt.wantJobID || got.OutputBytes != tt.wantBytes {
				t.Errorf("job = %q/%d, want %q/%d", got.JobID, got.OutputBytes, tt.wantJobID, tt.wantBytes)
			}
			if got.FailedStage != tt.wantStage {
				t.Errorf("FailedStage = %q, want %q", got.FailedStage, tt.wantStage)
			}
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	h := newTestHandlers(t, &fakeRunner{}, nil)

	// Building the handler twice must reuse the scrape counter.
	_ = h.MetricsHandler()
	handler := h.MetricsHandler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "promhttp_metric_handler_requests_total") {
		t.Error("scrape counter missing from metrics output")
	}
}
