package metrics

import (
	"errors"
	"testing"
	"time"

	"clip-worker/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"PipelineRunsTotal", PipelineRunsTotal},
		{"PipelineStageDuration", PipelineStageDuration},
		{"PipelineStageFailures", PipelineStageFailures},
		{"ScratchFilesActive", ScratchFilesActive},
		{"DBQueryTotal", DBQueryTotal},
		{"AuthAttemptsTotal", AuthAttemptsTotal},
		{"AppInfo", AppInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "success"},
		{"validation", &pipeline.ValidationError{Fields: []string{"inputUrl"}}, "invalid"},
		{"fetch", &pipeline.FetchError{Err: errors.New("404")}, "fetch_error"},
		{"transcode", &pipeline.TranscodeError{Err: errors.New("exit 1")}, "transcode_error"},
		{"upload", &pipeline.UploadError{Err: errors.New("denied")}, "upload_error"},
		{"other", errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RunStatus(tt.err); got != tt.want {
				t.Errorf("RunStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPipelineObserver(t *testing.T) {
	obs := NewPipelineObserver()
	const op = "test-op"

	obs.RunStarted(op)
	if got := testutil.ToFloat64(PipelineRunsInFlight.WithLabelValues(op)); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}

	fetchErr := &pipeline.FetchError{Err: errors.New("404")}
	obs.StageFinished(op, pipeline.StageFetching, time.Millisecond, fetchErr)
	obs.Transferred(op, pipeline.DirectionDownload, 2048)
	obs.Warned(op)
	obs.RunFinished(op, time.Second, fetchErr)

	if got := testutil.ToFloat64(PipelineRunsInFlight.WithLabelValues(op)); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues(op, "fetch_error")); got != 1 {
		t.Errorf("fetch_error runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(PipelineStageFailures.WithLabelValues(op, "fetching")); got != 1 {
		t.Errorf("fetching failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(PipelineBytesTotal.WithLabelValues(op, "download")); got != 2048 {
		t.Errorf("downloaded bytes = %v, want 2048", got)
	}
	if got := testutil.ToFloat64(PipelineWarningsTotal.WithLabelValues(op)); got != 1 {
		t.Errorf("warnings = %v, want 1", got)
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()
	before := testutil.ToFloat64(ScratchFilesActive)

	obs.ObserveScratchFiles(2)
	obs.ObserveScratchFiles(-1)
	if got := testutil.ToFloat64(ScratchFilesActive) - before; got != 1 {
		t.Errorf("scratch files delta = %v, want 1", got)
	}

	failures := testutil.ToFloat64(ScratchCleanupFailures)
	obs.ObserveCleanupFailure()
	if got := testutil.ToFloat64(ScratchCleanupFailures) - failures; got != 1 {
		t.Errorf("cleanup failures delta = %v, want 1", got)
	}

	errs := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("remove"))
	obs.ObserveOperation("remove", 0.001, errors.New("busy"))
	if got := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("remove")) - errs; got != 1 {
		t.Errorf("remove errors delta = %v, want 1", got)
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if n := testutil.CollectAndCount(PipelineRunsTotal); n < 12 {
		t.Errorf("PipelineRunsTotal series = %d, want at least 12", n)
	}
	if n := testutil.CollectAndCount(PipelineStageDuration); n < 10 {
		t.Errorf("PipelineStageDuration series = %d, want at least 10", n)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc123", "go1.25")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc123", "go1.25")); got != 1 {
		t.Errorf("app info = %v, want 1", got)
	}
}
