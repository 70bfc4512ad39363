package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"clip-worker/internal/filesystem"
	"clip-worker/internal/logging"
	"clip-worker/internal/storage"
	"clip-worker/internal/transcoder"

	"github.com/google/uuid"
)

// Stage names a step of a pipeline run.
type Stage string

const (
	StageValidating  Stage = "validating"
	StageFetching    Stage = "fetching"
	StageTranscoding Stage = "transcoding"
	StageUploading   Stage = "uploading"
	StageResolving   Stage = "resolving_url"
)

// DefaultBucket is the storage bucket used when Deps.Bucket is empty.
const DefaultBucket = "processed-videos"

// Fetcher downloads a source into dst.
type Fetcher interface {
	Fetch(ctx context.Context, url string, dst io.Writer) (int64, error)
}

// Transcoder runs the external transcoder. The last argument is the
// output path.
type Transcoder interface {
	Run(ctx context.Context, args []string) error
}

// Deps are the collaborators of a Pipeline. Observer and History are
// optional.
type Deps struct {
	Fetcher    Fetcher
	Transcoder Transcoder
	Store      storage.Store
	Scratch    *filesystem.Scratch
	Bucket     string
	Observer   Observer
	History    History
}

// Pipeline runs clip and extract-audio requests.
type Pipeline struct {
	fetcher    Fetcher
	transcoder Transcoder
	store      storage.Store
	scratch    *filesystem.Scratch
	bucket     string
	observer   Observer
	history    History
}

// Result describes a successful run.
type Result struct {
	JobID       string
	Operation   string
	Key         string
	PublicURL   string
	OutputBytes int64
	Warnings    []string
}

// New validates deps and returns a Pipeline.
func New(d Deps) (*Pipeline, error) {
	switch {
	case d.Fetcher == nil:
		return nil, errors.New("pipeline: fetcher is required")
	case d.Transcoder == nil:
		return nil, errors.New("pipeline: transcoder is required")
	case d.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case d.Scratch == nil:
		return nil, errors.New("pipeline: scratch directory is required")
	}

	p := &Pipeline{
		fetcher:    d.Fetcher,
		transcoder: d.Transcoder,
		store:      d.Store,
		scratch:    d.Scratch,
		bucket:     d.Bucket,
		observer:   d.Observer,
		history:    d.History,
	}
	if p.bucket == "" {
		p.bucket = DefaultBucket
	}
	if p.observer == nil {
		p.observer = noopObserver{}
	}
	return p, nil
}

// Bucket returns the storage bucket results are uploaded to.
func (p *Pipeline) Bucket() string {
	return p.bucket
}

// Clip trims, scales and pads the requested range into a portrait MP4.
func (p *Pipeline) Clip(ctx context.Context, req ClipRequest) (*Result, error) {
	return p.execute(ctx, OpClip, req.Validate, func() Operation {
		return ClipOperation(req)
	})
}

// ExtractAudio extracts a mono 16 kHz PCM WAV from the source.
func (p *Pipeline) ExtractAudio(ctx context.Context, req AudioRequest) (*Result, error) {
	return p.execute(ctx, OpExtractAudio, req.Validate, func() Operation {
		return AudioOperation(req)
	})
}

func (p *Pipeline) execute(ctx context.Context, name string, validate func() error, build func() Operation) (res *Result, err error) {
	started := time.Now()
	p.observer.RunStarted(name)
	defer func() {
		p.observer.RunFinished(name, time.Since(started), err)
	}()

	if err = p.stage(name, StageValidating, validate); err != nil {
		logging.Debug("%s rejected: %v", name, err)
		return nil, err
	}

	return p.run(ctx, build(), started)
}

// Run executes op. Both scratch files are released before Run returns.
func (p *Pipeline) Run(ctx context.Context, op Operation) (*Result, error) {
	return p.execute(ctx, op.Name, func() error { return nil }, func() Operation { return op })
}

func (p *Pipeline) run(ctx context.Context, op Operation, started time.Time) (*Result, error) {
	rec := Record{
		ID:        uuid.NewString(),
		Operation: op.Name,
		InputURL:  op.InputURL,
		Key:       op.Key,
		Status:    StatusRunning,
		StartedAt: started.UTC(),
	}
	log := logging.ForJob(op.Name, rec.ID[:8])
	log.Info("started: source=%s key=%s/%s", op.InputURL, p.bucket, op.Key)
	p.begin(ctx, log, rec)

	input := p.scratch.Allocate(op.Name+"-input", op.InputExt)
	defer input.Release()
	output := p.scratch.Allocate(op.Name+"-output", op.OutputExt)
	defer output.Release()

	res, stage, err := p.stages(ctx, log, op, input, output)

	finished := time.Now().UTC()
	rec.FinishedAt = &finished
	if err != nil {
		rec.Status = StatusFailed
		rec.FailedStage = stage
		rec.Error = err.Error()
		log.Error("failed during %s after %v: %v", stage, time.Since(started).Round(time.Millisecond), err)
	} else {
		res.JobID = rec.ID
		rec.Status = StatusSucceeded
		rec.PublicURL = res.PublicURL
		rec.OutputBytes = res.OutputBytes
		rec.Warning = strings.Join(res.Warnings, "; ")
		log.Info("completed in %v: %s", time.Since(started).Round(time.Millisecond), res.PublicURL)
	}
	p.finish(ctx, log, rec)

	return res, err
}

func (p *Pipeline) stages(ctx context.Context, log logging.JobLogger, op Operation, input, output *filesystem.File) (*Result, Stage, error) {
	if err := p.stage(op.Name, StageFetching, func() error {
		return p.fetch(ctx, log, op, input)
	}); err != nil {
		return nil, StageFetching, err
	}

	var size int64
	if err := p.stage(op.Name, StageTranscoding, func() error {
		var terr error
		size, terr = p.transcode(ctx, log, op, input, output)
		return terr
	}); err != nil {
		return nil, StageTranscoding, err
	}

	var warnings []string
	if op.Inspect != nil {
		warnings = op.Inspect(size)
	}
	for _, w := range warnings {
		log.Warn("%s", w)
		p.observer.Warned(op.Name)
	}

	if err := p.stage(op.Name, StageUploading, func() error {
		return p.upload(ctx, log, op, output, size)
	}); err != nil {
		return nil, StageUploading, err
	}

	var url string
	p.stage(op.Name, StageResolving, func() error {
		url = p.store.PublicURL(p.bucket, op.Key)
		return nil
	})

	return &Result{
		Operation:   op.Name,
		Key:         op.Key,
		PublicURL:   url,
		OutputBytes: size,
		Warnings:    warnings,
	}, StageResolving, nil
}

func (p *Pipeline) fetch(ctx context.Context, log logging.JobLogger, op Operation, dst *filesystem.File) error {
	f, err := dst.Create()
	if err != nil {
		return &FetchError{URL: op.InputURL, Err: fmt.Errorf("create scratch file: %w", err)}
	}

	n, err := p.fetcher.Fetch(ctx, op.InputURL, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close scratch file: %w", cerr)
	}
	if err != nil {
		return &FetchError{URL: op.InputURL, Err: err}
	}

	p.observer.Transferred(op.Name, DirectionDownload, n)
	log.Debug("fetched %d bytes into %s", n, dst.Path)
	return nil
}

func (p *Pipeline) transcode(ctx context.Context, log logging.JobLogger, op Operation, input, output *filesystem.File) (int64, error) {
	args := op.Args(input.Path, output.Path)
	log.Debug("transcoder args: %v", args)

	if err := p.transcoder.Run(ctx, args); err != nil {
		te := &TranscodeError{Err: err}
		var xe *transcoder.Error
		if errors.As(err, &xe) {
			te.Stderr = xe.Stderr
		}
		return 0, te
	}

	size, err := output.Size()
	if err != nil {
		return 0, &TranscodeError{Err: fmt.Errorf("transcoder produced no output: %w", err)}
	}
	log.Debug("produced %d bytes", size)
	return size, nil
}

func (p *Pipeline) upload(ctx context.Context, log logging.JobLogger, op Operation, src *filesystem.File, size int64) error {
	f, err := src.Open()
	if err != nil {
		return &UploadError{Bucket: p.bucket, Key: op.Key, Err: fmt.Errorf("open output: %w", err)}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Warn("failed to close output %s: %v", src.Path, cerr)
		}
	}()

	if err := p.store.Upload(ctx, p.bucket, op.Key, f, op.ContentType, true); err != nil {
		return &UploadError{Bucket: p.bucket, Key: op.Key, Err: err}
	}

	p.observer.Transferred(op.Name, DirectionUpload, size)
	return nil
}

func (p *Pipeline) stage(operation string, s Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	p.observer.StageFinished(operation, s, time.Since(start), err)
	return err
}

func (p *Pipeline) begin(ctx context.Context, log logging.JobLogger, rec Record) {
	if p.history == nil {
		return
	}
	if err := p.history.Begin(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("failed to record job start: %v", err)
	}
}

func (p *Pipeline) finish(ctx context.Context, log logging.JobLogger, rec Record) {
	if p.history == nil {
		return
	}
	if err := p.history.Finish(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("failed to record job result: %v", err)
	}
}
