package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"clip-worker/internal/logging"
)

// maxStderrBytes bounds how much ffmpeg diagnostic output is kept per run.
const maxStderrBytes = 16 * 1024

const waitDelay = 5 * time.Second

// Transcoder executes ffmpeg and tracks the processes it started.
type Transcoder struct {
	binary    string
	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// New creates a Transcoder that runs the given binary. An empty binary
// means "ffmpeg" from PATH.
func New(binary string) *Transcoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Transcoder{
		binary:    binary,
		processes: make(map[string]*exec.Cmd),
	}
}

// Binary returns the configured ffmpeg binary.
func (t *Transcoder) Binary() string {
	return t.binary
}

// Running returns the number of ffmpeg processes currently executing.
func (t *Transcoder) Running() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Run executes ffmpeg with args and waits for it to exit. The last
// argument identifies the run in the process table. A non-zero exit, a
// missing binary or a start failure is returned as *Error.
func (t *Transcoder) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("no ffmpeg arguments")
	}
	key := args[len(args)-1]

	cmd := exec.CommandContext(ctx, t.binary, args...)
	stderr := newTailBuffer(maxStderrBytes)
	cmd.Stderr = stderr
	// Bounds how long Wait blocks on the stderr pipe once ffmpeg is gone.
	cmd.WaitDelay = waitDelay

	logging.Debug("Running %s %s", t.binary, strings.Join(args, " "))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return &Error{Binary: t.binary, ExitCode: -1, Err: err}
	}

	t.processMu.Lock()
	t.processes[key] = cmd
	t.processMu.Unlock()

	defer func() {
		t.processMu.Lock()
		delete(t.processes, key)
		t.processMu.Unlock()
	}()

	err := cmd.Wait()
	if err == nil {
		logging.Debug("%s finished in %v", t.binary, time.Since(start))
		return nil
	}

	if ctx.Err() != nil {
		return &Error{Binary: t.binary, ExitCode: -1, Stderr: stderr.String(), Err: ctx.Err()}
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return &Error{
		Binary:   t.binary,
		ExitCode: exitCode,
		Stderr:   stderr.String(),
		Err:      err,
	}
}

// Cleanup stops all active transcoding processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for key, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffmpeg process for: %s", key)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process for %s: %v", key, err)
			}
		}
	}
}

// Check verifies that the binary can be executed and returns the first
// line of its version banner.
func (t *Transcoder) Check(ctx context.Context) (string, error) {
	path, err := exec.LookPath(t.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, t.binary)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line), nil
}
