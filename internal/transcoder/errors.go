package transcoder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is reported when the ffmpeg binary cannot be located.
var ErrNotFound = errors.New("ffmpeg binary not found")

// Error describes a failed ffmpeg invocation.
type Error struct {
	Binary   string
	ExitCode int
	// Stderr holds the tail of the diagnostic output.
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("%s: %v", e.Binary, e.Err)
	}
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s exited with status %d", e.Binary, e.ExitCode)
	}
	return fmt.Sprintf("%s failed: %v", e.Binary, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max       int
	buf       []byte
	truncated bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.truncated = true
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	s := strings.TrimSpace(string(t.buf))
	if t.truncated {
		return "..." + s
	}
	return s
}
