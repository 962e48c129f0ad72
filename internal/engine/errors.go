package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEngineUnavailable marks failures to load the transcoding engine.
	ErrEngineUnavailable = errors.New("transcoding engine unavailable")
	// ErrInvalidName is returned for workspace names that would escape the workspace.
	ErrInvalidName = errors.New("invalid workspace file name")
	// ErrClosed is returned when a handle is used after its provider closed it.
	ErrClosed = errors.New("engine handle closed")
)

// ExecError reports a failed ffmpeg run along with the tail of its stderr.
type ExecError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with status %d", e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("ffmpeg failed: %v", e.Err)
	}
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + lastLine(tail)
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

func lastLine(text string) string {
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return text
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
