package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"uploadai/internal/logging"
	"uploadai/internal/media/ffprobe"
	"uploadai/internal/services"
)

const stderrTailBytes = 4096

// Handle is a loaded engine. File names passed to it are plain names inside
// the engine workspace.
type Handle struct {
	ffmpeg  string
	ffprobe string
	dir     string
	logger  *slog.Logger

	// execMu serializes Exec; the engine runs one command at a time.
	execMu sync.Mutex

	stateMu sync.RWMutex
	closed  bool
}

func newHandle(ffmpegPath, ffprobePath, dir string, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handle{ffmpeg: ffmpegPath, ffprobe: ffprobePath, dir: dir, logger: logger}
}

// Dir returns the workspace directory.
func (h *Handle) Dir() string {
	return h.dir
}

// WriteFile stores r in the workspace under name, replacing any existing file.
func (h *Handle) WriteFile(name string, r io.Reader) (int64, error) {
	path, err := h.resolve(name)
	if err != nil {
		return 0, err
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("engine write %s: %w", name, err)
	}
	n, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("engine write %s: %w", name, err)
	}
	return n, nil
}

// ReadFile returns the contents of a workspace file.
func (h *Handle) ReadFile(name string) ([]byte, error) {
	path, err := h.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine read %s: %w", name, err)
	}
	return data, nil
}

// RemoveFile deletes a workspace file. Missing files are not an error.
func (h *Handle) RemoveFile(name string) error {
	path, err := h.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("engine remove %s: %w", name, err)
	}
	return nil
}

// Probe inspects a workspace file with ffprobe.
func (h *Handle) Probe(ctx context.Context, name string) (ffprobe.Result, error) {
	path, err := h.resolve(name)
	if err != nil {
		return ffprobe.Result{}, err
	}
	if h.ffprobe == "" {
		return ffprobe.Result{}, errors.New("engine probe: ffprobe unavailable")
	}
	return ffprobe.Inspect(ctx, h.ffprobe, path)
}

// Exec runs ffmpeg with args inside the workspace. Relative file arguments
// refer to workspace files. onProgress may be nil.
func (h *Handle) Exec(ctx context.Context, args []string, onProgress ProgressFunc) error {
	h.execMu.Lock()
	defer h.execMu.Unlock()

	h.stateMu.RLock()
	closed := h.closed
	h.stateMu.RUnlock()
	if closed {
		return ErrClosed
	}

	parser := &progressParser{onProgress: onProgress}
	if onProgress != nil {
		parser.duration = h.inputDuration(ctx, args)
	}

	full := make([]string, 0, len(args)+6)
	full = append(full, "-hide_banner", "-nostdin", "-y", "-progress", "pipe:1", "-nostats")
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, h.ffmpeg, full...)
	cmd.Dir = h.dir
	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine exec: stdout pipe: %w", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "engine", "exec", "start ffmpeg", err)
	}
	parser.consume(stdout)
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("engine exec: %w", ctxErr)
		}
		execErr := &ExecError{Args: append([]string(nil), args...), ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			execErr.ExitCode = exitErr.ExitCode()
		}
		h.logger.Debug("ffmpeg failed",
			logging.Int("exit_code", execErr.ExitCode),
			logging.String("stderr_tail", strings.TrimSpace(execErr.Stderr)),
		)
		return services.Wrap(services.ErrExternalTool, "engine", "exec", "", execErr)
	}
	h.logger.Debug("ffmpeg finished",
		logging.String("args", strings.Join(args, " ")),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// inputDuration probes the first -i argument. Zero means unknown.
func (h *Handle) inputDuration(ctx context.Context, args []string) time.Duration {
	if h.ffprobe == "" {
		return 0
	}
	for i := 0; i+1 < len(args); i++ {
		if args[i] != "-i" {
			continue
		}
		path := args[i+1]
		if !filepath.IsAbs(path) {
			path = filepath.Join(h.dir, path)
		}
		result, err := ffprobe.Inspect(ctx, h.ffprobe, path)
		if err != nil {
			h.logger.Debug("duration probe failed", logging.Error(err))
			return 0
		}
		return result.Duration()
	}
	return 0
}

func (h *Handle) resolve(name string) (string, error) {
	h.stateMu.RLock()
	closed := h.closed
	h.stateMu.RUnlock()
	if closed {
		return "", ErrClosed
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name || trimmed == "." || trimmed == ".." ||
		strings.ContainsAny(trimmed, `/\`) || filepath.Base(trimmed) != trimmed {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(h.dir, trimmed), nil
}

func (h *Handle) close() error {
	h.execMu.Lock()
	defer h.execMu.Unlock()
	h.stateMu.Lock()
	h.closed = true
	h.stateMu.Unlock()
	if err := os.RemoveAll(h.dir); err != nil {
		return fmt.Errorf("engine close: remove workspace: %w", err)
	}
	return nil
}
