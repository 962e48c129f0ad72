package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"uploadai/internal/deps"
	"uploadai/internal/logging"
	"uploadai/internal/services"
)

// Config describes where the engine binaries and workspace live.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	// WorkDir is the parent of the engine workspace. Empty uses os.TempDir.
	WorkDir string
}

// Loader initializes a Handle. Provider calls it at most once per successful load.
type Loader func(ctx context.Context) (*Handle, error)

// Provider lazily loads and caches the process-wide engine Handle.
type Provider struct {
	mu     sync.Mutex
	loader Loader
	handle *Handle
	logger *slog.Logger
}

// Option customizes a Provider.
type Option func(*Provider)

// WithLoader replaces the default ffmpeg loader.
func WithLoader(loader Loader) Option {
	return func(p *Provider) {
		if loader != nil {
			p.loader = loader
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider builds a Provider for the given configuration. Nothing is loaded
// until the first Acquire.
func NewProvider(cfg Config, opts ...Option) *Provider {
	p := &Provider{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "engine")
	if p.loader == nil {
		logger := p.logger
		p.loader = func(ctx context.Context) (*Handle, error) {
			return Load(ctx, cfg, logger)
		}
	}
	return p
}

// Acquire returns the loaded engine, loading it on first use. Concurrent
// callers wait for the single in-flight load and share its result.
func (p *Provider) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		return p.handle, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := p.loader(ctx)
	if err != nil {
		p.logger.Warn("engine load failed", logging.Error(err))
		return nil, err
	}
	if handle == nil {
		return nil, unavailable("loader returned no handle", nil)
	}
	p.handle = handle
	p.logger.Debug("engine loaded", logging.String("workspace", handle.Dir()))
	return handle, nil
}

// Loaded reports whether a handle is cached.
func (p *Provider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

// Close tears down the cached handle and removes its workspace. A later
// Acquire loads a fresh engine.
func (p *Provider) Close() error {
	p.mu.Lock()
	handle := p.handle
	p.handle = nil
	p.mu.Unlock()

	if handle == nil {
		return nil
	}
	return handle.close()
}

// Load resolves the ffmpeg toolchain, proves it runs, and creates a workspace.
func Load(ctx context.Context, cfg Config, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	statuses := deps.CheckBinaries(deps.EngineRequirements(cfg.FFmpegBinary, cfg.FFprobeBinary))
	if missing, ok := deps.FirstMissing(statuses); ok {
		return nil, unavailable(missing.Detail, nil)
	}
	ffmpegPath := statuses[0].Path
	ffprobePath := ""
	if statuses[1].Available {
		ffprobePath = statuses[1].Path
	} else {
		logger.Warn("ffprobe unavailable; conversion progress will not be reported",
			logging.String("detail", statuses[1].Detail))
	}

	version, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-version").Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable("ffmpeg -version failed", err)
	}
	logger.Debug("ffmpeg resolved",
		logging.String("path", ffmpegPath),
		logging.String("version", firstLine(string(version))),
	)

	parent := strings.TrimSpace(cfg.WorkDir)
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, unavailable("create workspace parent", err)
	}
	dir, err := os.MkdirTemp(parent, "uploadai-engine-")
	if err != nil {
		return nil, unavailable("create workspace", err)
	}
	return newHandle(ffmpegPath, ffprobePath, dir, logger), nil
}

func unavailable(message string, err error) error {
	cause := ErrEngineUnavailable
	if err != nil {
		cause = fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return services.Wrap(services.ErrExternalTool, "engine", "load", message, cause)
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
