// Package convert turns a selected video into the compact MP3 artifact the
// backend transcribes.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"uploadai/internal/engine"
	"uploadai/internal/logging"
	"uploadai/internal/media/ffprobe"
	"uploadai/internal/services"
)

const (
	inputName  = "input.mp4"
	outputName = "output.mp3"

	// ArtifactName is the file name the audio is uploaded under.
	ArtifactName = "audio.mp3"
	// ArtifactContentType is the MIME type of the uploaded audio.
	ArtifactContentType = "audio/mpeg"
)

// Args is the fixed ffmpeg command: keep only audio, encode MP3 at 20 kbit/s.
var Args = []string{"-i", inputName, "-map", "0:a", "-b:a", "20k", "-acodec", "libmp3lame", outputName}

// Artifact is the converted audio, held in memory until it is uploaded.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the artifact length in bytes.
func (a Artifact) Size() int {
	return len(a.Data)
}

// Engine is the subset of *engine.Handle conversion needs.
type Engine interface {
	WriteFile(name string, r io.Reader) (int64, error)
	ReadFile(name string) ([]byte, error)
	RemoveFile(name string) error
	Probe(ctx context.Context, name string) (ffprobe.Result, error)
	Exec(ctx context.Context, args []string, onProgress engine.ProgressFunc) error
}

// VideoToAudio writes video into the engine workspace, runs the fixed audio
// extraction command, and returns the encoded audio. onProgress receives whole
// percentages and may be nil.
func VideoToAudio(ctx context.Context, eng Engine, video io.Reader, onProgress func(percent int), logger *slog.Logger) (Artifact, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	defer func() {
		_ = eng.RemoveFile(inputName)
		_ = eng.RemoveFile(outputName)
	}()
	// a previous failed run may have left an output behind
	_ = eng.RemoveFile(outputName)

	written, err := eng.WriteFile(inputName, video)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrValidation, "converting", "write input", "", err)
	}
	logger.Debug("video staged", logging.Int64("bytes", written))

	if result, err := eng.Probe(ctx, inputName); err == nil && !result.HasAudio() {
		logger.Warn("video has no audio stream; conversion will fail")
	}

	var progress engine.ProgressFunc
	if onProgress != nil {
		progress = func(p engine.Progress) { onProgress(p.Percent()) }
	}
	if err := eng.Exec(ctx, Args, progress); err != nil {
		return Artifact{}, err
	}

	data, err := eng.ReadFile(outputName)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "converting", "read output", "", err)
	}
	if len(data) == 0 {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "converting", "read output", "engine produced empty audio", nil)
	}
	return Artifact{Name: ArtifactName, ContentType: ArtifactContentType, Data: data}, nil
}

// Converter acquires the shared engine for each conversion.
type Converter struct {
	provider *engine.Provider
	logger   *slog.Logger
}

// NewConverter builds a Converter on top of provider.
func NewConverter(provider *engine.Provider, logger *slog.Logger) *Converter {
	return &Converter{provider: provider, logger: logging.NewComponentLogger(logger, "convert")}
}

// Convert acquires the engine and runs VideoToAudio.
func (c *Converter) Convert(ctx context.Context, video io.Reader, onProgress func(percent int)) (Artifact, error) {
	if c == nil || c.provider == nil {
		return Artifact{}, fmt.Errorf("convert: %w", engine.ErrEngineUnavailable)
	}
	handle, err := c.provider.Acquire(ctx)
	if err != nil {
		return Artifact{}, err
	}
	return VideoToAudio(ctx, handle, video, onProgress, logging.WithContext(ctx, c.logger))
}
