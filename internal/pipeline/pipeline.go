package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"uploadai/internal/api"
	"uploadai/internal/convert"
	"uploadai/internal/logging"
	"uploadai/internal/services"
)

// Converter produces the audio artifact for a video.
type Converter interface {
	Convert(ctx context.Context, video io.Reader, onProgress func(percent int)) (convert.Artifact, error)
}

// Backend is the subset of the API client the pipeline calls.
type Backend interface {
	CreateVideo(ctx context.Context, upload api.Upload) (api.Video, error)
	CreateTranscription(ctx context.Context, videoID, prompt string) error
}

// Submission is one press of the upload control.
type Submission struct {
	File *SelectedFile
	// Prompt is forwarded to the transcription request unchanged.
	Prompt string
}

// Result describes a successful submission.
type Result struct {
	VideoID    string
	AudioBytes int
}

// Observers receive pipeline events. Callbacks run outside the pipeline lock
// on the goroutine that caused the event; the reset callback runs on the timer
// goroutine.
type Observers struct {
	OnStatus        func(Status)
	OnProgress      func(percent int)
	OnVideoUploaded func(videoID string)
}

// AfterFunc schedules f after d and returns a stop function, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithObservers registers event callbacks.
func WithObservers(obs Observers) Option {
	return func(p *Pipeline) { p.observers = obs }
}

// WithResetDelay overrides how long success and failed stay visible.
func WithResetDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.resetDelay = d
		}
	}
}

// WithAfterFunc replaces the reset timer (useful for tests).
func WithAfterFunc(fn AfterFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.afterFunc = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline sequences conversion, upload, and transcription for one
// submission at a time.
type Pipeline struct {
	converter  Converter
	backend    Backend
	observers  Observers
	resetDelay time.Duration
	afterFunc  AfterFunc
	logger     *slog.Logger

	mu        sync.Mutex
	status    Status
	progress  int
	run       uint64
	stopReset func() bool
}

// DefaultResetDelay is how long the outcome stays visible before the form resets.
const DefaultResetDelay = 2 * time.Second

// New builds a Pipeline in the waiting state.
func New(converter Converter, backend Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		converter:  converter,
		backend:    backend,
		resetDelay: DefaultResetDelay,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		logger: logging.NewNop(),
		status: StatusWaiting,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	return p
}

// Status returns the current state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Progress returns the last conversion percentage of the current submission.
func (p *Pipeline) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Submit runs one submission to completion. Without a file it is a no-op.
// Failures are returned as *StageError after the pipeline enters failed.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (Result, error) {
	if sub.File == nil || sub.File.Open == nil {
		return Result{}, nil
	}

	// A displayed success may be replaced by a new submission; the pending
	// reset is cancelled so it cannot land mid-run.
	p.mu.Lock()
	from := p.status
	if !isValidTransition(from, StatusConverting) {
		p.mu.Unlock()
		return Result{}, ErrBusy
	}
	p.status = StatusConverting
	p.progress = 0
	p.run++
	stop := p.stopReset
	p.stopReset = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
	p.announce(from, StatusConverting)

	log := logging.WithContext(ctx, p.logger)
	log.Info("submission started",
		logging.String("file", sub.File.Name),
		logging.Int64("bytes", sub.File.Size),
	)
	started := time.Now()

	artifact, err := p.convert(services.WithStage(ctx, string(StatusConverting)), sub.File)
	if err != nil {
		return Result{}, p.fail(ctx, StatusConverting, err)
	}

	if err := p.transition(StatusUploading); err != nil {
		return Result{}, err
	}
	video, err := p.backend.CreateVideo(services.WithStage(ctx, string(StatusUploading)), api.Upload{
		Name:        artifact.Name,
		ContentType: artifact.ContentType,
		Body:        bytes.NewReader(artifact.Data),
	})
	if err != nil {
		return Result{}, p.fail(ctx, StatusUploading, err)
	}
	ctx = services.WithVideoID(ctx, video.ID)

	if err := p.transition(StatusGenerating); err != nil {
		return Result{}, err
	}
	if err := p.backend.CreateTranscription(services.WithStage(ctx, string(StatusGenerating)), video.ID, sub.Prompt); err != nil {
		return Result{}, p.fail(ctx, StatusGenerating, err)
	}

	if err := p.transition(StatusSuccess); err != nil {
		return Result{}, err
	}
	logging.WithContext(ctx, p.logger).Info("submission finished",
		logging.Int("audio_bytes", artifact.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	if p.observers.OnVideoUploaded != nil {
		p.observers.OnVideoUploaded(video.ID)
	}
	p.scheduleReset()
	return Result{VideoID: video.ID, AudioBytes: artifact.Size()}, nil
}

func (p *Pipeline) convert(ctx context.Context, file *SelectedFile) (convert.Artifact, error) {
	reader, err := file.Open()
	if err != nil {
		return convert.Artifact{}, services.Wrap(services.ErrValidation, string(StatusConverting), "open video", "", err)
	}
	defer reader.Close()
	return p.converter.Convert(ctx, reader, p.setProgress)
}

func (p *Pipeline) setProgress(percent int) {
	p.mu.Lock()
	if p.status != StatusConverting {
		p.mu.Unlock()
		return
	}
	p.progress = percent
	p.mu.Unlock()
	if p.observers.OnProgress != nil {
		p.observers.OnProgress(percent)
	}
}

func (p *Pipeline) fail(ctx context.Context, stage Status, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}
	if transErr := p.transition(StatusFailed); transErr != nil {
		return transErr
	}
	logging.WithContext(ctx, p.logger).Error("submission failed",
		logging.Stage(string(stage)),
		logging.Error(err),
	)
	p.scheduleReset()
	return stageErr
}

func (p *Pipeline) transition(to Status) error {
	p.mu.Lock()
	from := p.status
	if !isValidTransition(from, to) {
		p.mu.Unlock()
		return fmt.Errorf("pipeline: invalid transition: %s -> %s", from, to)
	}
	p.status = to
	p.mu.Unlock()
	p.announce(from, to)
	return nil
}

func (p *Pipeline) announce(from, to Status) {
	p.logger.Debug("status changed", logging.String("from", string(from)), logging.String("to", string(to)))
	if p.observers.OnStatus != nil {
		p.observers.OnStatus(to)
	}
}

func (p *Pipeline) scheduleReset() {
	p.mu.Lock()
	run := p.run
	p.mu.Unlock()

	stop := p.afterFunc(p.resetDelay, func() { p.reset(run) })
	p.mu.Lock()
	if p.run != run {
		p.mu.Unlock()
		stop()
		return
	}
	p.stopReset = stop
	p.mu.Unlock()
}

// reset returns to waiting unless a newer submission started after run.
func (p *Pipeline) reset(run uint64) {
	p.mu.Lock()
	if p.run != run {
		p.mu.Unlock()
		return
	}
	p.stopReset = nil
	p.mu.Unlock()
	if err := p.transition(StatusWaiting); err != nil {
		p.logger.Debug("reset skipped", logging.Error(err))
	}
}

// Close cancels a pending reset timer.
func (p *Pipeline) Close() {
	p.mu.Lock()
	stop := p.stopReset
	p.stopReset = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
}
