package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"uploadai/internal/logging"
	"uploadai/internal/pipeline"
	"uploadai/internal/preflight"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var prompt string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "upload <video>",
		Short: "Convert a video to MP3, upload it, and request its transcription",
		Long: `Convert a local video to a low-bitrate MP3, upload the audio to the backend,
and ask the backend to transcribe it. The new video id is printed on success.

Use --prompt to pass keywords mentioned in the video, separated by commas,
so the transcription spells them correctly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(cmd)
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "cli")

			file, err := pipeline.FileFromPath(args[0])
			if err != nil {
				return err
			}

			lockPath := cfg.UploadLockPath()
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire upload lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another upload is already running (lock %s)", lockPath)
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release upload lock", logging.Error(err))
				}
			}()

			if check := preflight.CheckFreeSpace("Engine workspace", cfg.WorkDir(), preflight.MinFreeBytes); !check.Passed {
				return fmt.Errorf("engine workspace %s: %s", cfg.WorkDir(), check.Detail)
			}

			converter, release := newConverter(cfg, logger)
			defer release()

			stderr := cmd.ErrOrStderr()
			progress := newUploadProgress(stderr, isTerminal(stderr), logger)
			p := pipeline.New(converter, newAPIClient(cfg, logger),
				pipeline.WithResetDelay(cfg.ResetDelay()),
				pipeline.WithLogger(logger),
				pipeline.WithObservers(progress.observers()),
			)
			defer p.Close()

			logger.Info("uploading video",
				logging.String("file", file.Name),
				logging.String("size", humanize.IBytes(uint64(file.Size))),
			)
			result, err := p.Submit(cmd.Context(), pipeline.Submission{File: file, Prompt: prompt})
			progress.finish()
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, uploadJSON{VideoID: result.VideoID, AudioBytes: result.AudioBytes})
			}
			fmt.Fprintln(stderr, renderStatusLine(pipeline.StatusSuccess.Label(100), statusOK,
				fmt.Sprintf("%s of audio uploaded", humanize.IBytes(uint64(result.AudioBytes))), progress.colorize))
			fmt.Fprintln(cmd.OutOrStdout(), result.VideoID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Transcription prompt: keywords mentioned in the video, comma separated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// uploadProgress renders pipeline events. On a terminal conversion progress
// drives a progress bar; elsewhere it is logged in 5% buckets.
type uploadProgress struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
	bar      *progressbar.ProgressBar
	status   pipeline.Status
}

func newUploadProgress(out io.Writer, tty bool, logger *slog.Logger) *uploadProgress {
	p := &uploadProgress{
		out:      out,
		colorize: tty,
		logger:   logger,
		sampler:  logging.NewProgressSampler(5),
	}
	if tty {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(pipeline.StatusConverting.Label(0)),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

func (p *uploadProgress) observers() pipeline.Observers {
	return pipeline.Observers{
		OnStatus:   p.onStatus,
		OnProgress: p.onProgress,
	}
}

func (p *uploadProgress) onStatus(status pipeline.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous := p.status
	p.status = status
	if previous == pipeline.StatusConverting && p.bar != nil {
		_ = p.bar.Finish()
	}
	switch status {
	case pipeline.StatusConverting, pipeline.StatusWaiting, pipeline.StatusSuccess:
		return
	}
	fmt.Fprintln(p.out, renderStatusLine(status.Label(100), pipelineStatusKind(status), "", p.colorize))
}

func (p *uploadProgress) onProgress(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Describe(pipeline.StatusConverting.Label(percent))
		_ = p.bar.Set(percent)
		return
	}
	if p.sampler.ShouldLog(percent, string(pipeline.StatusConverting)) {
		p.logger.Info("converting", logging.Int("percent", percent))
	}
}

func (p *uploadProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil && p.status == pipeline.StatusConverting {
		_ = p.bar.Finish()
	}
}
