package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"uploadai/internal/api"
	"uploadai/internal/catalog"
	"uploadai/internal/logging"
)

func newCompleteCommand(ctx *commandContext) *cobra.Command {
	var videoID string
	var prompt string
	var template string
	var temperature float64

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Generate text from a transcribed video and stream it to stdout",
		Long: `Generate text from the transcript of an uploaded video.

The prompt is sent unchanged; the backend replaces ` + catalog.TranscriptionPlaceholder + `
with the transcript. Use --template to start from a catalog prompt, matched by
id or by title.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(cmd)
			if err != nil {
				return err
			}

			videoID = strings.TrimSpace(videoID)
			if videoID == "" {
				return errors.New("--video is required")
			}
			if prompt != "" && template != "" {
				return errors.New("use either --prompt or --template, not both")
			}
			if !cmd.Flags().Changed("temperature") {
				temperature = cfg.Completion.Temperature
			}
			if temperature < 0 || temperature > 1 {
				return fmt.Errorf("--temperature must be between 0 and 1, got %v", temperature)
			}

			client := newAPIClient(cfg, logger)
			if template != "" {
				cat, err := catalog.Load(cmd.Context(), client)
				if err != nil {
					return err
				}
				selected, err := cat.Resolve(template)
				if err != nil {
					return err
				}
				prompt = selected.Template
			}
			if strings.TrimSpace(prompt) == "" {
				return errors.New("a prompt is required: pass --prompt or --template")
			}
			if !catalog.UsesTranscription(prompt) {
				logger.Warn("prompt does not reference the transcript",
					logging.String("placeholder", catalog.TranscriptionPlaceholder),
				)
			}

			out := cmd.OutOrStdout()
			var last string
			err = client.Complete(cmd.Context(), api.CompletionRequest{
				Prompt:      prompt,
				VideoID:     videoID,
				Temperature: temperature,
			}, func(chunk string) error {
				if chunk == "" {
					return nil
				}
				last = chunk
				_, err := io.WriteString(out, chunk)
				return err
			})
			if last != "" && !strings.HasSuffix(last, "\n") {
				fmt.Fprintln(out)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&videoID, "video", "", "Id of an uploaded video")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt text; "+catalog.TranscriptionPlaceholder+" is replaced with the transcript")
	cmd.Flags().StringVar(&template, "template", "", "Catalog prompt id or title to use as the prompt")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.5, "Creativity from 0 (precise) to 1 (creative)")
	return cmd
}
