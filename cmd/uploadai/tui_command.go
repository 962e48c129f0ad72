package main

import (
	"github.com/spf13/cobra"

	"uploadai/internal/tui"
)

func newTUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive upload and generation form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// The form owns the terminal, so logs only go to the log file.
			logger, err := ctx.newLogger(nil)
			if err != nil {
				return err
			}

			converter, release := newConverter(cfg, logger)
			defer release()

			return tui.Run(tui.Options{
				Converter:   converter,
				Client:      newAPIClient(cfg, logger),
				ResetDelay:  cfg.ResetDelay(),
				Temperature: cfg.Completion.Temperature,
				ModelLabel:  cfg.Completion.Model,
				Logger:      logger,
			})
		},
	}
}
