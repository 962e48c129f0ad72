package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uploadai/internal/api"
	"uploadai/internal/catalog"
)

func newPromptsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List the prompt templates offered by the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(cmd)
			if err != nil {
				return err
			}

			cat, err := catalog.Load(cmd.Context(), newAPIClient(cfg, logger))
			if err != nil {
				return err
			}
			prompts := cat.Prompts()

			if asJSON {
				if prompts == nil {
					prompts = []api.Prompt{}
				}
				return writeJSON(cmd, prompts)
			}

			out := cmd.OutOrStdout()
			if cat.Len() == 0 {
				fmt.Fprintln(out, "No prompts available")
				return nil
			}
			rows := make([][]string, 0, len(prompts))
			for _, prompt := range prompts {
				rows = append(rows, []string{prompt.ID, prompt.Title, prompt.Template})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "ID"},
				{Header: "Title", MaxWidth: 32},
				{Header: "Template", MaxWidth: 60},
			}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}
