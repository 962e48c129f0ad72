package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uploadai/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check engine binaries, disk space and backend reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			failed := preflight.Failed(results)

			if asJSON {
				checks := make([]checkJSON, 0, len(results))
				for _, r := range results {
					checks = append(checks, checkJSON{Name: r.Name, Passed: r.Passed, Detail: r.Detail, Optional: r.Optional})
				}
				if err := writeJSON(cmd, checks); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					kind := statusOK
					switch {
					case !r.Passed && r.Optional:
						kind = statusWarn
					case !r.Passed:
						kind = statusError
					}
					rows = append(rows, []string{r.Name, renderBadge(kind, colorize), r.Detail})
				}
				fmt.Fprintln(out, renderTable([]column{
					{Header: "Check"},
					{Header: "Status"},
					{Header: "Detail", MaxWidth: 72},
				}, rows))
				if len(failed) == 0 {
					fmt.Fprintln(out, renderStatusLine("All checks passed", statusOK, "", colorize))
				}
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
