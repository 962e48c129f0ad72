package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

type uploadJSON struct {
	VideoID    string `json:"videoId"`
	AudioBytes int    `json:"audioBytes"`
}

type checkJSON struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
