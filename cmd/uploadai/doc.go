// Package main hosts the uploadai CLI entrypoint and command graph.
//
// The Cobra command tree converts a local video to MP3, uploads it to the
// upload.ai backend, requests its transcription, lists the prompt catalog and
// streams completions. It also launches the interactive terminal form and
// the environment doctor. Configuration resolution and logger setup live in
// commandContext so subcommands only wire collaborators together.
//
// Keep this package thin: behavior belongs in internal packages and is
// surfaced here through flags and output formatting.
package main
