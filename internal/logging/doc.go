// Package logging assembles structured slog loggers and formatting helpers used
// across uploadai.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code tags log lines
// with the video ID, stage, and correlation ID automatically. The package also
// provides a no-op logger for tests and for the terminal UI, where console
// output would corrupt the screen.
package logging
