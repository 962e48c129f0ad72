// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The engine uses it to learn the input duration (so conversion progress can
// be expressed as a ratio) and to warn early when a video carries no audio
// stream.
package ffprobe
