// Package api is the HTTP client for the upload.ai backend.
//
// It covers the four endpoints the front-ends use: listing prompt templates,
// uploading an audio file as a new video, requesting transcription for a
// video, and streaming a text completion. Every request carries a generated
// X-Request-ID and the configured User-Agent. Non-2xx responses surface as
// *StatusError so callers can inspect the status code with errors.As.
//
// Only the idempotent prompt listing is retried. Uploads, transcription
// requests, and completions are sent exactly once.
package api
