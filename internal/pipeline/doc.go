// Package pipeline runs one video submission through conversion, upload, and
// transcription, exposing the current Status to the front-ends.
//
// The state machine is forward-only within a submission:
//
//	waiting -> converting -> uploading -> generating -> success
//
// Any active state may fall into failed. Both success and failed return to
// waiting on their own after the configured reset delay, without further
// network activity. A new submission is accepted while waiting or while a
// success is displayed; otherwise Submit returns ErrBusy. Submitting without
// a file does nothing.
package pipeline
