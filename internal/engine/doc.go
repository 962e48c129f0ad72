// Package engine adapts the native ffmpeg toolchain into a lazily loaded,
// process-wide transcoding engine.
//
// A Provider owns at most one Handle. The first Acquire resolves and probes
// the ffmpeg binary and creates a private workspace directory; later calls
// return the cached Handle. A failed load caches nothing, so the next Acquire
// tries again.
//
// Handle exposes a small virtual filesystem (WriteFile, ReadFile, RemoveFile)
// confined to the workspace, and Exec, which runs one ffmpeg command at a time
// and reports progress as a ratio of the input duration.
package engine
