// Package preflight provides readiness checks for the engine binaries, local
// directories, and the backend that uploadai depends on.
//
// These checks run in two contexts:
//   - `uploadai doctor` runs RunAll and renders every result.
//   - `uploadai upload` calls CheckFreeSpace before converting, so a full
//     disk fails fast instead of midway through ffmpeg.
package preflight
