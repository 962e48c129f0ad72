// Package tui is the interactive terminal form for uploadai.
//
// The screen mirrors the web page it replaces: a video form on the left
// (path, transcription keywords, upload button with live status) and a
// generation panel on the right (prompt template select, editable prompt,
// temperature, streamed result). Pipeline events and completion chunks reach
// the model through channels drained by tea.Cmds, one message at a time.
package tui
