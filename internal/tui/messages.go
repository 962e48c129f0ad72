package tui

import (
	"uploadai/internal/api"
	"uploadai/internal/pipeline"
)

// pipeline events

type statusMsg struct {
	status pipeline.Status
}

type progressMsg struct {
	percent int
}

type uploadedMsg struct {
	videoID string
}

type submitDoneMsg struct {
	err error
}

// catalog

type promptsLoadedMsg struct {
	prompts []api.Prompt
	err     error
}

// completion stream

type streamChunkMsg struct {
	delta string
	done  bool
	err   error
}
