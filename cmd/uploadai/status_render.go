package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"uploadai/internal/pipeline"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	line := fmt.Sprintf("[%s] %s", statusKindLabel(kind), label)
	if message != "" {
		line += ": " + message
	}
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func renderBadge(kind statusKind, colorize bool) string {
	badge := statusKindLabel(kind)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + badge + ansiReset
		}
	}
	return badge
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// pipelineStatusKind maps a pipeline status onto a status line color.
func pipelineStatusKind(status pipeline.Status) statusKind {
	switch status {
	case pipeline.StatusSuccess:
		return statusOK
	case pipeline.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
