package main

import (
	"bytes"
	"strings"
	"testing"

	"uploadai/internal/logging"
	"uploadai/internal/pipeline"
)

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("Uploading...", statusInfo, "", false)
	if got != "[INFO] Uploading..." {
		t.Fatalf("unexpected line: got %q want %q", got, "[INFO] Uploading...")
	}
	colored := renderStatusLine("Failed", statusError, "http 502", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
	if !strings.Contains(colored, "Failed: http 502") {
		t.Fatalf("expected message in line, got %q", colored)
	}
}

func TestUploadProgressWithoutTerminal(t *testing.T) {
	var out, logs bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &logs})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	progress := newUploadProgress(&out, false, logger)
	obs := progress.observers()

	obs.OnStatus(pipeline.StatusConverting)
	for _, pct := range []int{1, 2, 3, 6, 7, 50, 100} {
		obs.OnProgress(pct)
	}
	obs.OnStatus(pipeline.StatusUploading)
	obs.OnStatus(pipeline.StatusGenerating)
	obs.OnStatus(pipeline.StatusSuccess)
	obs.OnStatus(pipeline.StatusWaiting)
	progress.finish()

	if got := strings.Count(logs.String(), "converting"); got != 4 {
		t.Fatalf("expected 4 sampled progress lines, got %d:\n%s", got, logs.String())
	}
	want := "[INFO] Uploading...\n[INFO] Transcribing...\n"
	if out.String() != want {
		t.Fatalf("unexpected status output: got %q want %q", out.String(), want)
	}
}
