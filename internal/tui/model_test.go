package tui

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"uploadai/internal/api"
	"uploadai/internal/convert"
	"uploadai/internal/pipeline"
	"uploadai/internal/testsupport"
)

type fakeConverter struct{}

func (fakeConverter) Convert(_ context.Context, video io.Reader, onProgress func(int)) (convert.Artifact, error) {
	data, _ := io.ReadAll(video)
	onProgress(100)
	return convert.Artifact{Name: convert.ArtifactName, ContentType: convert.ArtifactContentType, Data: data}, nil
}

type fakeClient struct {
	mu       sync.Mutex
	prompts  []api.Prompt
	chunks   []string
	requests []api.CompletionRequest
	fail     error
}

func (f *fakeClient) CreateVideo(context.Context, api.Upload) (api.Video, error) {
	return api.Video{ID: "vid-1"}, nil
}

func (f *fakeClient) CreateTranscription(context.Context, string, string) error { return nil }

func (f *fakeClient) ListPrompts(context.Context) ([]api.Prompt, error) { return f.prompts, nil }

func (f *fakeClient) Complete(_ context.Context, request api.CompletionRequest, onChunk api.ChunkFunc) error {
	f.mu.Lock()
	f.requests = append(f.requests, request)
	f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	for _, chunk := range f.chunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func newTestModel(t *testing.T, client *fakeClient) Model {
	t.Helper()
	m := New(Options{Converter: fakeConverter{}, Client: client, ResetDelay: time.Hour, Temperature: 0.5})
	t.Cleanup(m.shutdown)
	return m
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model, cmd
}

func focusOn(t *testing.T, m Model, area focusArea) Model {
	t.Helper()
	for m.focus != area {
		m, _ = update(t, m, key(tea.KeyTab))
	}
	return m
}

func TestPromptSelectionFillsPromptText(t *testing.T) {
	client := &fakeClient{prompts: []api.Prompt{
		{ID: "1", Title: "Title", Template: "Title for {transcription}"},
		{ID: "2", Title: "Description", Template: "Describe {transcription}"},
	}}
	m := newTestModel(t, client)

	msg := m.loadPrompts()()
	m, _ = update(t, m, msg)
	if len(m.prompts) != 2 {
		t.Fatalf("expected prompts loaded, got %d", len(m.prompts))
	}

	m = focusOn(t, m, focusPromptSelect)
	m, _ = update(t, m, key(tea.KeyDown))
	if got := m.promptInput.Value(); got != "Title for {transcription}" {
		t.Fatalf("unexpected prompt text: got %q", got)
	}
	m, _ = update(t, m, key(tea.KeyDown))
	m, _ = update(t, m, key(tea.KeyDown))
	if m.promptIndex != 1 || m.promptInput.Value() != "Describe {transcription}" {
		t.Fatalf("unexpected selection %d: %q", m.promptIndex, m.promptInput.Value())
	}
}

func TestTemperatureStepsAndClamps(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m = focusOn(t, m, focusTemperature)
	for range 7 {
		m, _ = update(t, m, key(tea.KeyRight))
	}
	if m.temperature != 1 {
		t.Fatalf("expected temperature clamped to 1, got %v", m.temperature)
	}
	m, _ = update(t, m, key(tea.KeyLeft))
	if m.temperature != 0.9 {
		t.Fatalf("expected 0.9, got %v", m.temperature)
	}
}

func TestStatusEventsUpdateButton(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m, _ = update(t, m, statusMsg{status: pipeline.StatusConverting})
	m, _ = update(t, m, progressMsg{percent: 42})
	if !strings.Contains(m.uploadButton(), "Converting... 42%") {
		t.Fatalf("unexpected button: %q", m.uploadButton())
	}
	m, _ = update(t, m, uploadedMsg{videoID: "vid-9"})
	m, _ = update(t, m, statusMsg{status: pipeline.StatusSuccess})
	if !strings.Contains(m.uploadButton(), "Success!") || m.videoID != "vid-9" {
		t.Fatalf("unexpected state: button=%q video=%q", m.uploadButton(), m.videoID)
	}
}

func TestUploadButtonRunsPipeline(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	path := testsupport.WriteVideo(t, t.TempDir(), "clip.mp4", "frames")
	m.videoInput.SetValue(path)
	m = focusOn(t, m, focusUpload)

	m, cmd := update(t, m, key(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	done, ok := cmd().(submitDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("unexpected submit result: %#v", done)
	}

	var statuses []pipeline.Status
	var videoID string
	for len(statuses) < 4 || videoID == "" {
		switch msg := m.waitForEvent()().(type) {
		case statusMsg:
			statuses = append(statuses, msg.status)
		case uploadedMsg:
			videoID = msg.videoID
		}
	}
	if statuses[len(statuses)-1] != pipeline.StatusSuccess || videoID != "vid-1" {
		t.Fatalf("unexpected events: statuses=%v video=%q", statuses, videoID)
	}
}

func TestUploadAcceptedWhileSuccessShown(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.videoInput.SetValue(testsupport.WriteVideo(t, t.TempDir(), "clip.mp4", "frames"))
	m = focusOn(t, m, focusUpload)

	m, cmd := update(t, m, key(tea.KeyEnter))
	if done := cmd().(submitDoneMsg); done.err != nil {
		t.Fatalf("first submit failed: %v", done.err)
	}
	m, _ = update(t, m, statusMsg{status: pipeline.StatusSuccess})

	m, cmd = update(t, m, key(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected submit command while success is shown")
	}
	if done := cmd().(submitDoneMsg); done.err != nil {
		t.Fatalf("resubmit failed: %v", done.err)
	}
}

func TestUploadIgnoredWhileFailedOrActive(t *testing.T) {
	for _, status := range []pipeline.Status{pipeline.StatusConverting, pipeline.StatusGenerating, pipeline.StatusFailed} {
		m := newTestModel(t, &fakeClient{})
		m.videoInput.SetValue(testsupport.WriteVideo(t, t.TempDir(), "clip.mp4", "frames"))
		m = focusOn(t, m, focusUpload)
		m, _ = update(t, m, statusMsg{status: status})
		if _, cmd := update(t, m, key(tea.KeyEnter)); cmd != nil {
			t.Fatalf("%s: expected no submit command", status)
		}
	}
}

func TestKeywordsLockedUntilWaiting(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m = focusOn(t, m, focusKeywords)
	typeX := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}

	m, _ = update(t, m, statusMsg{status: pipeline.StatusConverting})
	m, _ = update(t, m, typeX)
	if got := m.keywords.Value(); got != "" {
		t.Fatalf("keywords edited while converting: got %q want %q", got, "")
	}
	if !strings.Contains(m.keywordsView(), m.keywords.Placeholder) {
		t.Fatalf("expected placeholder in locked view: %q", m.keywordsView())
	}

	m, _ = update(t, m, statusMsg{status: pipeline.StatusSuccess})
	m, _ = update(t, m, typeX)
	if got := m.keywords.Value(); got != "" {
		t.Fatalf("keywords edited while success shown: got %q want %q", got, "")
	}

	m, _ = update(t, m, statusMsg{status: pipeline.StatusWaiting})
	m, _ = update(t, m, typeX)
	if got := m.keywords.Value(); got != "x" {
		t.Fatalf("keywords after reset: got %q want %q", got, "x")
	}
}

func TestUploadWithMissingFileShowsError(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.videoInput.SetValue(filepath.Join(t.TempDir(), "missing.mp4"))
	m = focusOn(t, m, focusUpload)
	m, cmd := update(t, m, key(tea.KeyEnter))
	if cmd != nil || m.err == nil {
		t.Fatalf("expected inline error and no command, err=%v", m.err)
	}
}

func TestGenerateStreamsResult(t *testing.T) {
	client := &fakeClient{chunks: []string{"Hello", " world"}}
	m := newTestModel(t, client)

	m = focusOn(t, m, focusGenerate)
	if _, cmd := update(t, m, key(tea.KeyEnter)); cmd != nil {
		t.Fatal("generate must be disabled without a video id")
	}

	m, _ = update(t, m, uploadedMsg{videoID: "vid-1"})
	m.promptInput.SetValue("Summarize {transcription}")
	m, cmd := update(t, m, key(tea.KeyEnter))
	if !m.streaming || cmd == nil {
		t.Fatal("expected streaming to start")
	}
	for cmd != nil {
		m, cmd = update(t, m, cmd())
	}
	if m.streaming {
		t.Fatal("expected streaming to finish")
	}
	if m.resultText != "Hello world" {
		t.Fatalf("unexpected result: got %q want %q", m.resultText, "Hello world")
	}
	if len(client.requests) != 1 || client.requests[0].VideoID != "vid-1" || client.requests[0].Temperature != 0.5 {
		t.Fatalf("unexpected completion requests: %+v", client.requests)
	}
}

func TestGenerateErrorIsShown(t *testing.T) {
	client := &fakeClient{fail: errors.New("backend down")}
	m := newTestModel(t, client)
	m, _ = update(t, m, uploadedMsg{videoID: "vid-1"})
	m = focusOn(t, m, focusGenerate)
	m, cmd := update(t, m, key(tea.KeyEnter))
	for cmd != nil {
		m, cmd = update(t, m, cmd())
	}
	if m.err == nil || !strings.Contains(m.err.Error(), "backend down") {
		t.Fatalf("expected completion error, got %v", m.err)
	}
	if !strings.Contains(m.View(), "backend down") {
		t.Fatal("expected error in view")
	}
}
