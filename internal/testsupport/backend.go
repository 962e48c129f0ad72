package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"uploadai/internal/api"
)

// RecordedRequest captures what the fake backend received.
type RecordedRequest struct {
	Method string
	Path   string
	// Prompt is the transcription prompt, when present.
	Prompt string
	// Upload fields are set for POST /videos.
	FileName    string
	ContentType string
	FileData    []byte
	Completion  api.CompletionRequest
}

// Backend is an in-process fake of the upload.ai backend.
type Backend struct {
	*httptest.Server

	mu               sync.Mutex
	requests         []RecordedRequest
	prompts          []api.Prompt
	videoID          string
	uploadStatus     int
	completionChunks []string
}

// BackendOption customizes a Backend.
type BackendOption func(*Backend)

// WithPrompts sets the catalog served from GET /prompts.
func WithPrompts(prompts ...api.Prompt) BackendOption {
	return func(b *Backend) { b.prompts = prompts }
}

// WithVideoID sets the id returned from POST /videos.
func WithVideoID(id string) BackendOption {
	return func(b *Backend) { b.videoID = id }
}

// WithUploadStatus makes POST /videos fail with the given status code.
func WithUploadStatus(code int) BackendOption {
	return func(b *Backend) { b.uploadStatus = code }
}

// WithCompletion sets the chunks streamed from POST /ai/complete.
func WithCompletion(chunks ...string) BackendOption {
	return func(b *Backend) { b.completionChunks = chunks }
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t testing.TB, opts ...BackendOption) *Backend {
	t.Helper()

	b := &Backend{
		videoID:          "video-1",
		prompts:          []api.Prompt{},
		completionChunks: []string{"generated ", "text"},
	}
	for _, opt := range opts {
		opt(b)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /prompts", b.handlePrompts)
	mux.HandleFunc("POST /videos", b.handleCreateVideo)
	mux.HandleFunc("POST /videos/{id}/transcription", b.handleTranscription)
	mux.HandleFunc("POST /ai/complete", b.handleComplete)
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

// Requests returns a copy of every request received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

func (b *Backend) record(req RecordedRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
}

func (b *Backend) handlePrompts(w http.ResponseWriter, r *http.Request) {
	b.record(RecordedRequest{Method: r.Method, Path: r.URL.Path})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b.prompts)
}

func (b *Backend) handleCreateVideo(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{Method: r.Method, Path: r.URL.Path}
	if file, header, err := r.FormFile("file"); err == nil {
		rec.FileName = header.Filename
		rec.ContentType = header.Header.Get("Content-Type")
		rec.FileData, _ = io.ReadAll(file)
		file.Close()
	}
	b.record(rec)
	if b.uploadStatus != 0 {
		http.Error(w, "upload rejected", b.uploadStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"video": map[string]any{"id": b.videoID, "name": rec.FileName},
	})
}

func (b *Backend) handleTranscription(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.record(RecordedRequest{Method: r.Method, Path: r.URL.Path, Prompt: body.Prompt})
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleComplete(w http.ResponseWriter, r *http.Request) {
	var body api.CompletionRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.record(RecordedRequest{Method: r.Method, Path: r.URL.Path, Completion: body})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	flusher, _ := w.(http.Flusher)
	for _, chunk := range b.completionChunks {
		_, _ = io.WriteString(w, chunk)
		if flusher != nil {
			flusher.Flush()
		}
	}
}
