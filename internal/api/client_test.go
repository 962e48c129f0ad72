package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"uploadai/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]Option{WithSleeper(func(time.Duration) {})}, opts...)
	return NewClient(Config{BaseURL: server.URL + "/", UserAgent: "uploadai/test"}, opts...)
}

func TestListPrompts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/prompts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "uploadai/test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get(requestIDHeader) == "" {
			t.Error("expected request id header")
		}
		_ = json.NewEncoder(w).Encode([]Prompt{
			{ID: "1", Title: "YouTube title", Template: "Generate a title for {transcription}"},
			{ID: "2", Title: "Description", Template: "Describe {transcription}"},
		})
	})

	prompts, err := client.ListPrompts(context.Background())
	if err != nil {
		t.Fatalf("ListPrompts returned error: %v", err)
	}
	if len(prompts) != 2 || prompts[0].Title != "YouTube title" {
		t.Fatalf("unexpected prompts: %+v", prompts)
	}
}

func TestListPromptsEmptyArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "null")
	})
	prompts, err := client.ListPrompts(context.Background())
	if err != nil {
		t.Fatalf("ListPrompts returned error: %v", err)
	}
	if prompts == nil || len(prompts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", prompts)
	}
}

func TestListPromptsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var delays []time.Duration
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"1","title":"t","template":"x"}]`)
	}, WithSleeper(func(d time.Duration) { delays = append(delays, d) }))

	prompts, err := client.ListPrompts(context.Background())
	if err != nil {
		t.Fatalf("ListPrompts returned error: %v", err)
	}
	if len(prompts) != 1 {
		t.Fatalf("unexpected prompts: %+v", prompts)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(delays) != 2 || delays[0] != 2*time.Second {
		t.Fatalf("expected Retry-After delays, got %v", delays)
	}
}

func TestListPromptsGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := client.ListPrompts(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != defaultRetryAttempts {
		t.Fatalf("expected %d attempts, got %d", defaultRetryAttempts, calls.Load())
	}
	if !IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
}

func TestListPromptsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	})
	_, err := client.ListPrompts(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Body != "nope" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single attempt, got %d", calls.Load())
	}
}

func TestBackoffDelay(t *testing.T) {
	client := NewClient(Config{})
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}
	for i, expected := range want {
		if got := client.retry.backoff(i + 1); got != expected {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, expected)
		}
	}
}

func TestRequestIDFromContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(requestIDHeader); got != "req-123" {
			t.Errorf("unexpected request id: got %q want %q", got, "req-123")
		}
		_, _ = io.WriteString(w, "[]")
	})
	ctx := services.WithRequestID(context.Background(), "req-123")
	if _, err := client.ListPrompts(ctx); err != nil {
		t.Fatalf("ListPrompts returned error: %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{BaseURL: "  "})
	if client.BaseURL() != defaultBaseURL {
		t.Fatalf("unexpected base url: got %q want %q", client.BaseURL(), defaultBaseURL)
	}
	if client.timeout != defaultHTTPTimeout {
		t.Fatalf("unexpected timeout: %v", client.timeout)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Method: "POST", Path: "/videos", StatusCode: 502}
	if !strings.Contains(err.Error(), "http 502: Bad Gateway") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

type recordingTransport struct {
	calls atomic.Int32
	next  http.RoundTripper
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.calls.Add(1)
	return r.next.RoundTrip(req)
}

func TestWithHTTPClientIsUsed(t *testing.T) {
	transport := &recordingTransport{next: http.DefaultTransport}
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "[]")
	}, WithHTTPClient(&http.Client{Transport: transport}))
	if _, err := client.ListPrompts(context.Background()); err != nil {
		t.Fatalf("ListPrompts returned error: %v", err)
	}
	if transport.calls.Load() != 1 {
		t.Fatalf("expected custom transport to carry the request, got %d calls", transport.calls.Load())
	}
}

func TestWithRetryBackoffSetsDelays(t *testing.T) {
	var delays []time.Duration
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	},
		WithRetryMaxAttempts(4),
		WithRetryBackoff(100*time.Millisecond, 250*time.Millisecond),
		WithSleeper(func(d time.Duration) { delays = append(delays, d) }),
	)
	if _, err := client.ListPrompts(context.Background()); !IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("expected 502 after retries, got %v", err)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("unexpected sleeps: got %v want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("sleep %d: got %v want %v", i, delays[i], want[i])
		}
	}
}

func TestWithRequestIDGenerator(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(requestIDHeader); got != "fixed-id" {
			t.Errorf("unexpected request id: got %q want %q", got, "fixed-id")
		}
		_, _ = io.WriteString(w, "[]")
	}, WithRequestIDGenerator(func() string { return "fixed-id" }))
	if _, err := client.ListPrompts(context.Background()); err != nil {
		t.Fatalf("ListPrompts returned error: %v", err)
	}
}
