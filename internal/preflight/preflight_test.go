package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"uploadai/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass with a 1 byte floor, got: %s", result.Detail)
	}
	result := CheckFreeSpace("space", dir, 1<<62)
	if result.Passed {
		t.Fatal("expected failure for an impossible floor")
	}
	if !strings.Contains(result.Detail, "need") {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for a missing path")
	}
}

func TestCheckBackend_OK(t *testing.T) {
	backend := testsupport.NewBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(backend.URL))
	result := CheckBackend(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "0 prompts") {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
}

func TestCheckBackend_ServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(srv.URL))
	result := CheckBackend(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for 500")
	}
	if !strings.Contains(result.Detail, "http 500") {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRunAllWithStubbedEngine(t *testing.T) {
	backend := testsupport.NewBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithBaseURL(backend.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, failed: %+v", failed)
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	if !strings.Contains(strings.Join(names, ","), "FFmpeg") {
		t.Fatalf("expected FFmpeg check, got %v", names)
	}
}

func TestFailedIgnoresOptionalResults(t *testing.T) {
	results := []Result{
		{Name: "FFmpeg", Passed: true},
		{Name: "FFprobe", Detail: "not found (optional)", Optional: true},
		{Name: "Backend", Detail: "unreachable"},
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Backend" {
		t.Fatalf("unexpected failed results: %+v", failed)
	}
}
