package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"uploadai/internal/engine"
	"uploadai/internal/services"
	"uploadai/internal/testsupport"
)

func newProvider(t *testing.T) *engine.Provider {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	provider := engine.NewProvider(engine.Config{
		FFmpegBinary:  cfg.Engine.FFmpegBinary,
		FFprobeBinary: cfg.Engine.FFprobeBinary,
		WorkDir:       cfg.Engine.WorkDir,
	})
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestAcquireIsIdempotent(t *testing.T) {
	provider := newProvider(t)
	first, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	second, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second Acquire returned error: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached handle on the second call")
	}
	if info, err := os.Stat(first.Dir()); err != nil || !info.IsDir() {
		t.Fatalf("expected workspace directory, err=%v", err)
	}
}

func TestAcquireRunsLoaderOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	provider := engine.NewProvider(engine.Config{}, engine.WithLoader(func(ctx context.Context) (*engine.Handle, error) {
		calls.Add(1)
		return engine.Load(ctx, engine.Config{FFmpegBinary: cfg.Engine.FFmpegBinary, WorkDir: cfg.Engine.WorkDir}, nil)
	}))
	t.Cleanup(func() { _ = provider.Close() })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := provider.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire returned error: %v", err)
			}
		}()
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("expected loader to run once, ran %d times", calls.Load())
	}
}

func TestAcquireFailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	provider := engine.NewProvider(engine.Config{}, engine.WithLoader(func(ctx context.Context) (*engine.Handle, error) {
		if calls.Add(1) == 1 {
			return nil, engine.ErrEngineUnavailable
		}
		return engine.Load(ctx, engine.Config{FFmpegBinary: cfg.Engine.FFmpegBinary, WorkDir: cfg.Engine.WorkDir}, nil)
	}))
	t.Cleanup(func() { _ = provider.Close() })

	if _, err := provider.Acquire(context.Background()); !errors.Is(err, engine.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if provider.Loaded() {
		t.Fatal("failed load must not be cached")
	}
	if _, err := provider.Acquire(context.Background()); err != nil {
		t.Fatalf("retry Acquire returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected two loader calls, got %d", calls.Load())
	}
}

func TestLoadMissingBinary(t *testing.T) {
	_, err := engine.Load(context.Background(), engine.Config{FFmpegBinary: "clearly-not-ffmpeg"}, nil)
	if !errors.Is(err, engine.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestHandleFilesAreConfined(t *testing.T) {
	provider := newProvider(t)
	handle, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if _, err := handle.WriteFile("input.mp4", strings.NewReader("video")); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	data, err := handle.ReadFile("input.mp4")
	if err != nil || string(data) != "video" {
		t.Fatalf("ReadFile: got %q err=%v", data, err)
	}
	if err := handle.RemoveFile("input.mp4"); err != nil {
		t.Fatalf("RemoveFile returned error: %v", err)
	}
	if err := handle.RemoveFile("input.mp4"); err != nil {
		t.Fatalf("removing a missing file should succeed, got %v", err)
	}

	for _, name := range []string{"", "..", ".", "../escape", "nested/file", `dir\file`, " spaced"} {
		if _, err := handle.WriteFile(name, strings.NewReader("x")); !errors.Is(err, engine.ErrInvalidName) {
			t.Fatalf("WriteFile(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(handle.Dir()), "escape")); !os.IsNotExist(err) {
		t.Fatal("traversal name must not create files outside the workspace")
	}
}

func TestExecReportsProgress(t *testing.T) {
	provider := newProvider(t)
	handle, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if _, err := handle.WriteFile("input.mp4", strings.NewReader("video-bytes")); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	var percents []int
	err = handle.Exec(context.Background(), []string{"-i", "input.mp4", "output.mp3"}, func(p engine.Progress) {
		percents = append(percents, p.Percent())
	})
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	want := []int{50, 100, 100}
	if len(percents) != len(want) {
		t.Fatalf("unexpected progress events: %v", percents)
	}
	for i := range want {
		if percents[i] != want[i] {
			t.Fatalf("event %d: got %d want %d", i, percents[i], want[i])
		}
	}
	out, err := handle.ReadFile("output.mp3")
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if string(out) != testsupport.StubAudioPrefix+"video-bytes" {
		t.Fatalf("unexpected output: %q", out)
	}
}

// lateCancelContext reports cancellation without ever closing Done, so the
// process it is attached to always runs to completion.
type lateCancelContext struct {
	context.Context
	cancelled atomic.Bool
}

func (c *lateCancelContext) Err() error {
	if c.cancelled.Load() {
		return context.Canceled
	}
	return nil
}

func TestExecKeepsResultWhenCancelledAfterExit(t *testing.T) {
	provider := newProvider(t)
	handle, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if _, err := handle.WriteFile("input.mp4", strings.NewReader("video-bytes")); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	ctx := &lateCancelContext{Context: context.Background()}
	err = handle.Exec(ctx, []string{"-i", "input.mp4", "output.mp3"}, func(engine.Progress) {
		ctx.cancelled.Store(true)
	})
	if err != nil {
		t.Fatalf("Exec returned error after a successful run: %v", err)
	}
	if _, err := handle.ReadFile("output.mp3"); err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
}

func TestExecFailureCarriesStderr(t *testing.T) {
	provider := newProvider(t)
	handle, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if _, err := handle.WriteFile("input.mp4", strings.NewReader(testsupport.SilentVideoMarker)); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	err = handle.Exec(context.Background(), []string{"-i", "input.mp4", "output.mp3"}, nil)
	var execErr *engine.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.ExitCode != 1 || !strings.Contains(execErr.Stderr, "matches no streams") {
		t.Fatalf("unexpected exec error: %+v", execErr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestProbeReportsMissingAudio(t *testing.T) {
	provider := newProvider(t)
	handle, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if _, err := handle.WriteFile("input.mp4", strings.NewReader(testsupport.SilentVideoMarker)); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	result, err := handle.Probe(context.Background(), "input.mp4")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if result.HasAudio() {
		t.Fatal("expected no audio stream")
	}
}

func TestCloseRemovesWorkspace(t *testing.T) {
	provider := newProvider(t)
	handle, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if err := provider.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(handle.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
	if _, err := handle.ReadFile("x"); !errors.Is(err, engine.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
