package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SilentVideoMarker makes the stubbed engine treat an input as having no
// audio stream.
const SilentVideoMarker = "NOAUDIO"

// WriteVideo writes a fake video under dir and returns its path. The stubbed
// engine copies the content into the converted audio verbatim.
func WriteVideo(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write video %s: %v", path, err)
	}
	return path
}

// WriteSilentVideo writes a fake video without an audio stream.
func WriteSilentVideo(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteVideo(t, dir, name, SilentVideoMarker)
}
