package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"uploadai/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Engine.WorkDir = filepath.Join(base, "work")
	cfgVal.Upload.ResetDelayMillis = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBaseURL points the test config at a backend, usually a Backend's URL.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
	}
}

// WithStubbedBinaries writes fake ffmpeg and ffprobe executables into the
// test directory and points the engine config at them.
//
// The fake ffmpeg answers -version, emits -progress output for a 10 second
// input, and writes the output file as a marker followed by the input bytes.
// Inputs containing SilentVideoMarker make ffmpeg fail the way a missing audio stream
// does, and make ffprobe report no audio stream.
func WithStubbedBinaries() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		stubs := map[string]string{
			"ffmpeg":  ffmpegStub,
			"ffprobe": ffprobeStub,
		}
		for name, script := range stubs {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.cfg.Engine.FFmpegBinary = filepath.Join(binDir, "ffmpeg")
		b.cfg.Engine.FFprobeBinary = filepath.Join(binDir, "ffprobe")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// StubAudioPrefix is prepended by the fake ffmpeg to every output file.
const StubAudioPrefix = "ID3-stub-audio:"

const ffmpegStub = `#!/bin/sh
for arg in "$@"; do
  if [ "$arg" = "-version" ]; then
    echo "ffmpeg version 6.1-stub"
    exit 0
  fi
done
input=""
prev=""
out=""
for arg in "$@"; do
  if [ "$prev" = "-i" ]; then
    input="$arg"
  fi
  prev="$arg"
  out="$arg"
done
if [ -n "$input" ] && grep -q ` + SilentVideoMarker + ` "$input" 2>/dev/null; then
  echo "Stream map '0:a' matches no streams." >&2
  exit 1
fi
echo "out_time_us=5000000"
echo "out_time_ms=5000000"
echo "progress=continue"
echo "out_time_us=10000000"
echo "progress=end"
printf '` + StubAudioPrefix + `' > "$out"
cat "$input" >> "$out"
exit 0
`

const ffprobeStub = `#!/bin/sh
last=""
for arg in "$@"; do
  last="$arg"
done
if grep -q ` + SilentVideoMarker + ` "$last" 2>/dev/null; then
  echo '{"streams":[{"index":0,"codec_type":"video"}],"format":{"duration":"10.000000"}}'
  exit 0
fi
echo '{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio"}],"format":{"duration":"10.000000"}}'
`
