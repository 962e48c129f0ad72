package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"uploadai/internal/api"
	"uploadai/internal/config"
	"uploadai/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *testsupport.Backend
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.BackendOption) *cliTestEnv {
	t.Helper()

	t.Setenv("UPLOADAI_API_URL", "")
	t.Setenv("UPLOADAI_FFMPEG", "")
	t.Setenv("UPLOADAI_FFPROBE", "")

	backend := testsupport.NewBackend(t, opts...)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithBaseURL(backend.URL))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		backend:    backend,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func samplePrompts() []api.Prompt {
	return []api.Prompt{
		{ID: "p-title", Title: "YouTube title", Template: "Write three titles for:\n{transcription}"},
		{ID: "p-desc", Title: "YouTube description", Template: "Describe {transcription}"},
	}
}
