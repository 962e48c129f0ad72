package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"uploadai/internal/api"
	"uploadai/internal/config"
	"uploadai/internal/convert"
	"uploadai/internal/engine"
	"uploadai/internal/logging"
)

type commandContext struct {
	configFlag   *string
	apiURLFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, apiURLFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		apiURLFlag:   apiURLFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if url := flagValue(c.apiURLFlag); url != "" {
			cfg.API.BaseURL = strings.TrimRight(url, "/")
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("validate config: %w", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// newLogger builds a logger that writes console output to w. A nil w logs
// only to the configured log file, if any.
func (c *commandContext) newLogger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, w)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) commandLogger(cmd *cobra.Command) (*slog.Logger, error) {
	return c.newLogger(cmd.ErrOrStderr())
}

func newAPIClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.NewClient(api.Config{
		BaseURL:        cfg.API.BaseURL,
		TimeoutSeconds: cfg.API.TimeoutSeconds,
		UserAgent:      cfg.API.UserAgent,
	}, api.WithLogger(logger))
}

func newEngineProvider(cfg *config.Config, logger *slog.Logger) *engine.Provider {
	return engine.NewProvider(engine.Config{
		FFmpegBinary:  cfg.Engine.FFmpegBinary,
		FFprobeBinary: cfg.Engine.FFprobeBinary,
		WorkDir:       cfg.WorkDir(),
	}, engine.WithLogger(logger))
}

// newConverter returns a converter and a release func that tears down the
// engine workspace.
func newConverter(cfg *config.Config, logger *slog.Logger) (*convert.Converter, func()) {
	provider := newEngineProvider(cfg, logger)
	release := func() {
		if err := provider.Close(); err != nil {
			logger.Warn("engine cleanup failed", logging.Error(err))
		}
	}
	return convert.NewConverter(provider, logger), release
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
