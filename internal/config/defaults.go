package config

const (
	defaultConfigPath       = "~/.config/uploadai/config.toml"
	defaultAPIBaseURL       = "http://localhost:3333"
	defaultAPITimeout       = 60
	defaultUserAgent        = "uploadai/dev"
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultStateDir         = "~/.local/state/uploadai"
	defaultLogDir           = "~/.local/share/uploadai/logs"
	defaultResetDelayMillis = 2000
	defaultTemperature      = 0.5
	defaultModel            = "GPT 3.5-turbo 16k"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultAPIBaseURL,
			TimeoutSeconds: defaultAPITimeout,
			UserAgent:      defaultUserAgent,
		},
		Engine: Engine{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Upload: Upload{
			ResetDelayMillis: defaultResetDelayMillis,
		},
		Completion: Completion{
			Temperature: defaultTemperature,
			Model:       defaultModel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
