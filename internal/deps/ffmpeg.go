package deps

// EngineRequirements lists the executables backing the transcoding engine.
// ffprobe is optional: without it conversion still works but reports no
// intermediate progress.
func EngineRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Converts video to MP3 audio",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobeBinary,
			Description: "Reads input duration for conversion progress",
			Optional:    true,
		},
	}
}
