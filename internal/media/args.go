package media

// FFmpeg constants for finalization settings
const (
	// Canonical audio
	AudioCodec   = "aac"
	AudioBitrate = "192k"

	// Compatibility pass video settings
	VideoCodec       = "libx264"
	VideoPixelFormat = "yuv420p"
	VideoProfile     = "high"
	VideoPreset      = "veryfast"
	VideoCRF         = "20"

	// Container flags
	FastStartFlag = "+faststart"

	// ffprobe settings
	FFprobeLogLevel       = "quiet"
	FFprobeErrorLevel     = "error"
	FFprobeAudioStreams   = "a"
	FFprobeCodecType      = "stream=codec_type"
	FFprobeShowDuration   = "format=duration"
	FFprobeOutputFormat   = "csv=p=0"
	FFmpegAudioStreamMark = "Audio:"

	// Progress reporting
	ProgressPipeTarget = "pipe:1"
	ProgressTimePrefix = "out_time_us="
)

// BuildExtractArgs builds arguments to pull the audio track out of a file,
// re-encoded to the canonical codec.
func BuildExtractArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",            // Overwrite output file
		"-i", inputPath, // Input file
		"-vn",              // No video
		"-c:a", AudioCodec, // Audio codec
		"-b:a", AudioBitrate, // Audio bitrate
		outputPath,
	}
}

// BuildMuxArgs builds arguments to combine a silent video with an audio
// track. Video is copied, audio is re-encoded and output stops at the
// shorter input.
func BuildMuxArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-shortest",
		outputPath,
	}
}

// BuildTranscodeArgs builds the compatibility re-encode arguments with
// machine readable progress on stdout.
func BuildTranscodeArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-c:v", VideoCodec,
		"-pix_fmt", VideoPixelFormat,
		"-profile:v", VideoProfile,
		"-preset", VideoPreset,
		"-crf", VideoCRF,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-movflags", FastStartFlag,
		"-progress", ProgressPipeTarget,
		"-nostats",
		outputPath,
	}
}

// BuildAudioProbeArgs builds ffprobe arguments listing audio streams
func BuildAudioProbeArgs(path string) []string {
	return []string{
		"-v", FFprobeLogLevel,
		"-select_streams", FFprobeAudioStreams,
		"-show_entries", FFprobeCodecType,
		"-of", FFprobeOutputFormat,
		path,
	}
}

// BuildDurationProbeArgs builds ffprobe arguments printing the container duration
func BuildDurationProbeArgs(path string) []string {
	return []string{
		"-v", FFprobeErrorLevel,
		"-show_entries", FFprobeShowDuration,
		"-of", FFprobeOutputFormat,
		path,
	}
}
