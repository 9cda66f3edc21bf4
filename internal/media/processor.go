// Package media runs ffmpeg and ffprobe for the finalization steps: audio
// detection, audio extraction, stream muxing and the compatibility re-encode.
package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/ytgrab/internal/failure"
	"github.com/ytget/ytgrab/internal/logging"
	"github.com/ytget/ytgrab/internal/platform"
)

// MaxDiagnosticBytes bounds the stderr tail embedded in errors
const MaxDiagnosticBytes = 2048

// Processor wraps the located ffmpeg and ffprobe executables
type Processor struct {
	tools  platform.Tools
	logger zerolog.Logger
}

// NewProcessor creates a processor. With no ffmpeg every operation fails
// with a tool_missing error.
func NewProcessor(tools platform.Tools, logger zerolog.Logger) *Processor {
	return &Processor{
		tools:  tools,
		logger: logging.Component(logger, "media"),
	}
}

// Available reports whether ffmpeg was found
func (p *Processor) Available() bool {
	return p.tools.HasTool()
}

// HasAudioTrack inspects the file itself rather than catalog metadata. It
// prefers ffprobe and falls back to scanning `ffmpeg -i` diagnostics.
func (p *Processor) HasAudioTrack(ctx context.Context, path string) (bool, error) {
	if !p.Available() {
		return false, failure.New(failure.KindToolMissing, "audio check", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return false, fmt.Errorf("audio check: %w", err)
	}

	if p.tools.HasProbe() {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, p.tools.FFprobePath, BuildAudioProbeArgs(path)...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err == nil {
			return strings.Contains(stdout.String(), "audio"), nil
		}
		p.logger.Debug().Str("path", path).Str("stderr", tail(stderr.String())).Msg("ffprobe failed, falling back to ffmpeg")
	}

	// ffmpeg exits non-zero without an output file; only the diagnostics matter
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.tools.FFmpegPath, "-hide_banner", "-i", path)
	cmd.Stderr = &stderr
	_ = cmd.Run()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return HasAudioMarker(stderr.String()), nil
}

// ExtractAudio writes the audio track of inputPath to outputPath
func (p *Processor) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	if !p.Available() {
		return failure.New(failure.KindToolMissing, "extract audio", nil)
	}
	p.logger.Info().Str("input", inputPath).Str("output", outputPath).Msg("extracting audio")
	if err := p.run(ctx, BuildExtractArgs(inputPath, outputPath), nil); err != nil {
		return failure.New(failure.KindAudioAcquisition, "extract audio", err)
	}
	return nil
}

// MuxVideoAudio combines a silent video with an audio track into outputPath
func (p *Processor) MuxVideoAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	if !p.Available() {
		return failure.New(failure.KindToolMissing, "mux", nil)
	}
	p.logger.Info().Str("video", videoPath).Str("audio", audioPath).Str("output", outputPath).Msg("muxing streams")
	if err := p.run(ctx, BuildMuxArgs(videoPath, audioPath, outputPath), nil); err != nil {
		return failure.New(failure.KindMux, "mux", err)
	}
	return nil
}

// Transcode re-encodes inputPath into outputPath with the compatibility
// settings. onProgress receives values in [0,1] when the duration is known.
func (p *Processor) Transcode(ctx context.Context, inputPath, outputPath string, onProgress func(float64)) error {
	if !p.Available() {
		return failure.New(failure.KindToolMissing, "transcode", nil)
	}

	var totalSeconds float64
	if p.tools.HasProbe() {
		d, err := p.Duration(ctx, inputPath)
		if err != nil {
			p.logger.Debug().Err(err).Str("path", inputPath).Msg("duration unknown, transcode progress disabled")
		}
		totalSeconds = d
	}

	var progress func(io.Reader)
	if onProgress != nil && totalSeconds > 0 {
		progress = func(r io.Reader) {
			MonitorProgress(r, totalSeconds, onProgress)
		}
	}

	p.logger.Info().Str("input", inputPath).Str("output", outputPath).Msg("transcoding for compatibility")
	if err := p.run(ctx, BuildTranscodeArgs(inputPath, outputPath), progress); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("transcode: %w", err)
	}
	return nil
}

// Duration returns the container duration in seconds using ffprobe
func (p *Processor) Duration(ctx context.Context, path string) (float64, error) {
	if !p.tools.HasProbe() {
		return 0, failure.New(failure.KindToolMissing, "duration", nil)
	}
	output, err := exec.CommandContext(ctx, p.tools.FFprobePath, BuildDurationProbeArgs(path)...).Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// run executes ffmpeg. A non-zero exit is reported with the stderr tail.
// When progress is set it consumes stdout.
func (p *Processor) run(ctx context.Context, args []string, progress func(io.Reader)) error {
	started := time.Now()
	cmd := exec.CommandContext(ctx, p.tools.FFmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var stdout io.ReadCloser
	if progress != nil {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		stdout = pipe
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	if stdout != nil {
		// the pipe must be drained before Wait closes it
		progress(stdout)
		_, _ = io.Copy(io.Discard, stdout)
	}
	err := cmd.Wait()

	p.logger.Debug().Dur("elapsed", time.Since(started)).Strs("args", args).Msg("ffmpeg finished")

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exited with code %d: %s", exitErr.ExitCode(), tail(stderr.String()))
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// MonitorProgress parses `-progress` key=value output and reports the
// fraction of totalSeconds processed
func MonitorProgress(r io.Reader, totalSeconds float64, onProgress func(float64)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Parse progress line: out_time_us=123456
		if !strings.HasPrefix(line, ProgressTimePrefix) {
			continue
		}
		micros, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
		if err != nil || totalSeconds <= 0 {
			continue
		}

		progress := float64(micros) / 1e6 / totalSeconds
		if progress > 1.0 {
			progress = 1.0
		}
		if progress < 0 {
			progress = 0
		}
		onProgress(progress)
	}
}

// HasAudioMarker reports whether ffmpeg diagnostics list an audio stream
func HasAudioMarker(diagnostics string) bool {
	return strings.Contains(diagnostics, FFmpegAudioStreamMark)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= MaxDiagnosticBytes {
		return s
	}
	return "..." + s[len(s)-MaxDiagnosticBytes:]
}
