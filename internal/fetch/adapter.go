// Package fetch wraps yt-dlp (via github.com/lrstanley/go-ytdlp): probing a
// URL for its rendition catalog and downloading one rendition or an audio
// track into a caller chosen path.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	"github.com/ytget/ytgrab/internal/failure"
	"github.com/ytget/ytgrab/internal/logging"
	"github.com/ytget/ytgrab/internal/model"
)

// Defaults
const (
	DefaultProgressInterval = 500 * time.Millisecond
	// single connection keeps fragments in order so a partial file can be continued
	FragmentConcurrency = 1
	AudioCodecTarget    = "aac"
	AudioQualityTarget  = "192K"
	// keeps the error message short enough for a dialog
	MaxStderrLines = 5
)

// ProgressFunc receives downloaded bytes and the total (or estimate, 0 if unknown)
type ProgressFunc func(downloaded, total int64)

// FetchRequest describes one transfer
type FetchRequest struct {
	URL         string
	Selector    string // format id or yt-dlp selector expression
	Output      string // exact output path; yt-dlp appends .part while in flight
	OnProgress  ProgressFunc
	IsCancelled func() bool
}

// Options configures the adapter
type Options struct {
	// FFmpegDir points yt-dlp at a non-default ffmpeg, empty for the system default
	FFmpegDir        string
	ProgressInterval time.Duration
	// Executable is the yt-dlp binary, empty to resolve it from the cache or PATH
	Executable string
}

// Adapter issues yt-dlp probe and download calls
type Adapter struct {
	opts      Options
	converter AudioConverter
	logger    zerolog.Logger
}

// NewAdapter creates an adapter. converter decides whether audio is
// transcoded or fetched in an already compatible container.
func NewAdapter(opts Options, converter AudioConverter, logger zerolog.Logger) *Adapter {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Adapter{
		opts:      opts,
		converter: converter,
		logger:    logging.Component(logger, "fetch"),
	}
}

// EnsureInstalled downloads a yt-dlp binary into the user cache when none is
// usable.
func EnsureInstalled(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

// Probe fetches title, duration and the rendition catalog
func (a *Adapter) Probe(ctx context.Context, url string) (*model.VideoDescriptor, error) {
	if strings.TrimSpace(url) == "" {
		return nil, failure.Newf(failure.KindProbe, "probe", "empty URL")
	}

	cmd := a.newCommand().
		DumpSingleJSON().
		NoPlaylist().
		NoWarnings()

	a.logger.Debug().Str("url", url).Msg("probing")
	res, err := cmd.Run(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.New(failure.KindProbe, "probe", withStderr(err, res))
	}

	desc, err := ParseProbeOutput(url, []byte(res.Stdout))
	if err != nil {
		return nil, failure.New(failure.KindProbe, "probe", err)
	}
	a.logger.Info().Str("url", url).Str("title", desc.Title).Int("renditions", len(desc.Renditions)).Msg("probe complete")
	return desc, nil
}

// FetchRendition downloads one rendition into req.Output, continuing a partial
// file if one is present. Cancellation is checked on every progress callback
// and yields failure.ErrCancelled.
func (a *Adapter) FetchRendition(ctx context.Context, req FetchRequest) error {
	cmd := a.newCommand().
		Format(req.Selector).
		Output(req.Output).
		Continue().
		ConcurrentFragments(FragmentConcurrency).
		NoPlaylist()
	if a.opts.FFmpegDir != "" {
		cmd = cmd.FFmpegLocation(a.opts.FFmpegDir)
	}

	return a.run(ctx, cmd, req.URL, req.OnProgress, req.IsCancelled, "fetch rendition")
}

// FetchAudioOnly downloads the best audio track to base+".m4a" and returns
// that path.
func (a *Adapter) FetchAudioOnly(ctx context.Context, url, base string, isCancelled func() bool) (string, error) {
	canTranscode := a.converter != nil && a.converter.Available()

	cmd := a.newCommand().
		Format(AudioSelector(canTranscode)).
		Output(base + ".%(ext)s").
		Continue().
		ConcurrentFragments(FragmentConcurrency).
		NoPlaylist()
	if canTranscode {
		cmd = cmd.ExtractAudio().AudioFormat(AudioCodecTarget).AudioQuality(AudioQualityTarget)
		if a.opts.FFmpegDir != "" {
			cmd = cmd.FFmpegLocation(a.opts.FFmpegDir)
		}
	}

	if err := a.run(ctx, cmd, url, nil, isCancelled, "fetch audio"); err != nil {
		return "", err
	}

	path, err := NormalizeAudio(ctx, base, a.converter, a.logger)
	if err != nil {
		return "", failure.New(failure.KindAudioAcquisition, "fetch audio", err)
	}
	return path, nil
}

func (a *Adapter) newCommand() *ytdlp.Command {
	cmd := ytdlp.New()
	if a.opts.Executable != "" {
		cmd = cmd.SetExecutable(a.opts.Executable)
	}
	return cmd
}

// run executes cmd, translating progress and observing cancellation
func (a *Adapter) run(ctx context.Context, cmd *ytdlp.Command, url string, onProgress ProgressFunc, isCancelled func() bool, op string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cancelled := func() bool {
		return isCancelled != nil && isCancelled()
	}
	if cancelled() {
		return failure.New(failure.KindCancelled, op, failure.ErrCancelled)
	}

	cmd.ProgressFunc(a.opts.ProgressInterval, func(update ytdlp.ProgressUpdate) {
		if cancelled() {
			cancel()
			return
		}
		if onProgress != nil {
			onProgress(int64(update.DownloadedBytes), int64(update.TotalBytes))
		}
	})

	started := time.Now()
	res, err := cmd.Run(runCtx, url)
	if err != nil {
		if cancelled() || runCtx.Err() != nil {
			a.logger.Info().Str("url", url).Str("op", op).Msg("transfer cancelled")
			return failure.New(failure.KindCancelled, op, failure.ErrCancelled)
		}
		a.logger.Warn().Err(err).Str("url", url).Str("op", op).Msg("transfer failed")
		return failure.New(failure.KindTransfer, op, withStderr(err, res))
	}

	a.logger.Debug().Str("url", url).Str("op", op).Dur("elapsed", time.Since(started)).Msg("transfer finished")
	return nil
}

// withStderr appends the last lines of yt-dlp diagnostics to err
func withStderr(err error, res *ytdlp.Result) error {
	if res == nil {
		return err
	}
	lines := strings.Split(strings.TrimSpace(string(res.Stderr)), "\n")
	if len(lines) > MaxStderrLines {
		lines = lines[len(lines)-MaxStderrLines:]
	}
	diag := strings.TrimSpace(strings.Join(lines, "\n"))
	if diag == "" || strings.Contains(err.Error(), diag) {
		return err
	}
	return fmt.Errorf("%w: %s", err, diag)
}
