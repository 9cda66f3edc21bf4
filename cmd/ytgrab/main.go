// Command ytgrab downloads one video without the desktop window. Progress is
// logged to stderr; the final path is printed to stdout.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ytget/ytgrab/internal/config"
	"github.com/ytget/ytgrab/internal/download"
	"github.com/ytget/ytgrab/internal/failure"
	"github.com/ytget/ytgrab/internal/fetch"
	"github.com/ytget/ytgrab/internal/logging"
	"github.com/ytget/ytgrab/internal/media"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
	"github.com/ytget/ytgrab/internal/recovery"
)

// Version is set during build via -ldflags "-X main.Version=X.Y.Z"
var Version = "dev"

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to YAML config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	list := flag.Bool("list", false, "List available renditions and exit")
	rendition := flag.String("format", "", "Rendition ID to download (default: best)")
	dir := flag.String("dir", "", "Destination directory (overrides config)")
	resume := flag.Bool("resume", false, "Continue the unfinished download found in the destination directory")
	discard := flag.Bool("discard", false, "Delete the unfinished download found in the destination directory")
	yes := flag.Bool("yes", false, "Download again without asking when the title already exists")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] URL\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("ytgrab %s\n", Version)
		return exitOK
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitUsage
	}
	if *dir != "" {
		cfg.DownloadDir = *dir
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Console: true})

	url := strings.TrimSpace(flag.Arg(0))
	if url == "" && !*discard && !*resume {
		flag.Usage()
		return exitUsage
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.InstallYTDLP && cfg.YTDLPPath == "" {
		logger.Info().Msg("checking yt-dlp installation")
		if err := fetch.EnsureInstalled(ctx); err != nil {
			logger.Error().Err(err).Msg("yt-dlp is not available")
			return exitFailure
		}
	}

	if err := platform.CreateDirectoryIfNotExists(cfg.DownloadDir); err != nil {
		logger.Error().Err(err).Str("dir", cfg.DownloadDir).Msg("failed to create download directory")
		return exitFailure
	}

	tools := platform.LocateTools(cfg.FFmpegLocation)
	if !tools.HasTool() {
		logger.Warn().Msg("ffmpeg not found: renditions without audio cannot be merged")
	}
	processor := media.NewProcessor(tools, logger)
	adapter := fetch.NewAdapter(fetch.Options{
		FFmpegDir:        tools.FFmpegDir(),
		ProgressInterval: cfg.ProgressInterval,
		Executable:       cfg.YTDLPPath,
	}, processor, logger)

	var confirmer download.Confirmer
	if !*yes {
		confirmer = download.ConfirmFunc(askRedownload)
	}

	orchestrator := download.New(cfg.Options(), download.Deps{
		Fetcher:   adapter,
		Media:     processor,
		Namer:     platform.NewNamer(cfg.DownloadDir),
		Tracker:   recovery.NewTracker(),
		Confirmer: confirmer,
		Logger:    logger,
	})

	rec, err := recovery.Scan(cfg.DownloadDir)
	if err != nil {
		logger.Warn().Err(err).Msg("temp file scan failed")
	}
	if rec != nil {
		orchestrator.SetTempCandidate(rec)
		logger.Info().Str("path", rec.Path).Int64("size", rec.SizeBytes).Msg("unfinished download found")
	}

	// first interrupt cancels the session cooperatively, the second aborts
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			logger.Warn().Msg("cancelling, press Ctrl+C again to abort")
			orchestrator.Cancel()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigs:
			stop()
		case <-ctx.Done():
		}
	}()

	switch {
	case *discard:
		if err := orchestrator.DiscardTemp(); err != nil {
			logger.Error().Err(err).Msg("nothing discarded")
			return exitFailure
		}
		return exitOK

	case *list:
		desc, err := orchestrator.Probe(ctx, url)
		if err != nil {
			logger.Error().Err(err).Msg("probe failed")
			return exitFailure
		}
		printDescriptor(desc)
		return exitOK
	}

	var final string
	orchestrator.SetEventSink(func(e model.Event) {
		logEvent(logger, e)
		if e.Kind == model.EventSessionDone {
			final = e.FinalPath
		}
	})

	kind := model.CommandStart
	if *resume {
		kind = model.CommandResume
	}
	err = orchestrator.Download(ctx, model.Command{Kind: kind, URL: url, RenditionID: *rendition})
	switch {
	case err == nil:
		if final != "" {
			fmt.Println(final)
		}
		return exitOK
	case failure.IsCancelled(err):
		return exitCancelled
	case errors.Is(err, download.ErrNoResumableTemp):
		logger.Error().Err(err).Msg("resume needs the URL and an unfinished download in the destination directory")
		return exitUsage
	default:
		return exitFailure
	}
}

// askRedownload prompts on the terminal
func askRedownload(ctx context.Context, existing string) bool {
	fmt.Fprintf(os.Stderr, "%s already exists. Download again? [y/N] ", existing)
	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()
	select {
	case a := <-answer:
		return a == "y" || a == "yes"
	case <-ctx.Done():
		return false
	}
}

func printDescriptor(desc *model.VideoDescriptor) {
	fmt.Printf("%s (%s)\n", desc.Title, desc.DurationString())
	for _, r := range desc.Renditions {
		fmt.Printf("  %-6s %s\n", r.ID, r.Label())
	}
}

func logEvent(logger zerolog.Logger, e model.Event) {
	switch e.Kind {
	case model.EventStageStarted:
		logger.Info().Int("step", e.Step).Int("of", model.TotalSteps).Str("stage", e.Stage.String()).Msg(e.Message)
	case model.EventProgress:
		logger.Info().Str("stage", e.Stage.String()).Float64("percent", e.Percent).Msg(e.Message)
	case model.EventStageFinished:
		logger.Debug().Int("step", e.Step).Str("stage", e.Stage.String()).Msg(e.Message)
	case model.EventNotice, model.EventSessionSkipped:
		logger.Warn().Msg(e.Message)
	case model.EventSessionDone:
		logger.Info().Str("path", e.FinalPath).Msg("download complete")
	case model.EventSessionCancelled:
		ev := logger.Warn()
		if e.TempPath != "" {
			ev = ev.Str("temp", e.TempPath)
		}
		ev.Msg("download cancelled")
		if e.TempPath != "" {
			fmt.Fprintln(os.Stderr, "Run again with -resume URL to continue or -discard to delete the temp file.")
		}
	case model.EventSessionFailed:
		ev := logger.Error().Str("category", e.Category).Str("error", e.Message)
		if e.TempPath != "" {
			ev = ev.Str("temp", e.TempPath).Int64("temp_size", e.TempSize)
		}
		ev.Msg("download failed")
		for _, line := range e.Remediation {
			fmt.Fprintf(os.Stderr, "  - %s\n", line)
		}
		if e.TempPath != "" {
			fmt.Fprintln(os.Stderr, "Run again with -resume URL to continue or -discard to delete the temp file.")
		}
	}
}
