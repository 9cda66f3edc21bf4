package main

import (
	"context"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/ytget/ytgrab/internal/config"
	"github.com/ytget/ytgrab/internal/download"
	"github.com/ytget/ytgrab/internal/fetch"
	"github.com/ytget/ytgrab/internal/logging"
	"github.com/ytget/ytgrab/internal/media"
	"github.com/ytget/ytgrab/internal/platform"
	"github.com/ytget/ytgrab/internal/recovery"
	"github.com/ytget/ytgrab/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.ytgrab"
	AppName = "YT Grab"

	WindowWidth  = 800
	WindowHeight = 600
)

func main() {
	logger := logging.New(logging.Options{Level: os.Getenv("YTGRAB_LOG_LEVEL"), Console: true})
	logger.Info().Str("version", version).Msg("starting")

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())
	if icon, err := ui.LoadAppIcon(); err == nil {
		myApp.SetIcon(icon)
	}

	myWindow := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	myWindow.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	settings := config.NewSettings(myApp)
	downloadsDir := settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(downloadsDir); err != nil {
		logger.Warn().Err(err).Str("dir", downloadsDir).Msg("failed to ensure downloads dir")
	}

	tools := platform.LocateTools(settings.GetFFmpegLocation())
	logger.Info().Str("ffmpeg", tools.FFmpegPath).Str("ffprobe", tools.FFprobePath).Msg("media tools")

	processor := media.NewProcessor(tools, logger)
	adapter := fetch.NewAdapter(fetch.Options{FFmpegDir: tools.FFmpegDir()}, processor, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the window answers redownload questions once it exists
	var root *ui.RootUI
	confirm := download.ConfirmFunc(func(ctx context.Context, existing string) bool {
		return root.ConfirmRedownload(ctx, existing)
	})

	orchestrator := download.New(settings.DownloadOptions(), download.Deps{
		Fetcher:   adapter,
		Media:     processor,
		Namer:     platform.NewNamer(downloadsDir),
		Tracker:   recovery.NewTracker(),
		Confirmer: confirm,
		Logger:    logger,
	})
	go orchestrator.Run(ctx)

	root = ui.NewRootUI(ctx, myApp, myWindow, settings, orchestrator, tools, logger)

	myWindow.SetOnClosed(func() {
		orchestrator.Cancel()
		cancel()
	})
	myWindow.ShowAndRun()
}
