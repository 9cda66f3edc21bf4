package ui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/ytget/ytgrab/internal/config"
	"github.com/ytget/ytgrab/internal/download"
	"github.com/ytget/ytgrab/internal/logging"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
	"github.com/ytget/ytgrab/internal/recovery"
)

// Backend is the part of the download orchestrator the window drives
type Backend interface {
	Probe(ctx context.Context, url string) (*model.VideoDescriptor, error)
	Dispatch(cmd model.Command) error
	SetEventSink(sink func(model.Event))
	SetTempCandidate(rec *model.TempFileRecord)
	Reconfigure(opts download.Options, namer download.Namer) error
	Retained() string
}

// RootUI represents the main UI structure
type RootUI struct {
	ctx          context.Context
	app          fyne.App
	window       fyne.Window
	backend      Backend
	settings     *config.Settings
	localization *Localization
	logger       zerolog.Logger
	toolsReady   bool

	urlEntry        *widget.Entry
	probeBtn        *widget.Button
	settingsBtn     *widget.Button
	renditionSelect *widget.Select
	infoLabel       *widget.Label
	downloadBtn     *widget.Button
	cancelBtn       *widget.Button
	resumeBtn       *widget.Button
	discardBtn      *widget.Button
	stageText       *canvas.Text
	progressBar     *widget.ProgressBar
	logList         *widget.List
	log             *logBuffer

	mu          sync.Mutex
	descriptor  *model.VideoDescriptor
	renditions  []model.RenditionInfo
	probing     bool
	running     bool
	lastTemp    string
	watchCancel context.CancelFunc

	// UI update debouncing
	lastUIUpdate  time.Time
	uiUpdateMutex sync.Mutex
}

// NewRootUI builds the main window and subscribes to backend events. ctx
// bounds background work such as probes and the directory watch.
func NewRootUI(ctx context.Context, app fyne.App, window fyne.Window, settings *config.Settings, backend Backend, tools platform.Tools, logger zerolog.Logger) *RootUI {
	localization := NewLocalization()
	localization.SetLanguage(settings.GetLanguage())

	ui := &RootUI{
		ctx:          ctx,
		app:          app,
		window:       window,
		backend:      backend,
		settings:     settings,
		localization: localization,
		logger:       logging.Component(logger, "ui"),
		toolsReady:   tools.HasTool(),
		log:          newLogBuffer(MaxLogLines),
	}

	window.SetTitle(localization.GetText(KeyAppTitle))
	backend.SetEventSink(ui.onEvent)

	ui.setupUI()
	if !ui.toolsReady {
		ui.appendLog(time.Now().Format(LogTimeFormat) + " " + localization.GetText(KeyToolsMissing))
	}
	ui.startWatch(settings.GetDownloadDirectory())
	return ui
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	t := ui.localization.GetText
	ui.createMenu()

	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.SetPlaceHolder(t(KeyEnterURL))
	ui.urlEntry.Validator = ui.validateURL
	ui.urlEntry.OnSubmitted = func(string) {
		ui.onProbeClick()
	}

	ui.probeBtn = widget.NewButton(t(KeyProbe), ui.onProbeClick)
	ui.settingsBtn = widget.NewButton(IconSettings, ui.onShowSettings)
	ui.settingsBtn.Importance = widget.LowImportance

	ui.renditionSelect = widget.NewSelect(nil, nil)
	ui.renditionSelect.PlaceHolder = t(KeySelectRendition)
	ui.infoLabel = widget.NewLabel(DashPlaceholder)

	ui.downloadBtn = widget.NewButton(t(KeyDownload), ui.onDownloadClick)
	ui.downloadBtn.Importance = widget.HighImportance
	ui.cancelBtn = widget.NewButton(t(KeyCancel), ui.onCancelClick)
	ui.resumeBtn = widget.NewButton(IconResume+" "+t(KeyResume), ui.onResumeClick)
	ui.discardBtn = widget.NewButton(IconDelete+" "+t(KeyDiscard), ui.onDiscardClick)

	ui.stageText = canvas.NewText(ui.localization.StageName(model.StageNotStarted), ui.color(StageColorName(model.StageNotStarted)))
	ui.progressBar = widget.NewProgressBar()

	ui.logList = widget.NewList(
		ui.log.Len,
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.Wrapping = fyne.TextWrapWord
			return label
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(ui.log.At(id))
		},
	)

	urlRow := container.NewBorder(nil, nil, ui.settingsBtn, ui.probeBtn, ui.urlEntry)
	renditionRow := container.NewBorder(nil, nil, nil, container.NewHBox(ui.downloadBtn, ui.cancelBtn), ui.renditionSelect)
	statusRow := container.NewBorder(nil, nil, ui.stageText, nil, ui.progressBar)
	recoveryRow := container.NewHBox(ui.resumeBtn, ui.discardBtn)

	top := container.NewVBox(urlRow, ui.infoLabel, renditionRow, statusRow, recoveryRow, widget.NewSeparator())
	content := container.NewBorder(top, nil, nil, nil, ui.logList)

	ui.window.SetContent(content)
	ui.refreshControls()
}

// createMenu creates the application menu
func (ui *RootUI) createMenu() {
	settingsItem := fyne.NewMenuItem(ui.localization.GetText(KeySettings), ui.onShowSettings)
	openItem := fyne.NewMenuItem(IconFolder+" "+ui.localization.GetText(KeyOpenFolder), func() {
		ui.openFolder(ui.settings.GetDownloadDirectory())
	})

	languageMenu := fyne.NewMenu(ui.localization.GetText(KeyLanguage))
	for code, name := range ui.localization.GetAvailableLanguages() {
		langCode := code
		langItem := fyne.NewMenuItem(name, func() {
			ui.onLanguageChange(langCode)
		})
		langItem.Checked = ui.localization.GetCurrentLanguage() == code
		languageMenu.Items = append(languageMenu.Items, langItem)
	}

	ui.window.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu(ui.localization.GetText(KeyFile), openItem, settingsItem),
		languageMenu,
	))
}

// onLanguageChange handles language change
func (ui *RootUI) onLanguageChange(langCode string) {
	ui.localization.SetLanguage(langCode)
	ui.settings.SetLanguage(langCode)
	ui.refreshUITexts()
	ui.createMenu()
}

// refreshUITexts updates all UI texts with current language
func (ui *RootUI) refreshUITexts() {
	t := ui.localization.GetText
	ui.window.SetTitle(t(KeyAppTitle))
	ui.urlEntry.SetPlaceHolder(t(KeyEnterURL))
	ui.probeBtn.SetText(t(KeyProbe))
	ui.renditionSelect.PlaceHolder = t(KeySelectRendition)
	ui.renditionSelect.Refresh()
	ui.downloadBtn.SetText(t(KeyDownload))
	ui.cancelBtn.SetText(t(KeyCancel))
	ui.resumeBtn.SetText(IconResume + " " + t(KeyResume))
	ui.discardBtn.SetText(IconDelete + " " + t(KeyDiscard))
}

// onShowSettings opens the settings dialog
func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.localization, ui.window, ui.onSettingsSaved).Show()
}

// onSettingsSaved applies new settings to the backend and the directory watch
func (ui *RootUI) onSettingsSaved() {
	ui.localization.SetLanguage(ui.settings.GetLanguage())
	ui.refreshUITexts()
	ui.createMenu()

	dir := ui.settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		ui.logger.Warn().Err(err).Str("dir", dir).Msg("failed to create download directory")
	}
	if err := ui.backend.Reconfigure(ui.settings.DownloadOptions(), platform.NewNamer(dir)); err != nil {
		// picked up again on the next save or restart
		ui.logger.Warn().Err(err).Msg("settings not applied to the running download")
		return
	}
	ui.startWatch(dir)
}

// validateURL validates the entered URL
func (ui *RootUI) validateURL(input string) error {
	return ValidateURL(input)
}

// ValidateURL accepts empty input and absolute http(s) URLs
func ValidateURL(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	parsedURL, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return err
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// cleanURL strips line breaks pasted along with the URL
func cleanURL(raw string) string {
	s := strings.ReplaceAll(raw, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}

// onProbeClick fetches the rendition catalog for the entered URL
func (ui *RootUI) onProbeClick() {
	target := cleanURL(ui.urlEntry.Text)
	if target == "" {
		ui.showPopUp(ui.localization.GetText(KeyPleaseEnterURL))
		return
	}
	if err := ui.validateURL(target); err != nil {
		ui.showPopUp(ui.localization.GetText(KeyInvalidURL) + ": " + err.Error())
		return
	}

	ui.mu.Lock()
	ui.probing = true
	ui.descriptor = nil
	ui.renditions = nil
	ui.mu.Unlock()

	ui.renditionSelect.SetOptions(nil)
	ui.renditionSelect.ClearSelected()
	ui.infoLabel.SetText(ui.localization.GetText(KeyProbing))
	ui.refreshControls()

	go func() {
		desc, err := ui.backend.Probe(ui.ctx, target)
		fyne.Do(func() {
			ui.mu.Lock()
			ui.probing = false
			ui.mu.Unlock()

			if err != nil {
				ui.logger.Warn().Err(err).Str("url", target).Msg("probe failed")
				ui.infoLabel.SetText(DashPlaceholder)
				ui.appendLog(time.Now().Format(LogTimeFormat) + " " + ui.localization.GetText(KeyProbeFailed) + ": " + err.Error())
				dialog.ShowError(fmt.Errorf("%s: %w", ui.localization.GetText(KeyProbeFailed), err), ui.window)
				ui.refreshControls()
				return
			}
			ui.showDescriptor(desc)
		})
	}()
}

// showDescriptor fills the rendition picker from a probe result
func (ui *RootUI) showDescriptor(desc *model.VideoDescriptor) {
	options := make([]string, 0, len(desc.Renditions))
	for _, r := range desc.Renditions {
		options = append(options, r.Label())
	}

	ui.mu.Lock()
	ui.descriptor = desc
	ui.renditions = append([]model.RenditionInfo(nil), desc.Renditions...)
	ui.mu.Unlock()

	ui.infoLabel.SetText(desc.Title + MiddleDotSeparator + ui.localization.GetText(KeyDuration) + " " + desc.DurationString())
	ui.renditionSelect.SetOptions(options)
	if preferred, ok := config.PreferredRendition(desc, ui.settings.GetQualityPreset()); ok {
		// without ffmpeg only renditions that carry audio come out with sound
		if !ui.toolsReady && !preferred.HasAudio {
			if progressive, found := desc.ProgressiveNear(preferred.HeightPixels); found {
				preferred = progressive
			}
		}
		for i, r := range desc.Renditions {
			if r.ID == preferred.ID {
				ui.renditionSelect.SetSelectedIndex(i)
				break
			}
		}
	}
	ui.refreshControls()
}

// selectedRendition returns the picker choice
func (ui *RootUI) selectedRendition() (model.RenditionInfo, bool) {
	idx := ui.renditionSelect.SelectedIndex()
	ui.mu.Lock()
	defer ui.mu.Unlock()
	if idx < 0 || idx >= len(ui.renditions) {
		return model.RenditionInfo{}, false
	}
	return ui.renditions[idx], true
}

// onDownloadClick sends a Start command for the selected rendition
func (ui *RootUI) onDownloadClick() {
	rendition, ok := ui.selectedRendition()
	ui.mu.Lock()
	desc := ui.descriptor
	ui.mu.Unlock()
	if !ok || desc == nil {
		ui.showPopUp(ui.localization.GetText(KeyPleaseSelect))
		return
	}

	ui.dispatch(model.Command{Kind: model.CommandStart, URL: desc.URL, RenditionID: rendition.ID}, KeyDownloadStarted)
}

// onResumeClick continues the retained temp file. The URL and rendition on
// screen are only needed for a temp file found on disk.
func (ui *RootUI) onResumeClick() {
	cmd := model.Command{Kind: model.CommandResume, URL: cleanURL(ui.urlEntry.Text)}
	if r, ok := ui.selectedRendition(); ok {
		cmd.RenditionID = r.ID
	}
	ui.dispatch(cmd, KeyResume)
}

func (ui *RootUI) dispatch(cmd model.Command, startedKey string) {
	if err := ui.backend.Dispatch(cmd); err != nil {
		switch {
		case errors.Is(err, download.ErrBusy):
			ui.showPopUp(ui.localization.GetText(KeyBusy))
		case errors.Is(err, download.ErrNoResumableTemp) && cmd.Kind == model.CommandResume && cmd.URL == "":
			ui.showPopUp(ui.localization.GetText(KeyPleaseEnterURL))
		default:
			dialog.ShowError(err, ui.window)
		}
		ui.refreshControls()
		return
	}

	ui.mu.Lock()
	ui.running = true
	ui.mu.Unlock()

	ui.progressBar.SetValue(0)
	ui.appendLog(time.Now().Format(LogTimeFormat) + " " + ui.localization.GetText(startedKey))
	ui.refreshControls()
}

// onCancelClick requests cancellation of the running session
func (ui *RootUI) onCancelClick() {
	if err := ui.backend.Dispatch(model.Command{Kind: model.CommandCancel}); err != nil {
		ui.logger.Warn().Err(err).Msg("cancel failed")
		return
	}
	ui.setStage(model.StageCancelled, ui.localization.GetText(KeyCancelling))
	ui.cancelBtn.Disable()
}

// onDiscardClick deletes the retained temp file after confirmation
func (ui *RootUI) onDiscardClick() {
	path := ui.backend.Retained()
	if path == "" {
		ui.refreshControls()
		return
	}
	dialog.ShowConfirm(ui.localization.GetText(KeyDiscard), filepath.Base(path), func(ok bool) {
		if !ok {
			return
		}
		if err := ui.backend.Dispatch(model.Command{Kind: model.CommandDiscardTemp}); err != nil {
			dialog.ShowError(err, ui.window)
		}
		ui.refreshControls()
	}, ui.window)
}

// refreshControls enables buttons for the current state. UI thread only.
func (ui *RootUI) refreshControls() {
	ui.mu.Lock()
	running, probing, haveDesc := ui.running, ui.probing, ui.descriptor != nil
	ui.mu.Unlock()
	retained := ui.backend.Retained() != ""

	setEnabled(ui.probeBtn, !running && !probing)
	setEnabled(ui.downloadBtn, !running && !probing && haveDesc)
	setEnabled(ui.cancelBtn, running)
	setEnabled(ui.resumeBtn, !running && retained)
	setEnabled(ui.discardBtn, !running && retained)
	if running || probing {
		ui.renditionSelect.Disable()
	} else {
		ui.renditionSelect.Enable()
	}
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

// onEvent receives orchestrator events on the worker goroutine
func (ui *RootUI) onEvent(e model.Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Kind == model.EventProgress && !ui.shouldUpdate() {
		return
	}
	line := FormatEvent(ui.localization, e)
	fyne.Do(func() {
		ui.appendLog(line)
		ui.applyEvent(e)
	})
}

// shouldUpdate rate limits progress redraws
func (ui *RootUI) shouldUpdate() bool {
	ui.uiUpdateMutex.Lock()
	defer ui.uiUpdateMutex.Unlock()
	if time.Since(ui.lastUIUpdate) < UIUpdateDebounce {
		return false
	}
	ui.lastUIUpdate = time.Now()
	return true
}

// applyEvent updates the status widgets. UI thread only.
func (ui *RootUI) applyEvent(e model.Event) {
	switch e.Kind {
	case model.EventStageStarted:
		ui.progressBar.SetValue(0)
		ui.setStage(e.Stage, fmt.Sprintf(ui.localization.GetText(KeyStep), e.Step, model.TotalSteps)+MiddleDotSeparator+ui.localization.StageName(e.Stage))
	case model.EventProgress:
		if v, ok := ProgressFraction(e); ok {
			ui.progressBar.SetValue(v)
		}
	case model.EventStageFinished:
		ui.progressBar.SetValue(1)
	}

	if !e.IsTerminal() {
		if e.Kind == model.EventNotice {
			ui.refreshControls()
		}
		return
	}

	ui.mu.Lock()
	ui.running = false
	ui.mu.Unlock()

	switch e.Kind {
	case model.EventSessionDone:
		ui.progressBar.SetValue(1)
		ui.setStage(model.StageDone, ui.localization.StageName(model.StageDone))
		ui.onCompleted(e.FinalPath)
	case model.EventSessionCancelled:
		ui.setStage(model.StageCancelled, ui.localization.StageName(model.StageCancelled))
	case model.EventSessionSkipped:
		ui.setStage(model.StageNotStarted, ui.localization.GetText(KeyAlreadyExists))
	case model.EventSessionFailed:
		ui.setStage(model.StageFailed, ui.localization.StageName(model.StageFailed))
		ui.showErrorReport(e)
	}
	ui.refreshControls()
}

func (ui *RootUI) setStage(stage model.Stage, text string) {
	ui.stageText.Text = text
	ui.stageText.Color = ui.color(StageColorName(stage))
	ui.stageText.Refresh()
}

func (ui *RootUI) color(name fyne.ThemeColorName) color.Color {
	return ui.app.Settings().Theme().Color(name, ui.app.Settings().ThemeVariant())
}

func (ui *RootUI) appendLog(line string) {
	ui.log.Append(line)
	ui.logList.Refresh()
	ui.logList.ScrollToBottom()
}

func (ui *RootUI) showPopUp(message string) {
	widget.ShowPopUp(widget.NewLabel(message), ui.window.Canvas())
}

// onCompleted reveals the result when enabled and offers to open it
func (ui *RootUI) onCompleted(finalPath string) {
	if ui.settings.GetAutoRevealOnComplete() {
		ui.openFolder(filepath.Dir(finalPath))
	}

	var d dialog.Dialog
	openFolder := widget.NewButton(IconFolder+" "+ui.localization.GetText(KeyOpenFolder), func() {
		ui.openFolder(filepath.Dir(finalPath))
		d.Hide()
	})
	showFile := widget.NewButton(ui.localization.GetText(KeyShowFile), func() {
		if err := platform.RevealFile(finalPath); err != nil {
			dialog.ShowError(fmt.Errorf("%s: %w", ui.localization.GetText(KeyErrorOpeningFile), err), ui.window)
		}
		d.Hide()
	})
	content := container.NewVBox(
		widget.NewLabel(filepath.Base(finalPath)),
		container.NewHBox(openFolder, showFile),
	)
	d = dialog.NewCustom(ui.localization.GetText(KeyDownloadCompleted), ui.localization.GetText(KeyClose), content, ui.window)
	d.Show()
}

// showErrorReport shows the classified failure and the recovery choices
func (ui *RootUI) showErrorReport(e model.Event) {
	report := widget.NewLabel(ErrorReport(ui.localization, e))
	report.Wrapping = fyne.TextWrapWord

	var d dialog.Dialog
	actions := container.NewHBox()
	if e.TempPath != "" {
		actions.Add(widget.NewButton(IconResume+" "+ui.localization.GetText(KeyResume), func() {
			d.Hide()
			ui.onResumeClick()
		}))
		actions.Add(widget.NewButton(IconDelete+" "+ui.localization.GetText(KeyDiscard), func() {
			d.Hide()
			if err := ui.backend.Dispatch(model.Command{Kind: model.CommandDiscardTemp}); err != nil {
				dialog.ShowError(err, ui.window)
			}
			ui.refreshControls()
		}))
	}

	d = dialog.NewCustom(IconError+" "+ui.localization.GetText(KeyDownloadFailed), ui.localization.GetText(KeyClose), container.NewVBox(report, actions), ui.window)
	d.Resize(fyne.NewSize(ErrorDialogWidth, 0))
	d.Show()
}

func (ui *RootUI) openFolder(dir string) {
	if err := platform.OpenFolder(dir); err != nil {
		ui.logger.Warn().Err(err).Str("dir", dir).Msg("failed to open folder")
		dialog.ShowError(fmt.Errorf("%s: %w", ui.localization.GetText(KeyErrorOpeningFile), err), ui.window)
	}
}

// ConfirmRedownload asks whether to download a title that already exists.
// It runs on the worker goroutine and blocks until the user answers or ctx
// ends.
func (ui *RootUI) ConfirmRedownload(ctx context.Context, existingPath string) bool {
	answer := make(chan bool, 1)
	fyne.Do(func() {
		msg := fmt.Sprintf(ui.localization.GetText(KeyAlreadyExistsBody), filepath.Base(existingPath))
		dialog.ShowConfirm(ui.localization.GetText(KeyAlreadyExists), msg, func(ok bool) {
			answer <- ok
		}, ui.window)
	})

	select {
	case ok := <-answer:
		return ok
	case <-ctx.Done():
		return false
	}
}

// startWatch (re)starts tracking leftover temp files in dir
func (ui *RootUI) startWatch(dir string) {
	ui.mu.Lock()
	if ui.watchCancel != nil {
		ui.watchCancel()
	}
	ctx, cancel := context.WithCancel(ui.ctx)
	ui.watchCancel = cancel
	ui.mu.Unlock()

	if rec, err := recovery.Scan(dir); err != nil {
		ui.logger.Warn().Err(err).Str("dir", dir).Msg("temp file scan failed")
	} else {
		ui.onTempCandidate(rec)
	}

	go func() {
		if err := recovery.Watch(ctx, ui.logger, dir, ui.onTempCandidate); err != nil {
			ui.logger.Warn().Err(err).Str("dir", dir).Msg("directory watch stopped")
		}
	}()
}

// onTempCandidate records a leftover temp file and updates the Resume button
func (ui *RootUI) onTempCandidate(rec *model.TempFileRecord) {
	ui.backend.SetTempCandidate(rec)
	fyne.Do(func() {
		ui.mu.Lock()
		running := ui.running
		announce := rec != nil && rec.Path != ui.lastTemp
		ui.lastTemp = ""
		if rec != nil {
			ui.lastTemp = rec.Path
		}
		ui.mu.Unlock()
		if announce && !running {
			ui.appendLog(time.Now().Format(LogTimeFormat) + " " + ui.localization.GetText(KeyTempFound) + ": " + TempSummary(rec.Path, rec.SizeBytes))
		}
		ui.refreshControls()
	})
}
