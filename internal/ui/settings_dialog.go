package ui

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/ytgrab/internal/config"
)

// SettingsDialog represents the settings configuration dialog
type SettingsDialog struct {
	settings     *config.Settings
	localization *Localization
	window       fyne.Window
	dialog       *dialog.ConfirmDialog
	onSaved      func()

	// UI components
	downloadDirEntry *widget.Entry
	ffmpegEntry      *widget.Entry
	maxStalledEntry  *widget.Entry
	qualitySelect    *widget.Select
	languageSelect   *widget.Select
	compatCheck      *widget.Check
	revealCheck      *widget.Check
}

// NewSettingsDialog creates a new settings dialog. onSaved runs after the
// values are stored.
func NewSettingsDialog(settings *config.Settings, localization *Localization, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings:     settings,
		localization: localization,
		window:       window,
		onSaved:      onSaved,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

// createUI creates the settings dialog UI
func (sd *SettingsDialog) createUI() {
	t := sd.localization.GetText

	sd.downloadDirEntry = widget.NewEntry()
	browseDirBtn := widget.NewButton(t(KeyBrowse), sd.onBrowseDirectory)
	downloadDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.downloadDirEntry)

	sd.ffmpegEntry = widget.NewEntry()
	sd.ffmpegEntry.SetPlaceHolder("PATH")

	sd.maxStalledEntry = widget.NewEntry()
	sd.maxStalledEntry.SetPlaceHolder("1-10")

	qualityOptions := []string{}
	for _, preset := range sd.settings.GetQualityPresetOptions() {
		qualityOptions = append(qualityOptions, string(preset))
	}
	sd.qualitySelect = widget.NewSelect(qualityOptions, nil)

	languageOptions := []string{}
	for code := range sd.settings.GetLanguageOptions() {
		languageOptions = append(languageOptions, code)
	}
	sd.languageSelect = widget.NewSelect(languageOptions, nil)

	sd.compatCheck = widget.NewCheck(t(KeyCompatibility), nil)
	sd.revealCheck = widget.NewCheck(t(KeyAutoReveal), nil)

	form := container.NewVBox(
		widget.NewLabel(t(KeyDownloadDirectory)+":"),
		downloadDirRow,

		widget.NewLabel(t(KeyQualityPreset)+":"),
		sd.qualitySelect,

		widget.NewLabel(t(KeyMaxStalled)+":"),
		sd.maxStalledEntry,

		widget.NewLabel(t(KeyFFmpegLocation)+":"),
		sd.ffmpegEntry,

		sd.compatCheck,
		sd.revealCheck,

		widget.NewSeparator(),

		widget.NewLabel(t(KeyLanguage)+":"),
		sd.languageSelect,
	)

	sd.dialog = dialog.NewCustomConfirm(
		t(KeySettings),
		t(KeySave),
		t(KeyCancel),
		form,
		sd.onSave,
		sd.window,
	)

	sd.dialog.Resize(fyne.NewSize(SettingsWidth, SettingsHeight))
}

// loadCurrentSettings loads current settings into the UI
func (sd *SettingsDialog) loadCurrentSettings() {
	sd.downloadDirEntry.SetText(sd.settings.GetDownloadDirectory())
	sd.ffmpegEntry.SetText(sd.settings.GetFFmpegLocation())
	sd.maxStalledEntry.SetText(strconv.Itoa(sd.settings.GetMaxStalledAttempts()))
	sd.qualitySelect.SetSelected(string(sd.settings.GetQualityPreset()))
	sd.languageSelect.SetSelected(sd.settings.GetLanguage())
	sd.compatCheck.SetChecked(sd.settings.GetCompatibilityPass())
	sd.revealCheck.SetChecked(sd.settings.GetAutoRevealOnComplete())
}

// onBrowseDirectory handles directory browsing
func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.downloadDirEntry.SetText(uri.Path())
	}, sd.window)
}

// onSave handles saving the settings
func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	if dir := sd.downloadDirEntry.Text; dir != "" {
		sd.settings.SetDownloadDirectory(dir)
	}

	sd.settings.SetFFmpegLocation(sd.ffmpegEntry.Text)

	if n, err := strconv.Atoi(sd.maxStalledEntry.Text); err == nil {
		sd.settings.SetMaxStalledAttempts(n)
	}

	if sd.qualitySelect.Selected != "" {
		sd.settings.SetQualityPreset(config.QualityPreset(sd.qualitySelect.Selected))
	}

	if sd.languageSelect.Selected != "" {
		sd.settings.SetLanguage(sd.languageSelect.Selected)
	}

	sd.settings.SetCompatibilityPass(sd.compatCheck.Checked)
	sd.settings.SetAutoRevealOnComplete(sd.revealCheck.Checked)

	if sd.onSaved != nil {
		sd.onSaved()
	}
	dialog.ShowInformation(sd.localization.GetText(KeySettings), sd.localization.GetText(KeySettingsSaved), sd.window)
}
