package config

import (
	"fyne.io/fyne/v2"

	"github.com/ytget/ytgrab/internal/download"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
)

// QualityPreset picks which rendition the picker preselects after a probe
type QualityPreset string

const (
	QualityBest   QualityPreset = "best"
	QualityMedium QualityPreset = "medium"
	QualitySmall  QualityPreset = "small"
)

// MediumHeight is the target height of QualityMedium
const MediumHeight = 720

// Settings keys for Fyne preferences
const (
	KeyDownloadDir        = "download_directory"
	KeyQualityPreset      = "quality_preset"
	KeyLanguage           = "app_language"
	KeyAutoRevealComplete = "auto_reveal_on_complete"
	KeyCompatibilityPass  = "compatibility_pass"
	KeyFFmpegLocation     = "ffmpeg_location"
	KeyMaxStalledAttempts = "max_stalled_attempts"
)

// Default values
const (
	DefaultQualityPreset      = QualityBest
	DefaultLanguage           = "system"
	DefaultAutoRevealComplete = true
	DefaultCompatibilityPass  = true
	DefaultMaxStalledAttempts = download.DefaultMaxStalledAttempts

	MinStalledAttempts = 1
	MaxStalledAttempts = 10
	fallbackDownloads  = "/tmp/downloads"
)

// Settings manages application configuration
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	dir := s.app.Preferences().String(KeyDownloadDir)
	if dir == "" {
		defaultDir, err := platform.GetHomeDownloadsDir()
		if err != nil {
			defaultDir = fallbackDownloads
		}
		s.SetDownloadDirectory(defaultDir)
		return defaultDir
	}
	return dir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.app.Preferences().SetString(KeyDownloadDir, dir)
}

// GetQualityPreset returns the configured quality preset
func (s *Settings) GetQualityPreset() QualityPreset {
	preset := QualityPreset(s.app.Preferences().String(KeyQualityPreset))
	switch preset {
	case QualityBest, QualityMedium, QualitySmall:
		return preset
	}
	s.SetQualityPreset(DefaultQualityPreset)
	return DefaultQualityPreset
}

// SetQualityPreset sets the quality preset
func (s *Settings) SetQualityPreset(preset QualityPreset) {
	s.app.Preferences().SetString(KeyQualityPreset, string(preset))
}

// GetQualityPresetOptions returns available quality preset options
func (s *Settings) GetQualityPresetOptions() []QualityPreset {
	return []QualityPreset{QualityBest, QualityMedium, QualitySmall}
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(KeyLanguage)
	if lang == "" {
		s.SetLanguage(DefaultLanguage)
		return DefaultLanguage
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ru":     "Русский",
		"pt":     "Português",
	}
}

// GetAutoRevealOnComplete returns whether to open the destination folder after a download
func (s *Settings) GetAutoRevealOnComplete() bool {
	return s.app.Preferences().BoolWithFallback(KeyAutoRevealComplete, DefaultAutoRevealComplete)
}

// SetAutoRevealOnComplete sets whether to open the destination folder after a download
func (s *Settings) SetAutoRevealOnComplete(autoReveal bool) {
	s.app.Preferences().SetBool(KeyAutoRevealComplete, autoReveal)
}

// GetCompatibilityPass returns whether muxed output is re-encoded to h264
func (s *Settings) GetCompatibilityPass() bool {
	return s.app.Preferences().BoolWithFallback(KeyCompatibilityPass, DefaultCompatibilityPass)
}

// SetCompatibilityPass enables or disables the re-encode after muxing
func (s *Settings) SetCompatibilityPass(enabled bool) {
	s.app.Preferences().SetBool(KeyCompatibilityPass, enabled)
}

// GetFFmpegLocation returns the ffmpeg override, empty means search PATH
func (s *Settings) GetFFmpegLocation() string {
	return s.app.Preferences().String(KeyFFmpegLocation)
}

// SetFFmpegLocation sets a directory or binary path for ffmpeg
func (s *Settings) SetFFmpegLocation(path string) {
	s.app.Preferences().SetString(KeyFFmpegLocation, path)
}

// GetMaxStalledAttempts returns how many attempts without progress end a transfer
func (s *Settings) GetMaxStalledAttempts() int {
	value := s.app.Preferences().Int(KeyMaxStalledAttempts)
	if value <= 0 {
		s.SetMaxStalledAttempts(DefaultMaxStalledAttempts)
		return DefaultMaxStalledAttempts
	}
	return value
}

// SetMaxStalledAttempts stores the stall limit clamped to 1..10
func (s *Settings) SetMaxStalledAttempts(count int) {
	if count < MinStalledAttempts {
		count = MinStalledAttempts
	}
	if count > MaxStalledAttempts {
		count = MaxStalledAttempts
	}
	s.app.Preferences().SetInt(KeyMaxStalledAttempts, count)
}

// DownloadOptions builds orchestrator options from the stored preferences
func (s *Settings) DownloadOptions() download.Options {
	opts := download.DefaultOptions()
	opts.MaxStalledAttempts = s.GetMaxStalledAttempts()
	opts.CompatibilityPass = s.GetCompatibilityPass()
	return opts
}

// PreferredRendition returns the rendition the preset points at
func PreferredRendition(desc *model.VideoDescriptor, preset QualityPreset) (model.RenditionInfo, bool) {
	if desc == nil || len(desc.Renditions) == 0 {
		return model.RenditionInfo{}, false
	}
	switch preset {
	case QualitySmall:
		best := desc.Renditions[0]
		for _, r := range desc.Renditions[1:] {
			if r.HeightPixels < best.HeightPixels {
				best = r
			}
		}
		return best, true
	case QualityMedium:
		best := desc.Renditions[0]
		for _, r := range desc.Renditions[1:] {
			if abs(r.HeightPixels-MediumHeight) < abs(best.HeightPixels-MediumHeight) {
				best = r
			}
		}
		return best, true
	default:
		return desc.Best()
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
