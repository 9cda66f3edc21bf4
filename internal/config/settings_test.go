package config

import (
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/ytget/ytgrab/internal/download"
	"github.com/ytget/ytgrab/internal/model"
)

func TestNewSettings(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.app != app {
		t.Error("Settings app reference should match provided app")
	}
}

func TestDownloadDirectory(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	// Test default value
	dir := settings.GetDownloadDirectory()
	if dir == "" {
		t.Error("Download directory should not be empty")
	}

	// Test setting custom value
	customDir := "/custom/downloads"
	settings.SetDownloadDirectory(customDir)

	retrievedDir := settings.GetDownloadDirectory()
	if retrievedDir != customDir {
		t.Errorf("Expected download directory %s, got %s", customDir, retrievedDir)
	}
}

func TestMaxStalledAttempts(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if got := settings.GetMaxStalledAttempts(); got != DefaultMaxStalledAttempts {
		t.Errorf("Expected default stalled attempts %d, got %d", DefaultMaxStalledAttempts, got)
	}

	settings.SetMaxStalledAttempts(5)
	if got := settings.GetMaxStalledAttempts(); got != 5 {
		t.Errorf("Expected stalled attempts 5, got %d", got)
	}

	// Test boundary values
	settings.SetMaxStalledAttempts(0)
	if settings.GetMaxStalledAttempts() != MinStalledAttempts {
		t.Error("Stalled attempts should be clamped to minimum 1")
	}

	settings.SetMaxStalledAttempts(15)
	if settings.GetMaxStalledAttempts() != MaxStalledAttempts {
		t.Error("Stalled attempts should be clamped to maximum 10")
	}
}

func TestQualityPreset(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if preset := settings.GetQualityPreset(); preset != DefaultQualityPreset {
		t.Errorf("Expected default quality preset %s, got %s", DefaultQualityPreset, preset)
	}

	settings.SetQualityPreset(QualitySmall)
	if preset := settings.GetQualityPreset(); preset != QualitySmall {
		t.Errorf("Expected quality preset %s, got %s", QualitySmall, preset)
	}

	// Unknown values stored by older builds fall back to the default
	settings.SetQualityPreset("audio")
	if preset := settings.GetQualityPreset(); preset != DefaultQualityPreset {
		t.Errorf("Expected unknown preset to reset to %s, got %s", DefaultQualityPreset, preset)
	}
}

func TestLanguage(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	// Test default value
	lang := settings.GetLanguage()
	if lang != DefaultLanguage {
		t.Errorf("Expected default language %s, got %s", DefaultLanguage, lang)
	}

	// Test setting custom value
	settings.SetLanguage("en")

	retrievedLang := settings.GetLanguage()
	if retrievedLang != "en" {
		t.Errorf("Expected language 'en', got %s", retrievedLang)
	}
}

func TestBooleanToggles(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if !settings.GetAutoRevealOnComplete() {
		t.Error("Auto reveal should default to true")
	}
	if !settings.GetCompatibilityPass() {
		t.Error("Compatibility pass should default to true")
	}

	settings.SetAutoRevealOnComplete(false)
	settings.SetCompatibilityPass(false)

	if settings.GetAutoRevealOnComplete() {
		t.Error("Auto reveal should be disabled")
	}
	if settings.GetCompatibilityPass() {
		t.Error("Compatibility pass should be disabled")
	}
}

func TestFFmpegLocation(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if loc := settings.GetFFmpegLocation(); loc != "" {
		t.Errorf("Expected empty ffmpeg location, got %q", loc)
	}

	settings.SetFFmpegLocation("/opt/ffmpeg/bin")
	if loc := settings.GetFFmpegLocation(); loc != "/opt/ffmpeg/bin" {
		t.Errorf("Expected stored ffmpeg location, got %q", loc)
	}
}

func TestDownloadOptions(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)
	settings.SetMaxStalledAttempts(4)
	settings.SetCompatibilityPass(false)

	opts := settings.DownloadOptions()
	if opts.MaxStalledAttempts != 4 {
		t.Errorf("Expected 4 stalled attempts, got %d", opts.MaxStalledAttempts)
	}
	if opts.CompatibilityPass {
		t.Error("Expected compatibility pass to be disabled")
	}
	if opts.MaxTotalAttempts != download.DefaultMaxTotalAttempts {
		t.Errorf("Expected default total attempts, got %d", opts.MaxTotalAttempts)
	}
}

func TestGetQualityPresetOptions(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	options := settings.GetQualityPresetOptions()
	expectedOptions := []QualityPreset{QualityBest, QualityMedium, QualitySmall}

	if len(options) != len(expectedOptions) {
		t.Fatalf("Expected %d quality options, got %d", len(expectedOptions), len(options))
	}

	for i, expected := range expectedOptions {
		if options[i] != expected {
			t.Errorf("Quality option %d: expected %s, got %s", i, expected, options[i])
		}
	}
}

func TestGetLanguageOptions(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	options := settings.GetLanguageOptions()

	expectedLangs := []string{"system", "en", "ru", "pt"}
	for _, lang := range expectedLangs {
		if _, exists := options[lang]; !exists {
			t.Errorf("Expected language option '%s' to exist", lang)
		}
	}

	if len(options) != len(expectedLangs) {
		t.Errorf("Expected %d language options, got %d", len(expectedLangs), len(options))
	}
}

func TestPreferredRendition(t *testing.T) {
	desc := model.NewVideoDescriptor("u", "t", 10, []model.RenditionInfo{
		{ID: "18", HeightPixels: 360},
		{ID: "137", HeightPixels: 1080},
		{ID: "22", HeightPixels: 720},
		{ID: "135", HeightPixels: 480},
	})

	tests := []struct {
		preset QualityPreset
		want   string
	}{
		{QualityBest, "137"},
		{QualityMedium, "22"},
		{QualitySmall, "18"},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			got, ok := PreferredRendition(desc, tt.preset)
			if !ok {
				t.Fatal("expected a rendition")
			}
			if got.ID != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.ID)
			}
		})
	}

	if _, ok := PreferredRendition(model.NewVideoDescriptor("u", "t", 0, nil), QualityBest); ok {
		t.Error("expected no rendition for an empty catalog")
	}
}
