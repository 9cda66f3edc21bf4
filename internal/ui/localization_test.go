package ui

import (
	"testing"

	"github.com/ytget/ytgrab/internal/failure"
	"github.com/ytget/ytgrab/internal/model"
)

func TestLocalizationFallbacks(t *testing.T) {
	l := NewLocalization()

	l.SetLanguage("de")
	if l.GetCurrentLanguage() != "en" {
		t.Errorf("unsupported language should keep en, got %s", l.GetCurrentLanguage())
	}

	l.SetLanguage("pt")
	if got := l.GetText(KeyDownload); got != "Baixar" {
		t.Errorf("expected Portuguese text, got %q", got)
	}
	if got := l.GetText("missing_key"); got != "missing_key" {
		t.Errorf("unknown key should be returned as is, got %q", got)
	}
}

func TestLocalizationSystemLanguage(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LANG", "ru_RU.UTF-8")

	l := NewLocalization()
	l.SetLanguage("system")
	if l.GetCurrentLanguage() != "ru" {
		t.Errorf("expected ru from LANG, got %s", l.GetCurrentLanguage())
	}
}

// every language names every stage and category
func TestLocalizationCoverage(t *testing.T) {
	stages := []model.Stage{
		model.StageNotStarted, model.StageFetchingPrimary, model.StageFetchingAudio,
		model.StageMuxing, model.StageTranscoding, model.StageDone,
		model.StageCancelled, model.StageFailed,
	}
	categories := []failure.Category{
		failure.CategoryNetwork, failure.CategoryDisk, failure.CategoryPermission,
		failure.CategoryFormat, failure.CategoryURL, failure.CategoryUnknown,
	}

	l := NewLocalization()
	for lang := range l.GetAvailableLanguages() {
		l.SetLanguage(lang)
		for key := range l.texts["en"] {
			if _, ok := l.texts[lang][key]; !ok {
				t.Errorf("%s: missing key %s", lang, key)
			}
		}
		for _, s := range stages {
			if got := l.StageName(s); got == stageKeyPrefix+string(s) {
				t.Errorf("%s: stage %s has no name", lang, s)
			}
		}
		for _, c := range categories {
			if len(l.Remediation(string(c))) == 0 {
				t.Errorf("%s: category %s has no remediation", lang, c)
			}
		}
	}
}

func TestLocalizationCategoryName(t *testing.T) {
	l := NewLocalization()
	if got := l.CategoryName(""); got != "Unknown error" {
		t.Errorf("empty category should read as unknown, got %q", got)
	}
	if got := l.Remediation("bogus"); len(got) == 0 {
		t.Error("unknown category should fall back to generic advice")
	}
}
