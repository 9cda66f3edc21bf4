package fetch

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// CanonicalAudioExt is the extension every audio-only fetch ends up with
const CanonicalAudioExt = ".m4a"

// AlternateAudioExts lists containers yt-dlp may produce instead, in lookup order
var AlternateAudioExts = []string{".aac", ".mp3", ".opus", ".webm", ".ogg"}

// AudioConverter re-encodes audio into the canonical container
type AudioConverter interface {
	Available() bool
	ExtractAudio(ctx context.Context, inputPath, outputPath string) error
}

// NormalizeAudio makes sure base+".m4a" exists. A different container found
// next to it is transcoded when a converter is available, otherwise renamed
// as-is.
func NormalizeAudio(ctx context.Context, base string, conv AudioConverter, logger zerolog.Logger) (string, error) {
	want := base + CanonicalAudioExt
	if _, err := os.Stat(want); err == nil {
		return want, nil
	}

	for _, ext := range AlternateAudioExts {
		found := base + ext
		if _, err := os.Stat(found); err != nil {
			continue
		}

		if conv != nil && conv.Available() {
			logger.Info().Str("from", found).Str("to", want).Msg("converting audio container")
			if err := conv.ExtractAudio(ctx, found, want); err != nil {
				RemoveAudio(base, logger)
				return "", err
			}
			if err := os.Remove(found); err != nil {
				logger.Warn().Err(err).Str("path", found).Msg("failed to remove intermediate audio")
			}
			return want, nil
		}

		logger.Info().Str("from", found).Str("to", want).Msg("renaming audio container")
		if err := os.Rename(found, want); err != nil {
			return "", fmt.Errorf("failed to rename audio file: %w", err)
		}
		return want, nil
	}

	return "", fmt.Errorf("audio file not found for %s", base)
}

// RemoveAudio deletes every audio container a fetch may have left at base
func RemoveAudio(base string, logger zerolog.Logger) {
	for _, ext := range append([]string{CanonicalAudioExt}, AlternateAudioExts...) {
		path := base + ext
		for _, p := range []string{path, path + ".part"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				logger.Warn().Err(err).Str("path", p).Msg("failed to remove intermediate audio")
			}
		}
	}
}
