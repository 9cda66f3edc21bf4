package recovery

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
)

// DefaultDebounce coalesces bursts of writes to an in-flight temp file
const DefaultDebounce = 300 * time.Millisecond

// Watch rescans dir whenever a temp file is created, removed or renamed and
// reports the current candidate (nil when none is left). It blocks until ctx
// is done.
func Watch(ctx context.Context, logger zerolog.Logger, dir string, onChange func(*model.TempFileRecord)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	debounce := time.NewTimer(DefaultDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if !platform.IsTempName(filepath.Base(event.Name)) {
				continue
			}
			// writes only change the size, not the candidate
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			debounce.Reset(DefaultDebounce)
		case <-debounce.C:
			rec, err := Scan(dir)
			if err != nil {
				logger.Warn().Err(err).Str("dir", dir).Msg("temp file rescan failed")
				continue
			}
			onChange(rec)
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logger.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}
