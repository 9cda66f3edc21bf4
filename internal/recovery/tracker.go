// Package recovery finds leftover temp files in the destination directory and
// tracks whether an in-flight temp file is still growing between attempts.
package recovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
)

// Scan returns the most recently modified temp file in dir, or nil if there
// is none. A missing directory is not an error.
func Scan(dir string) (*model.TempFileRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var latest *model.TempFileRecord
	for _, entry := range entries {
		if entry.IsDir() || !platform.IsTempName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		if latest != nil && !info.ModTime().After(latest.ModTime) {
			continue
		}
		latest = &model.TempFileRecord{
			Path:      strings.TrimSuffix(filepath.Join(dir, entry.Name()), platform.PartSuffix),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		}
	}

	if latest != nil {
		latest.DiscoveredAt = time.Now()
	}
	return latest, nil
}

// ResolveVariant returns whichever of path and its partial variant exists,
// preferring the complete one.
func ResolveVariant(path string) (string, bool) {
	if fileExists(path) {
		return path, true
	}
	if part := path + platform.PartSuffix; fileExists(part) {
		return part, true
	}
	return "", false
}

// HasPartial reports whether the partial variant of path exists
func HasPartial(path string) bool {
	return fileExists(path + platform.PartSuffix)
}

// SizeOf returns the larger size of path and its partial variant, 0 if neither exists
func SizeOf(path string) int64 {
	var size int64
	for _, p := range []string{path, path + platform.PartSuffix} {
		if info, err := os.Stat(p); err == nil && info.Size() > size {
			size = info.Size()
		}
	}
	return size
}

// Discard removes the temp file and its partial variant
func Discard(path string) error {
	var errs []error
	for _, p := range []string{path, path + platform.PartSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracker remembers the last observed size of one temp file
type Tracker struct {
	mu   sync.Mutex
	path string
	size int64
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Reset starts tracking path from its current size
func (t *Tracker) Reset(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.path = path
	t.size = SizeOf(path)
}

// Progressed reports whether path grew since the last check and records the
// new size. Switching to a different path resets the baseline.
func (t *Tracker) Progressed(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := SizeOf(path)
	if path != t.path {
		t.path = path
		t.size = current
		return current > 0
	}
	if current > t.size {
		t.size = current
		return true
	}
	return false
}

// Size returns the last recorded size
func (t *Tracker) Size() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Path returns the tracked path
func (t *Tracker) Path() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
