package platform

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Naming constants
const (
	TempPrefix       = "temp_"
	TempTokenLength  = 12
	PartSuffix       = ".part"
	FinalExt         = ".mp4"
	RedownloadSuffix = "_copy"
	FallbackTitle    = "video"
	MaxTitleRunes    = 150

	// first numeric suffix used on collision: title_2.mp4
	FirstCollisionIndex = 2
	// safety bound for collision loops
	MaxNameAttempts = 10000
)

// SimilarFileExts lists the containers checked before offering a redownload
var SimilarFileExts = []string{".mp4", ".webm", ".mkv", ".avi"}

var tempNamePattern = regexp.MustCompile(`^temp_[0-9a-f]{12}\.[A-Za-z0-9]+(\.part)?$`)

// Namer derives temp and final paths inside one destination directory
type Namer struct {
	Dir string
	Ext string
	Now func() time.Time
}

// NewNamer creates a namer producing FinalExt files in dir
func NewNamer(dir string) *Namer {
	return &Namer{Dir: dir, Ext: FinalExt, Now: time.Now}
}

func (n *Namer) ext() string {
	if n.Ext == "" {
		return FinalExt
	}
	return n.Ext
}

func (n *Namer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// UniqueFinalName returns an unused final path for title, creating the
// destination directory if needed. Redownloads start from title_copy.
func (n *Namer) UniqueFinalName(title string, isRedownload bool) (string, error) {
	if err := CreateDirectoryIfNotExists(n.Dir); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}

	base := SanitizeTitle(title)
	if isRedownload {
		base += RedownloadSuffix
	}

	candidate := filepath.Join(n.Dir, base+n.ext())
	for i := FirstCollisionIndex; i < MaxNameAttempts; i++ {
		if !pathExists(candidate) {
			return candidate, nil
		}
		candidate = filepath.Join(n.Dir, fmt.Sprintf("%s_%d%s", base, i, n.ext()))
	}
	return "", fmt.Errorf("no free file name for %q in %s", base, n.Dir)
}

// TempName returns a temp path derived from the inputs and the current time.
// If the name (or its partial variant) is taken, the timestamp input is
// advanced until a free name is found.
func (n *Namer) TempName(url, renditionID, title string) (string, error) {
	if err := CreateDirectoryIfNotExists(n.Dir); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}

	ts := n.now().Unix()
	for i := 0; i < MaxNameAttempts; i++ {
		path := filepath.Join(n.Dir, TempPrefix+TempToken(url, renditionID, title, ts+int64(i))+n.ext())
		if !pathExists(path) && !pathExists(path+PartSuffix) {
			return path, nil
		}
	}
	return "", fmt.Errorf("no free temp name in %s", n.Dir)
}

// TempToken hashes the temp name inputs into a short hex token
func TempToken(url, renditionID, title string, unixSeconds int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%s_%d", url, renditionID, title, unixSeconds)))
	return hex.EncodeToString(sum[:])[:TempTokenLength]
}

// FindExistingSimilarFile looks for a finished file whose name contains the
// title. Temp files are ignored.
func (n *Namer) FindExistingSimilarFile(title string) (string, bool) {
	needle := SanitizeTitle(title)
	entries, err := os.ReadDir(n.Dir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, TempPrefix) {
			continue
		}
		if !hasSimilarExt(name) {
			continue
		}
		if strings.Contains(name, needle) {
			return filepath.Join(n.Dir, name), true
		}
	}
	return "", false
}

// IsTempName reports whether a base file name looks like one of our temp files
func IsTempName(name string) bool {
	return tempNamePattern.MatchString(name)
}

// SanitizeTitle makes a title safe to use as a file name
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	clean := strings.Trim(strings.TrimSpace(b.String()), ".")
	if runes := []rune(clean); len(runes) > MaxTitleRunes {
		clean = strings.TrimSpace(string(runes[:MaxTitleRunes]))
	}
	if clean == "" {
		return FallbackTitle
	}
	return clean
}

func hasSimilarExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SimilarFileExts {
		if ext == e {
			return true
		}
	}
	return false
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
