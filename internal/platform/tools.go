package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Executable names
const (
	FFmpegName  = "ffmpeg"
	FFprobeName = "ffprobe"
	ExeSuffix   = ".exe"
)

// WinGet install layout: %LOCALAPPDATA%\Microsoft\WinGet\Packages\Gyan.FFmpeg*\<build>\bin
const (
	LocalAppDataEnv     = "LOCALAPPDATA"
	WinGetPackagesDir   = "Microsoft/WinGet/Packages"
	WinGetFFmpegPrefix  = "gyan.ffmpeg"
	WinGetBinDirPattern = "*/bin"
)

// Tools holds resolved paths of the media processing executables. An empty
// path means the tool was not found.
type Tools struct {
	FFmpegPath  string
	FFprobePath string
}

// HasTool reports whether ffmpeg is available
func (t Tools) HasTool() bool {
	return t.FFmpegPath != ""
}

// HasProbe reports whether ffprobe is available
func (t Tools) HasProbe() bool {
	return t.FFprobePath != ""
}

// FFmpegDir returns the directory containing ffmpeg, or "" to use the system default
func (t Tools) FFmpegDir() string {
	if t.FFmpegPath == "" {
		return ""
	}
	return filepath.Dir(t.FFmpegPath)
}

// Locator resolves tool paths. Fields are injectable for tests.
type Locator struct {
	GOOS     string
	LookPath func(string) (string, error)
	Getenv   func(string) string
}

// NewLocator creates a locator for the current platform
func NewLocator() *Locator {
	return &Locator{
		GOOS:     runtime.GOOS,
		LookPath: exec.LookPath,
		Getenv:   os.Getenv,
	}
}

// LocateTools resolves ffmpeg and ffprobe for the current platform
func LocateTools(override string) Tools {
	return NewLocator().Locate(override)
}

// Locate resolves tools in order: explicit override (file or directory), the
// executable search path, then the WinGet package directory on Windows.
// Absence is not an error.
func (l *Locator) Locate(override string) Tools {
	var tools Tools

	if override != "" {
		tools = l.fromOverride(override)
	}

	if tools.FFmpegPath == "" {
		if p, err := l.LookPath(FFmpegName); err == nil {
			tools.FFmpegPath = p
		}
	}
	if tools.FFprobePath == "" {
		if p, err := l.LookPath(FFprobeName); err == nil {
			tools.FFprobePath = p
		}
	}

	if l.GOOS == OSWindows && (tools.FFmpegPath == "" || tools.FFprobePath == "") {
		ff, fp := l.findWinGet()
		if tools.FFmpegPath == "" {
			tools.FFmpegPath = ff
		}
		if tools.FFprobePath == "" {
			tools.FFprobePath = fp
		}
	}

	return tools
}

// fromOverride accepts either the ffmpeg executable or its directory
func (l *Locator) fromOverride(override string) Tools {
	var tools Tools
	info, err := os.Stat(override)
	if err != nil {
		return tools
	}
	dir := override
	if !info.IsDir() {
		tools.FFmpegPath = override
		dir = filepath.Dir(override)
	}
	if tools.FFmpegPath == "" {
		tools.FFmpegPath = existing(filepath.Join(dir, l.exeName(FFmpegName)))
	}
	tools.FFprobePath = existing(filepath.Join(dir, l.exeName(FFprobeName)))
	return tools
}

// findWinGet scans the per-user WinGet package directory for a Gyan.FFmpeg build
func (l *Locator) findWinGet() (ffmpeg, ffprobe string) {
	base := l.Getenv(LocalAppDataEnv)
	if base == "" {
		return "", ""
	}
	packages := filepath.Join(base, filepath.FromSlash(WinGetPackagesDir))
	entries, err := os.ReadDir(packages)
	if err != nil {
		return "", ""
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(strings.ToLower(entry.Name()), WinGetFFmpegPrefix) {
			continue
		}
		binDirs, _ := filepath.Glob(filepath.Join(packages, entry.Name(), filepath.FromSlash(WinGetBinDirPattern)))
		for _, bin := range binDirs {
			ff := existing(filepath.Join(bin, FFmpegName+ExeSuffix))
			fp := existing(filepath.Join(bin, FFprobeName+ExeSuffix))
			if ffmpeg == "" {
				ffmpeg = ff
			}
			if ffprobe == "" {
				ffprobe = fp
			}
			if ffmpeg != "" && ffprobe != "" {
				return ffmpeg, ffprobe
			}
		}
	}
	return ffmpeg, ffprobe
}

func (l *Locator) exeName(name string) string {
	if l.GOOS == OSWindows {
		return name + ExeSuffix
	}
	return name
}

// existing returns path if it exists, otherwise ""
func existing(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
