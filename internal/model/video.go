package model

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
)

// Duration formatting
const (
	SecondsPerHour   = 3600
	SecondsPerMinute = 60
	UnknownDuration  = "—"
)

// RenditionInfo describes one encoded variant of a video as advertised by the
// fetch engine.
type RenditionInfo struct {
	ID              string  `json:"id"`
	HeightPixels    int     `json:"height"`
	ContainerExt    string  `json:"ext"`
	HasAudio        bool    `json:"has_audio"`
	ApproxSizeBytes int64   `json:"approx_size_bytes,omitempty"` // 0 if unknown
	Bitrate         float64 `json:"bitrate,omitempty"`           // 0 if unknown
}

// Label returns a human readable description like "1080p (mp4) - 12 MB"
func (r RenditionInfo) Label() string {
	label := fmt.Sprintf("%dp (%s)", r.HeightPixels, r.ContainerExt)
	if r.ApproxSizeBytes > 0 {
		label += " - " + humanize.Bytes(uint64(r.ApproxSizeBytes))
	}
	return label
}

// VideoDescriptor is the result of one probe call. It is not modified after
// creation.
type VideoDescriptor struct {
	URL             string          `json:"url"`
	Title           string          `json:"title"`
	DurationSeconds int             `json:"duration_seconds"`
	Renditions      []RenditionInfo `json:"renditions"`
}

// NewVideoDescriptor builds a descriptor with renditions in presentation order
func NewVideoDescriptor(url, title string, durationSeconds int, renditions []RenditionInfo) *VideoDescriptor {
	sorted := make([]RenditionInfo, len(renditions))
	copy(sorted, renditions)
	SortRenditions(sorted)
	return &VideoDescriptor{
		URL:             url,
		Title:           title,
		DurationSeconds: durationSeconds,
		Renditions:      sorted,
	}
}

// SortRenditions orders renditions by descending height, then by higher bitrate
func SortRenditions(renditions []RenditionInfo) {
	sort.SliceStable(renditions, func(i, j int) bool {
		if renditions[i].HeightPixels != renditions[j].HeightPixels {
			return renditions[i].HeightPixels > renditions[j].HeightPixels
		}
		return renditions[i].Bitrate > renditions[j].Bitrate
	})
}

// FindRendition returns the rendition with the given ID
func (v *VideoDescriptor) FindRendition(id string) (RenditionInfo, bool) {
	for _, r := range v.Renditions {
		if r.ID == id {
			return r, true
		}
	}
	return RenditionInfo{}, false
}

// Best returns the first rendition in presentation order
func (v *VideoDescriptor) Best() (RenditionInfo, bool) {
	if len(v.Renditions) == 0 {
		return RenditionInfo{}, false
	}
	return v.Renditions[0], true
}

// SmallestWithAudio returns the lowest rendition that already carries audio
func (v *VideoDescriptor) SmallestWithAudio() (RenditionInfo, bool) {
	for i := len(v.Renditions) - 1; i >= 0; i-- {
		if v.Renditions[i].HasAudio {
			return v.Renditions[i], true
		}
	}
	return RenditionInfo{}, false
}

// ProgressiveNear returns the rendition with both streams closest to height,
// preferring the higher bitrate on ties.
func (v *VideoDescriptor) ProgressiveNear(height int) (RenditionInfo, bool) {
	var best RenditionInfo
	found := false
	bestDiff := 0
	for _, r := range v.Renditions {
		if !r.HasAudio {
			continue
		}
		diff := r.HeightPixels - height
		if diff < 0 {
			diff = -diff
		}
		if !found || diff < bestDiff || (diff == bestDiff && r.Bitrate > best.Bitrate) {
			best, bestDiff, found = r, diff, true
		}
	}
	return best, found
}

// DurationString returns duration formatted as hh:mm:ss or mm:ss
func (v *VideoDescriptor) DurationString() string {
	return FormatDuration(v.DurationSeconds)
}

// FormatDuration formats seconds into HH:MM:SS or MM:SS, or "—" if unknown
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return UnknownDuration
	}
	hours := seconds / SecondsPerHour
	minutes := (seconds % SecondsPerHour) / SecondsPerMinute
	secs := seconds % SecondsPerMinute
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
