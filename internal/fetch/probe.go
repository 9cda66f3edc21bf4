package fetch

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ytget/ytgrab/internal/model"
)

// NoCodec is the codec value yt-dlp reports for an absent stream
const NoCodec = "none"

// probeFormat is the subset of a yt-dlp format entry we read
type probeFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Height         *int     `json:"height"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	FileSize       *int64   `json:"filesize"`
	FileSizeApprox *int64   `json:"filesize_approx"`
	TBR            *float64 `json:"tbr"`
}

// probeOutput is the subset of yt-dlp --dump-single-json we read
type probeOutput struct {
	Title    string        `json:"title"`
	Duration *float64      `json:"duration"`
	Formats  []probeFormat `json:"formats"`
}

// ParseProbeOutput converts yt-dlp JSON into a descriptor. Formats without a
// video codec or a height are dropped; an empty result is an error.
func ParseProbeOutput(url string, data []byte) (*model.VideoDescriptor, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode probe output: %w", err)
	}

	renditions := make([]model.RenditionInfo, 0, len(out.Formats))
	for _, f := range out.Formats {
		if f.FormatID == "" || f.VCodec == NoCodec || f.Height == nil || *f.Height <= 0 {
			continue
		}
		r := model.RenditionInfo{
			ID:           f.FormatID,
			HeightPixels: *f.Height,
			ContainerExt: f.Ext,
			HasAudio:     f.ACodec != "" && f.ACodec != NoCodec,
		}
		switch {
		case f.FileSize != nil && *f.FileSize > 0:
			r.ApproxSizeBytes = *f.FileSize
		case f.FileSizeApprox != nil && *f.FileSizeApprox > 0:
			r.ApproxSizeBytes = *f.FileSizeApprox
		}
		if f.TBR != nil {
			r.Bitrate = *f.TBR
		}
		renditions = append(renditions, r)
	}

	if len(renditions) == 0 {
		return nil, fmt.Errorf("no downloadable video renditions for %s", url)
	}

	duration := 0
	if out.Duration != nil && *out.Duration > 0 {
		duration = int(math.Round(*out.Duration))
	}

	return model.NewVideoDescriptor(url, out.Title, duration, renditions), nil
}
