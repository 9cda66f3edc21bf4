package download

import (
	"context"

	"github.com/ytget/ytgrab/internal/fetch"
	"github.com/ytget/ytgrab/internal/media"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
	"github.com/ytget/ytgrab/internal/recovery"
)

var (
	_ Fetcher         = (*fetch.Adapter)(nil)
	_ MediaTool       = (*media.Processor)(nil)
	_ Namer           = (*platform.Namer)(nil)
	_ ProgressTracker = (*recovery.Tracker)(nil)
)

// Fetcher is the media fetch engine
type Fetcher interface {
	Probe(ctx context.Context, url string) (*model.VideoDescriptor, error)
	FetchRendition(ctx context.Context, req fetch.FetchRequest) error
	FetchAudioOnly(ctx context.Context, url, base string, isCancelled func() bool) (string, error)
}

// MediaTool is the media processing collaborator
type MediaTool interface {
	Available() bool
	HasAudioTrack(ctx context.Context, path string) (bool, error)
	ExtractAudio(ctx context.Context, inputPath, outputPath string) error
	MuxVideoAudio(ctx context.Context, videoPath, audioPath, outputPath string) error
	Transcode(ctx context.Context, inputPath, outputPath string, onProgress func(float64)) error
}

// Namer derives temp and final paths in the destination directory
type Namer interface {
	UniqueFinalName(title string, isRedownload bool) (string, error)
	TempName(url, renditionID, title string) (string, error)
	FindExistingSimilarFile(title string) (string, bool)
}

// ProgressTracker tells growth of the temp file apart from stalls
type ProgressTracker interface {
	Reset(path string)
	Progressed(path string) bool
	Size() int64
}

// Confirmer asks the user whether to download a title that already exists
type Confirmer interface {
	ConfirmRedownload(ctx context.Context, existingPath string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, existingPath string) bool

// ConfirmRedownload calls f
func (f ConfirmFunc) ConfirmRedownload(ctx context.Context, existingPath string) bool {
	return f(ctx, existingPath)
}
