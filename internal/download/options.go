package download

import (
	"time"

	"github.com/rs/zerolog"
)

// Default values
const (
	DefaultMaxStalledAttempts = 3
	DefaultMaxTotalAttempts   = 20
	DefaultRetryDelay         = 2 * time.Second
	DefaultProgressInterval   = 500 * time.Millisecond
)

// Options tunes the pipeline
type Options struct {
	// MaxStalledAttempts consecutive failed attempts without temp file growth end stage 1
	MaxStalledAttempts int
	// MaxTotalAttempts bounds stage 1 even while the file keeps growing
	MaxTotalAttempts int
	RetryDelay       time.Duration
	// CompatibilityPass re-encodes muxed output to h264/yuv420p
	CompatibilityPass bool
	// ProgressInterval is the minimum spacing of intermediate progress events
	ProgressInterval time.Duration
}

// DefaultOptions returns the standard pipeline settings
func DefaultOptions() Options {
	return Options{
		MaxStalledAttempts: DefaultMaxStalledAttempts,
		MaxTotalAttempts:   DefaultMaxTotalAttempts,
		RetryDelay:         DefaultRetryDelay,
		CompatibilityPass:  true,
		ProgressInterval:   DefaultProgressInterval,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxStalledAttempts <= 0 {
		o.MaxStalledAttempts = d.MaxStalledAttempts
	}
	if o.MaxTotalAttempts <= 0 {
		o.MaxTotalAttempts = d.MaxTotalAttempts
	}
	if o.MaxTotalAttempts < o.MaxStalledAttempts {
		o.MaxTotalAttempts = o.MaxStalledAttempts
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = d.ProgressInterval
	}
	return o
}

// Deps are the collaborators of the orchestrator. Confirmer may be nil, in
// which case an existing title is downloaded again under a suffixed name.
type Deps struct {
	Fetcher   Fetcher
	Media     MediaTool
	Namer     Namer
	Tracker   ProgressTracker
	Confirmer Confirmer
	Logger    zerolog.Logger
}
