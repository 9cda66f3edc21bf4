package model

// Stage represents the state of a download session
type Stage string

const (
	// StageNotStarted means the session exists but the pipeline has not run yet
	StageNotStarted Stage = "NotStarted"

	// StageFetchingPrimary means the chosen rendition is being transferred
	StageFetchingPrimary Stage = "FetchingPrimary"

	// StageFetchingAudio means a separate audio track is being acquired
	StageFetchingAudio Stage = "FetchingAudio"

	// StageMuxing means video and audio streams are being combined
	StageMuxing Stage = "Muxing"

	// StageTranscoding means the compatibility pass is re-encoding the output
	StageTranscoding Stage = "Transcoding"

	// StageDone means the final file is in place
	StageDone Stage = "Done"

	// StageCancelled means the user cancelled the session
	StageCancelled Stage = "Cancelled"

	// StageFailed means the session ended with an error
	StageFailed Stage = "Failed"
)

// Progress narrative stage numbers reported to the user
const (
	StepPrimary   = 1
	StepAudio     = 2
	StepAudioDone = 3
	StepMux       = 4
	TotalSteps    = 4
)

// String returns the string representation of Stage
func (s Stage) String() string {
	return string(s)
}

// IsActive returns true if the pipeline is currently working on this stage
func (s Stage) IsActive() bool {
	switch s {
	case StageFetchingPrimary, StageFetchingAudio, StageMuxing, StageTranscoding:
		return true
	}
	return false
}

// IsTerminal returns true if the session reached Done, Cancelled or Failed
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageCancelled || s == StageFailed
}

// CanTransition reports whether moving from s to next is a legal state change.
// Cancelled and Failed are reachable from any non-terminal stage.
func (s Stage) CanTransition(next Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageCancelled || next == StageFailed {
		return true
	}
	switch s {
	case StageNotStarted:
		return next == StageFetchingPrimary
	case StageFetchingPrimary:
		return next == StageFetchingAudio || next == StageDone
	case StageFetchingAudio:
		return next == StageMuxing
	case StageMuxing:
		return next == StageTranscoding || next == StageDone
	case StageTranscoding:
		return next == StageDone
	}
	return false
}
