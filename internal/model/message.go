package model

import "time"

// CommandKind enumerates user decisions sent to the orchestrator
type CommandKind string

const (
	CommandStart       CommandKind = "start"
	CommandCancel      CommandKind = "cancel"
	CommandResume      CommandKind = "resume"
	CommandDiscardTemp CommandKind = "discard_temp"
)

// Command is a message from the presentation layer to the orchestrator.
// RenditionID is required for Start; Resume may omit URL and RenditionID when
// the orchestrator retained a failed or cancelled session.
type Command struct {
	Kind        CommandKind
	URL         string
	RenditionID string
}

// EventKind enumerates messages emitted by the orchestrator
type EventKind string

const (
	EventStageStarted     EventKind = "stage_started"
	EventProgress         EventKind = "progress"
	EventStageFinished    EventKind = "stage_finished"
	EventNotice           EventKind = "notice"
	EventSessionDone      EventKind = "session_done"
	EventSessionFailed    EventKind = "session_failed"
	EventSessionCancelled EventKind = "session_cancelled"
	// EventSessionSkipped means the user declined to download an existing title
	EventSessionSkipped EventKind = "session_skipped"
)

// Event is a status message from the orchestrator to its subscriber. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	SessionID string
	Stage     Stage
	Step      int // 1..TotalSteps for stage events
	Message   string
	At        time.Time

	// Progress
	DownloadedBytes int64
	TotalBytes      int64
	Percent         float64

	// Terminal outcomes
	FinalPath   string
	TempPath    string
	TempSize    int64
	Category    string
	Remediation []string
}

// IsTerminal reports whether the event ends a session
func (e Event) IsTerminal() bool {
	switch e.Kind {
	case EventSessionDone, EventSessionFailed, EventSessionCancelled, EventSessionSkipped:
		return true
	}
	return false
}

// TempFileRecord describes a leftover temp file discovered in the destination
// directory. It is a hint only; resumability is re-validated on disk.
type TempFileRecord struct {
	Path         string
	SizeBytes    int64
	ModTime      time.Time
	DiscoveredAt time.Time
}
