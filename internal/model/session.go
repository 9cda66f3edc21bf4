package model

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionIDPrefix prefixes every generated session ID
const SessionIDPrefix = "session-"

// DownloadSession is the mutable state of the single active or resumable
// download. It is owned by the orchestrator; other goroutines only read it
// through Snapshot or request cancellation.
type DownloadSession struct {
	ID              string
	URL             string
	Title           string
	ChosenRendition RenditionInfo
	TempPath        string
	FinalPath       string
	IsRedownload    bool
	IsResume        bool
	CreatedAt       time.Time

	mu                            sync.RWMutex
	stage                         Stage
	bytesObservedAtTemp           int64
	consecutiveNoProgressAttempts int
	lastError                     string
	finishedAt                    time.Time

	cancelRequested atomic.Bool
}

// SessionSnapshot is a copy of session state safe to hand to other goroutines
type SessionSnapshot struct {
	ID                            string
	URL                           string
	Title                         string
	RenditionID                   string
	TempPath                      string
	FinalPath                     string
	Stage                         Stage
	BytesObservedAtTemp           int64
	ConsecutiveNoProgressAttempts int
	CancelRequested               bool
	LastError                     string
	CreatedAt                     time.Time
	FinishedAt                    time.Time
}

// NewSession creates a session in the NotStarted stage
func NewSession(url, title string, rendition RenditionInfo) *DownloadSession {
	return &DownloadSession{
		ID:              generateSessionID(),
		URL:             url,
		Title:           title,
		ChosenRendition: rendition,
		CreatedAt:       time.Now(),
		stage:           StageNotStarted,
	}
}

// Stage returns the current stage
func (s *DownloadSession) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// Transition moves the session to next if the move is legal
func (s *DownloadSession) Transition(next Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage == next {
		return nil
	}
	if !s.stage.CanTransition(next) {
		return fmt.Errorf("illegal stage transition %s -> %s", s.stage, next)
	}
	s.stage = next
	if next.IsTerminal() {
		s.finishedAt = time.Now()
	}
	return nil
}

// Fail moves the session to Failed and records the message
func (s *DownloadSession) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.IsTerminal() {
		return
	}
	s.stage = StageFailed
	s.lastError = msg
	s.finishedAt = time.Now()
}

// RequestCancel sets the cooperative cancellation flag
func (s *DownloadSession) RequestCancel() {
	s.cancelRequested.Store(true)
}

// CancelRequested reports whether cancellation has been requested
func (s *DownloadSession) CancelRequested() bool {
	return s.cancelRequested.Load()
}

// ObserveTempSize records the last seen temp file size
func (s *DownloadSession) ObserveTempSize(size int64) {
	s.mu.Lock()
	s.bytesObservedAtTemp = size
	s.mu.Unlock()
}

// RecordStall increments the no-progress counter and returns the new value
func (s *DownloadSession) RecordStall() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveNoProgressAttempts++
	return s.consecutiveNoProgressAttempts
}

// ResetStalls clears the no-progress counter after observed growth
func (s *DownloadSession) ResetStalls() {
	s.mu.Lock()
	s.consecutiveNoProgressAttempts = 0
	s.mu.Unlock()
}

// Stalls returns the current no-progress counter
func (s *DownloadSession) Stalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consecutiveNoProgressAttempts
}

// Snapshot returns a consistent copy of the session state
func (s *DownloadSession) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{
		ID:                            s.ID,
		URL:                           s.URL,
		Title:                         s.Title,
		RenditionID:                   s.ChosenRendition.ID,
		TempPath:                      s.TempPath,
		FinalPath:                     s.FinalPath,
		Stage:                         s.stage,
		BytesObservedAtTemp:           s.bytesObservedAtTemp,
		ConsecutiveNoProgressAttempts: s.consecutiveNoProgressAttempts,
		CancelRequested:               s.cancelRequested.Load(),
		LastError:                     s.lastError,
		CreatedAt:                     s.CreatedAt,
		FinishedAt:                    s.finishedAt,
	}
}

// generateSessionID generates a unique, time ordered session ID
func generateSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(SessionIDPrefix+"%d", time.Now().UnixNano())
	}
	return SessionIDPrefix + id.String()
}
