package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ytget/ytgrab/internal/model"
)

// FormatEvent renders an orchestrator event as one log line
func FormatEvent(l *Localization, e model.Event) string {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	prefix := at.Format(LogTimeFormat) + " "

	switch e.Kind {
	case model.EventStageStarted:
		return prefix + fmt.Sprintf(l.GetText(KeyStep), e.Step, model.TotalSteps) + MiddleDotSeparator + l.StageName(e.Stage) + suffix(e.Message)
	case model.EventStageFinished:
		return prefix + IconDone + " " + l.StageName(e.Stage) + suffix(e.Message)
	case model.EventProgress:
		return prefix + l.StageName(e.Stage) + MiddleDotSeparator + fmt.Sprintf(ProgressLabelFormat, int(e.Percent)) + suffix(e.Message)
	case model.EventNotice:
		return prefix + e.Message
	case model.EventSessionDone:
		return prefix + IconDone + " " + l.GetText(KeyDownloadCompleted) + suffix(e.FinalPath)
	case model.EventSessionCancelled:
		return prefix + l.GetText(KeyDownloadCancelled)
	case model.EventSessionSkipped:
		return prefix + l.GetText(KeyAlreadyExists)
	case model.EventSessionFailed:
		line := prefix + IconError + " " + l.GetText(KeyDownloadFailed) + MiddleDotSeparator + l.CategoryName(e.Category) + suffix(e.Message)
		if e.TempPath != "" {
			line += MiddleDotSeparator + l.GetText(KeyTempFile) + ": " + TempSummary(e.TempPath, e.TempSize)
		}
		return line
	}
	return prefix + e.Message
}

func suffix(msg string) string {
	if msg == "" {
		return ""
	}
	return ": " + msg
}

// TempSummary renders a temp path with its size
func TempSummary(path string, size int64) string {
	if size <= 0 {
		return path
	}
	return fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(size)))
}

// ProgressFraction converts an event percentage to the 0..1 range of a progress bar
func ProgressFraction(e model.Event) (float64, bool) {
	if e.Kind != model.EventProgress {
		return 0, false
	}
	p := e.Percent / 100
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, true
}

// ErrorReport builds the body of the failure dialog
func ErrorReport(l *Localization, e model.Event) string {
	var b strings.Builder
	b.WriteString(l.GetText(KeyErrorCategory) + ": " + l.CategoryName(e.Category) + "\n\n")
	b.WriteString(l.GetText(KeyWhatToDo) + ":\n")
	for _, line := range l.Remediation(e.Category) {
		b.WriteString("  • " + line + "\n")
	}
	if e.Message != "" {
		b.WriteString("\n" + e.Message + "\n")
	}
	if e.TempPath != "" {
		b.WriteString("\n" + l.GetText(KeyTempFile) + ": " + TempSummary(e.TempPath, e.TempSize) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// logBuffer keeps the most recent log lines
type logBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newLogBuffer(max int) *logBuffer {
	return &logBuffer{max: max}
}

func (b *logBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = append([]string(nil), b.lines[over:]...)
	}
}

func (b *logBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

func (b *logBuffer) At(i int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.lines) {
		return ""
	}
	return b.lines[i]
}
