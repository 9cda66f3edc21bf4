package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  zerolog.Level
	}{
		{"empty", "", zerolog.InfoLevel},
		{"debug", "debug", zerolog.DebugLevel},
		{"upper", "WARN", zerolog.WarnLevel},
		{"padded", " error ", zerolog.ErrorLevel},
		{"garbage", "loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(Options{Level: "debug", Writer: &buf}), "orchestrator")

	logger.Info().Str("session_id", "s1").Msg("stage started")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "orchestrator" {
		t.Errorf("expected component field, got %v", entry["component"])
	}
	if entry["session_id"] != "s1" {
		t.Errorf("expected session_id field, got %v", entry["session_id"])
	}
	if entry["message"] != "stage started" {
		t.Errorf("expected message, got %v", entry["message"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Writer: &buf})

	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}

	logger.Warn().Msg("shown")
	if buf.Len() == 0 {
		t.Error("expected warn to be written")
	}
}
