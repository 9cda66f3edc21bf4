package ui

import "time"

// UI-wide constants to avoid magic numbers/strings scattered across the codebase.

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconFolder   = "📁"
	IconError    = "❌"
	IconDone     = "✅"
	IconResume   = "▶"
	IconDelete   = "🗑"
)

// Text fragments
const (
	MiddleDotSeparator  = " · "
	DashPlaceholder     = "—"
	ProgressLabelFormat = "%d%%"
	LogTimeFormat       = "15:04:05"
)

// Layout sizing
const (
	WindowMinWidth   float32 = 640
	LogMinHeight     float32 = 220
	RenditionWidth   float32 = 260
	ErrorDialogWidth float32 = 520
	SettingsWidth    float32 = 520
	SettingsHeight   float32 = 460
)

// Log view keeps this many lines
const MaxLogLines = 500

// Debounce durations
const (
	UIUpdateDebounce = 100 * time.Millisecond
)
