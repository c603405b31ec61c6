package ui

import "fmt"

// ANSI256 color codes.
const (
	colorArmed    = 214 // orange
	colorOK       = 72  // green
	colorMuted    = 245 // medium gray
	colorAccent   = 74  // blue
	colorCritical = 203 // red
)

var noColor bool

// RenderArmed returns s highlighted as an armed state.
func RenderArmed(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorArmed, s)
}

// RenderOK returns s in the success (green) color.
func RenderOK(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorOK, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorMuted, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorAccent, s)
}

// RenderCritical returns s in the error (red) color.
func RenderCritical(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorCritical, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
