// Package window defines the platform-facing detector contract used to
// sample the focused window and the session idle time.
package window

import "strings"

// Display server names reported by detectors
const (
	DisplayX11     = "x11"
	DisplayWayland = "wayland"
)

// WindowInfo represents information about the currently focused window
type WindowInfo struct {
	AppName       string // WM class or compositor app id
	WindowTitle   string
	ProcessName   string // executable name of the owning process, when known
	PID           int
	DisplayServer string // "x11" or "wayland"
}

// Program returns the name used to group focus time: the process name when
// the detector resolved one, otherwise the application name.
func (w *WindowInfo) Program() string {
	if w == nil {
		return ""
	}
	if p := strings.TrimSpace(w.ProcessName); p != "" {
		return p
	}
	return strings.TrimSpace(w.AppName)
}

// IdleInfo represents system idle/lock state
type IdleInfo struct {
	IdleSeconds float64 // Seconds since the last user input
	IsLocked    bool
}

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused window.
	// A nil result with a nil error means nothing holds focus.
	GetFocusedWindow() (*WindowInfo, error)

	// GetIdleInfo returns information about system idle/lock state
	GetIdleInfo() (*IdleInfo, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11" or "wayland")
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}
