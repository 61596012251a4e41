// Package detector picks the window.Detector matching the running session.
package detector

import (
	"os"

	"github.com/pkg/errors"

	"github.com/actionsum/activitylog/pkg/integrations/wayland"
	"github.com/actionsum/activitylog/pkg/integrations/x11"
	"github.com/actionsum/activitylog/pkg/window"
)

// ErrNoDisplay is returned when neither a Wayland compositor nor an X
// server can be queried.
var ErrNoDisplay = errors.New("no supported display server found")

// New returns the Wayland detector when the session is Wayland and its
// compositor is supported, otherwise the X11 detector (which also covers
// XWayland).
func New() (window.Detector, error) {
	if DetectDisplayServer() == window.DisplayWayland {
		det := wayland.NewDetector()
		if det.IsAvailable() {
			return det, nil
		}
		_ = det.Close()
	}

	if os.Getenv("DISPLAY") != "" {
		det := x11.NewDetector()
		if det.IsAvailable() {
			return det, nil
		}
		_ = det.Close()
	}

	return nil, ErrNoDisplay
}

// DetectDisplayServer reports the session type from the environment.
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return window.DisplayWayland
	}

	if sessionType == "x11" || x11Display != "" {
		return window.DisplayX11
	}

	return "unknown"
}
