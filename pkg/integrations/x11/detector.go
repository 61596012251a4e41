// Package x11 samples focus and idle time directly over the X protocol.
package x11

import (
	"os"
	"strings"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/actionsum/activitylog/pkg/integrations/common"
	"github.com/actionsum/activitylog/pkg/window"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Screen lockers whose presence means the session is locked.
var lockers = []string{
	"gnome-screensaver-dialog",
	"kscreenlocker_greet",
	"i3lock",
	"slock",
	"xscreensaver",
	"xsecurelock",
	"light-locker",
}

// maxPropertyLength is the number of 32-bit units read for text properties.
const maxPropertyLength = 256

// Detector implements window.Detector for X11 over a single long-lived
// connection, reopened after any protocol error.
type Detector struct {
	mu             sync.Mutex
	display        string
	conn           *xgb.Conn
	root           xproto.Window
	atoms          map[string]xproto.Atom
	hasScreensaver bool
}

// NewDetector creates a new X11 detector. No connection is made until the
// first query.
func NewDetector() *Detector {
	return &Detector{display: os.Getenv("DISPLAY")}
}

// IsAvailable checks if an X server is reachable
func (d *Detector) IsAvailable() bool {
	if d.display == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connect() == nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return window.DisplayX11
}

func (d *Detector) connect() error {
	if d.conn != nil {
		return nil
	}

	conn, err := xgb.NewConnDisplay(d.display)
	if err != nil {
		return errors.Wrap(err, "failed to connect to X server")
	}

	atoms := make(map[string]xproto.Atom, len(atomNames))
	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return errors.Wrapf(err, "failed to intern atom %s", name)
		}
		atoms[name] = reply.Atom
	}

	d.conn = conn
	d.root = xproto.Setup(conn).DefaultScreen(conn).Root
	d.atoms = atoms
	d.hasScreensaver = screensaver.Init(conn) == nil
	return nil
}

func (d *Detector) reset() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// GetFocusedWindow returns information about the currently focused window.
// It returns nil, nil when no window holds focus.
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connect(); err != nil {
		return nil, err
	}

	win, err := d.activeWindow()
	if err != nil {
		d.reset()
		return nil, err
	}
	if win == 0 {
		return nil, nil
	}

	instance, class := d.windowClass(win)
	app := class
	if app == "" {
		app = instance
	}
	pid := d.windowPID(win)

	return &window.WindowInfo{
		AppName:       app,
		WindowTitle:   d.windowName(win),
		ProcessName:   common.ProcessName(pid),
		PID:           pid,
		DisplayServer: window.DisplayX11,
	}, nil
}

func (d *Detector) property(win xproto.Window, atom, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(d.conn, false, win, atom, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// activeWindow prefers the EWMH active window and falls back to the input
// focus walked up to its top-level frame.
func (d *Detector) activeWindow() (xproto.Window, error) {
	data, err := d.property(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read _NET_ACTIVE_WINDOW")
	}
	if win := windowFromProperty(data); win != 0 && d.hasName(win) {
		return win, nil
	}

	focus, err := xproto.GetInputFocus(d.conn).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read input focus")
	}
	if focus.Focus == xproto.InputFocusNone || focus.Focus == xproto.InputFocusPointerRoot || focus.Focus == d.root {
		return 0, nil
	}

	top := d.topLevel(focus.Focus)
	if d.hasName(top) {
		return top, nil
	}
	return 0, nil
}

func (d *Detector) topLevel(win xproto.Window) xproto.Window {
	for {
		tree, err := xproto.QueryTree(d.conn, win).Reply()
		if err != nil || tree.Parent == d.root || tree.Parent == 0 {
			return win
		}
		win = tree.Parent
	}
}

func (d *Detector) hasName(win xproto.Window) bool {
	return d.windowName(win) != ""
}

func (d *Detector) windowName(win xproto.Window) string {
	if data, err := d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], maxPropertyLength); err == nil && len(data) > 0 {
		return trimProperty(data)
	}
	if data, err := d.property(win, d.atoms["WM_NAME"], xproto.AtomString, maxPropertyLength); err == nil && len(data) > 0 {
		return trimProperty(data)
	}
	return ""
}

func (d *Detector) windowClass(win xproto.Window) (instance, class string) {
	data, err := d.property(win, d.atoms["WM_CLASS"], xproto.AtomString, maxPropertyLength)
	if err != nil {
		return "", ""
	}
	return splitWMClass(data)
}

func (d *Detector) windowPID(win xproto.Window) int {
	data, err := d.property(win, d.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return int(xgb.Get32(data))
}

// GetIdleInfo returns the time since the last input event as reported by the
// MIT-SCREEN-SAVER extension.
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connect(); err != nil {
		return nil, err
	}
	if !d.hasScreensaver {
		return nil, errors.New("MIT-SCREEN-SAVER extension not available")
	}

	info, err := screensaver.QueryInfo(d.conn, xproto.Drawable(d.root)).Reply()
	if err != nil {
		d.reset()
		return nil, errors.Wrap(err, "failed to query screensaver info")
	}

	return &window.IdleInfo{
		IdleSeconds: float64(info.MsSinceUserInput) / 1000,
		IsLocked:    info.State == screensaver.StateOn || common.AnyProcessRunning(lockers...),
	}, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	return nil
}

func windowFromProperty(data []byte) xproto.Window {
	if len(data) < 4 {
		return 0
	}
	return xproto.Window(xgb.Get32(data))
}

func trimProperty(data []byte) string {
	return strings.TrimSpace(strings.TrimRight(string(data), "\x00"))
}

// splitWMClass splits a WM_CLASS value, two NUL-terminated strings holding
// the instance and the class.
func splitWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}
