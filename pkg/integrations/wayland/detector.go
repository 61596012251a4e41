// Package wayland samples focus and idle time through compositor IPC.
package wayland

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/actionsum/activitylog/pkg/integrations/common"
	"github.com/actionsum/activitylog/pkg/integrations/x11"
	"github.com/actionsum/activitylog/pkg/window"
)

// Compositor names
const (
	CompositorSway     = "sway"
	CompositorHyprland = "hyprland"
	CompositorGnome    = "gnome"
	CompositorUnknown  = "unknown"
)

// compositors maps compositor process names to compositor identifiers, in
// detection order.
var compositors = []struct {
	process string
	name    string
}{
	{"sway", CompositorSway},
	{"Hyprland", CompositorHyprland},
	{"gnome-shell", CompositorGnome},
}

var lockers = []string{
	"swaylock",
	"waylock",
	"gtklock",
	"hyprlock",
	"gnome-screensaver-dialog",
}

// Detector implements window.Detector for Wayland
type Detector struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool
	hasGdbus   bool

	// xwayland answers for X clients when the compositor will not
	xwayland *x11.Detector
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	return &Detector{
		compositor: detectCompositor(),
		hasSwaymsg: common.CommandExists("swaymsg"),
		hasHyprctl: common.CommandExists("hyprctl"),
		hasGdbus:   common.CommandExists("gdbus"),
		xwayland:   x11.NewDetector(),
	}
}

func detectCompositor() string {
	for _, c := range compositors {
		if common.AnyProcessRunning(c.process) {
			return c.name
		}
	}
	return CompositorUnknown
}

// Compositor returns the detected compositor name
func (d *Detector) Compositor() string {
	return d.compositor
}

// IsAvailable checks if Wayland detection is available
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case CompositorSway:
		return d.hasSwaymsg
	case CompositorHyprland:
		return d.hasHyprctl
	case CompositorGnome:
		return d.hasGdbus
	default:
		return false
	}
}

// GetDisplayServer returns "wayland"
func (d *Detector) GetDisplayServer() string {
	return window.DisplayWayland
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)

	switch d.compositor {
	case CompositorSway:
		info, err = d.focusedSway()
	case CompositorHyprland:
		info, err = d.focusedHyprland()
	case CompositorGnome:
		info, err = d.focusedGnome()
	default:
		return nil, errors.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil || info == nil {
		return nil, err
	}

	info.DisplayServer = window.DisplayWayland
	if info.ProcessName == "" {
		info.ProcessName = common.ProcessName(info.PID)
	}
	return info, nil
}

func (d *Detector) focusedSway() (*window.WindowInfo, error) {
	out, err := common.Output("swaymsg", "-t", "get_tree")
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute swaymsg")
	}
	return parseSwayTree(out)
}

type swayNode struct {
	Focused          bool   `json:"focused"`
	Name             string `json:"name"`
	AppID            string `json:"app_id"`
	PID              int    `json:"pid"`
	WindowProperties struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func (n *swayNode) find() *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := n.Nodes[i].find(); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := n.FloatingNodes[i].find(); f != nil {
			return f
		}
	}
	return nil
}

// parseSwayTree returns the focused view of a `swaymsg -t get_tree` dump,
// or nil when focus sits on a workspace or output.
func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "failed to parse sway tree")
	}

	node := root.find()
	if node == nil || node.PID == 0 {
		return nil, nil
	}

	app := node.AppID
	if app == "" {
		app = node.WindowProperties.Class
	}
	return &window.WindowInfo{
		AppName:     app,
		WindowTitle: node.Name,
		PID:         node.PID,
	}, nil
}

func (d *Detector) focusedHyprland() (*window.WindowInfo, error) {
	out, err := common.Output("hyprctl", "activewindow", "-j")
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute hyprctl")
	}
	return parseHyprlandWindow(out)
}

// parseHyprlandWindow parses `hyprctl activewindow -j`. Hyprland prints an
// empty object when nothing is focused.
func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var w struct {
		Class string `json:"class"`
		Title string `json:"title"`
		PID   int    `json:"pid"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "failed to parse hyprctl output")
	}
	if w.Class == "" && w.Title == "" {
		return nil, nil
	}
	return &window.WindowInfo{AppName: w.Class, WindowTitle: w.Title, PID: w.PID}, nil
}

const gnomeFocusScript = `
try {
	let w = global.display.get_focus_window();
	w ? [w.get_wm_class() || '', w.get_title() || '', w.get_pid() || 0].join('|||') : '';
} catch (e) {
	'';
}`

// focusedGnome asks GNOME Shell for the focus window. Recent releases
// refuse Shell.Eval, in which case X clients are still visible through
// XWayland.
func (d *Detector) focusedGnome() (*window.WindowInfo, error) {
	out, err := common.Output("gdbus", "call", "--session",
		"--dest", "org.gnome.Shell",
		"--object-path", "/org/gnome/Shell",
		"--method", "org.gnome.Shell.Eval",
		gnomeFocusScript)
	if err == nil {
		if info, ok := parseGnomeEval(string(out)); ok {
			return info, nil
		}
	}

	if d.xwayland.IsAvailable() {
		return d.xwayland.GetFocusedWindow()
	}
	return nil, errors.New("GNOME window detection failed: Shell.Eval refused and XWayland unavailable")
}

// parseGnomeEval parses the gdbus reply to gnomeFocusScript, of the form
// (true, 'class|||title|||pid').
func parseGnomeEval(out string) (*window.WindowInfo, bool) {
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, "(true, ") {
		return nil, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(out, "(true, "), ")")
	body = strings.Trim(body, `'"`)

	parts := strings.Split(body, "|||")
	if len(parts) != 3 {
		return nil, false
	}
	pid, _ := strconv.Atoi(parts[2])
	return &window.WindowInfo{AppName: parts[0], WindowTitle: parts[1], PID: pid}, true
}

// GetIdleInfo returns system idle/lock information for Wayland
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	locked := common.AnyProcessRunning(lockers...) || common.SessionLocked()

	if d.compositor == CompositorGnome && d.hasGdbus {
		out, err := common.Output("gdbus", "call", "--session",
			"--dest", "org.gnome.Mutter.IdleMonitor",
			"--object-path", "/org/gnome/Mutter/IdleMonitor/Core",
			"--method", "org.gnome.Mutter.IdleMonitor.GetIdletime")
		if err == nil {
			if ms, err := parseMutterIdletime(string(out)); err == nil {
				return &window.IdleInfo{IdleSeconds: float64(ms) / 1000, IsLocked: locked}, nil
			}
		}
	}

	// XWayland only sees input delivered to X clients, which is still the
	// best signal available without an idle-notify client.
	if d.xwayland.IsAvailable() {
		info, err := d.xwayland.GetIdleInfo()
		if err == nil {
			info.IsLocked = info.IsLocked || locked
			return info, nil
		}
	}

	if locked {
		return &window.IdleInfo{IsLocked: true}, nil
	}
	return nil, errors.Errorf("idle time unavailable on %s", d.compositor)
}

// parseMutterIdletime parses "(uint64 12345,)" into milliseconds.
func parseMutterIdletime(out string) (uint64, error) {
	s := strings.TrimSpace(out)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimSuffix(s, ",")
	s = strings.TrimSpace(strings.TrimPrefix(s, "uint64"))
	ms, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected idle monitor reply %q", out)
	}
	return ms, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	return d.xwayland.Close()
}
