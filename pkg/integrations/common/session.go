// Package common holds helpers shared by the display-server detectors:
// process lookups under /proc, external command calls and lock detection.
package common

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CommandTimeout bounds every external command a detector runs.
const CommandTimeout = 2 * time.Second

// ProcRoot is where process metadata is read from.
var ProcRoot = "/proc"

// ProcessName returns the executable name of pid, or "" if unknown.
func ProcessName(pid int) string {
	if pid <= 0 {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(ProcRoot, strconv.Itoa(pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// AnyProcessRunning reports whether a process with one of names is alive.
func AnyProcessRunning(names ...string) bool {
	if len(names) == 0 {
		return false
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	entries, err := os.ReadDir(ProcRoot)
	if err != nil {
		return false
	}
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		if want[ProcessName(pid)] {
			return true
		}
	}
	return false
}

// CommandExists checks if a command is available in PATH
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// Output runs name with args under CommandTimeout and returns its stdout.
func Output(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// SessionLocked asks logind whether the current session is locked.
func SessionLocked() bool {
	if !CommandExists("loginctl") {
		return false
	}
	args := []string{"show-session", "-p", "LockedHint"}
	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		args = []string{"show-session", id, "-p", "LockedHint"}
	}
	out, err := Output("loginctl", args...)
	if err != nil {
		return false
	}
	return ParseLockedHint(string(out))
}

// ParseLockedHint parses `loginctl show-session -p LockedHint` output.
func ParseLockedHint(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "LockedHint=yes" {
			return true
		}
	}
	return false
}
