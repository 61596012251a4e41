package common

import (
	"os"
	"path/filepath"
	"testing"
)

func fakeProc(t *testing.T, procs map[string]string) {
	t.Helper()
	root := t.TempDir()
	for pid, comm := range procs {
		dir := filepath.Join(root, pid)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "self"), 0755); err != nil {
		t.Fatal(err)
	}

	old := ProcRoot
	ProcRoot = root
	t.Cleanup(func() { ProcRoot = old })
}

func TestProcessName(t *testing.T) {
	fakeProc(t, map[string]string{"42": "firefox", "7": "code"})

	tests := []struct {
		pid  int
		want string
	}{
		{42, "firefox"},
		{7, "code"},
		{99, ""},
		{0, ""},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := ProcessName(tt.pid); got != tt.want {
			t.Errorf("ProcessName(%d) = %q, want %q", tt.pid, got, tt.want)
		}
	}
}

func TestAnyProcessRunning(t *testing.T) {
	fakeProc(t, map[string]string{"100": "bash", "200": "swaylock"})

	if !AnyProcessRunning("i3lock", "swaylock") {
		t.Error("swaylock should be found")
	}
	if AnyProcessRunning("i3lock", "slock") {
		t.Error("no locker should be found")
	}
	if AnyProcessRunning() {
		t.Error("empty name list matched")
	}
}

func TestParseLockedHint(t *testing.T) {
	tests := []struct {
		out  string
		want bool
	}{
		{"LockedHint=yes\n", true},
		{"LockedHint=no\n", false},
		{"", false},
		{"Id=2\nLockedHint=yes\n", true},
	}
	for _, tt := range tests {
		if got := ParseLockedHint(tt.out); got != tt.want {
			t.Errorf("ParseLockedHint(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}

func TestCommandExists(t *testing.T) {
	if !CommandExists("sh") {
		t.Error("sh should exist")
	}
	if CommandExists("nonexistent_command_xyz") {
		t.Error("nonexistent command found")
	}
}
