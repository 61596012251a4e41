package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tracker:
  poll_interval_seconds: 10
  idle_threshold_seconds: 120
timeline:
  workday_start: "09:30"
  workday_end: "17:00"
web:
  port: 18080
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Tracker.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v, want 10s", cfg.Tracker.PollInterval)
	}
	if cfg.Tracker.IdleThreshold != 2*time.Minute {
		t.Errorf("IdleThreshold = %v, want 2m", cfg.Tracker.IdleThreshold)
	}
	if cfg.Web.Port != 18080 {
		t.Errorf("Web.Port = %d, want 18080", cfg.Web.Port)
	}
	start, end, err := cfg.WorkingHours()
	if err != nil || start != 570 || end != 1020 {
		t.Errorf("WorkingHours() = %d, %d, %v", start, end, err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tracker:\n  poll_interval_seconds: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ACTIVITYLOG_TRACKER_POLL_INTERVAL_SECONDS", "20")
	t.Setenv("ACTIVITYLOG_DATABASE_PATH", "/tmp/override.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tracker.PollInterval != 20*time.Second {
		t.Errorf("PollInterval = %v, want 20s", cfg.Tracker.PollInterval)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with explicit missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"poll too fast", func(c *Config) { c.Tracker.PollInterval = 100 * time.Millisecond }, true},
		{"poll too slow", func(c *Config) { c.Tracker.PollInterval = time.Hour }, true},
		{"zero idle threshold", func(c *Config) { c.Tracker.IdleThreshold = 0 }, true},
		{"bad workday", func(c *Config) { c.Timeline.WorkdayStart = "8am" }, true},
		{"inverted workday", func(c *Config) { c.Timeline.WorkdayStart = "19:00" }, true},
		{"full day", func(c *Config) { c.Timeline.WorkdayStart, c.Timeline.WorkdayEnd = "00:00", "24:00" }, false},
		{"bad port", func(c *Config) { c.Web.Port = 0 }, true},
		{"no pid file", func(c *Config) { c.Daemon.PIDFile = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
