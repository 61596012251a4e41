package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Tracker configuration
	Tracker TrackerConfig

	// Timeline (aggregation) configuration
	Timeline TimelineConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Web server configuration
	Web WebConfig

	// Logging configuration
	Logging LoggingConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	PollInterval    time.Duration // How often to sample idle time and focus
	MinPollInterval time.Duration // Minimum allowed poll interval
	MaxPollInterval time.Duration // Maximum allowed poll interval
	IdleThreshold   time.Duration // Input-free time before the session counts as idle
}

// TimelineConfig holds per-day aggregation configuration
type TimelineConfig struct {
	WorkdayStart string // HH:MM, first minute filled as "expected" when empty
	WorkdayEnd   string // HH:MM, exclusive
	CacheDays    int    // Number of closed past days kept in the aggregator cache
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
	LogFile string // Where the background tracker writes its log
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string // Host to bind web server to
	Port int    // Port for web server
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/activitylog/activity.db
		},
		Tracker: TrackerConfig{
			PollInterval:    5 * time.Second,
			MinPollInterval: 1 * time.Second,
			MaxPollInterval: 300 * time.Second,
			IdleThreshold:   300 * time.Second, // 5 minutes idle threshold
		},
		Timeline: TimelineConfig{
			WorkdayStart: "08:00",
			WorkdayEnd:   "18:00",
			CacheDays:    64,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/activitylog-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/activitylog-%d.log", os.Getuid()),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid()%50000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.IdleThreshold <= 0 {
		return fmt.Errorf("idle threshold must be positive")
	}

	if _, _, err := c.WorkingHours(); err != nil {
		return err
	}

	if c.Timeline.CacheDays < 0 {
		return fmt.Errorf("timeline cache size cannot be negative")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// WorkingHours returns the working-hours window as minute-of-day bounds
// [start, end).
func (c *Config) WorkingHours() (start, end int, err error) {
	start, err = parseClock(c.Timeline.WorkdayStart)
	if err != nil {
		return 0, 0, errors.Wrap(err, "invalid workday start")
	}
	end, err = parseClock(c.Timeline.WorkdayEnd)
	if err != nil {
		return 0, 0, errors.Wrap(err, "invalid workday end")
	}
	if end < start {
		return 0, 0, errors.Errorf("workday end %s is before start %s", c.Timeline.WorkdayEnd, c.Timeline.WorkdayStart)
	}
	return start, end, nil
}

// parseClock accepts HH:MM, plus 24:00 as end of day.
func parseClock(s string) (int, error) {
	if s == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// GetPollIntervalSeconds returns the poll interval in seconds
func (c *Config) GetPollIntervalSeconds() int64 {
	return int64(c.Tracker.PollInterval.Seconds())
}

// GetIdleThresholdSeconds returns the idle threshold in seconds
func (c *Config) GetIdleThresholdSeconds() int64 {
	return int64(c.Tracker.IdleThreshold.Seconds())
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Tracker:
    Poll Interval: %v
    Idle Threshold: %v
  Timeline:
    Working Hours: %s-%s
  Daemon:
    PID File: %s
    Log File: %s
  Web:
    Host: %s
    Port: %d
  Logging:
    Level: %s
    Format: %s`,
		c.Database.Path,
		c.Tracker.PollInterval,
		c.Tracker.IdleThreshold,
		c.Timeline.WorkdayStart,
		c.Timeline.WorkdayEnd,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Web.Host,
		c.Web.Port,
		c.Logging.Level,
		c.Logging.Format,
	)
}
