package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// ACTIVITYLOG_TRACKER_POLL_INTERVAL_SECONDS.
const EnvPrefix = "ACTIVITYLOG"

// Load builds a Config from defaults, an optional YAML file and the
// environment, in increasing order of precedence. An empty path looks for
// config.yaml under the user config directory and tolerates its absence.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "activitylog"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "failed to read config file")
			}
		}
	}

	cfg.Database.Path = v.GetString("database.path")
	cfg.Tracker.PollInterval = seconds(v.GetInt("tracker.poll_interval_seconds"))
	cfg.Tracker.IdleThreshold = seconds(v.GetInt("tracker.idle_threshold_seconds"))
	cfg.Timeline.WorkdayStart = v.GetString("timeline.workday_start")
	cfg.Timeline.WorkdayEnd = v.GetString("timeline.workday_end")
	cfg.Timeline.CacheDays = v.GetInt("timeline.cache_days")
	cfg.Daemon.PIDFile = v.GetString("daemon.pid_file")
	cfg.Daemon.LogFile = v.GetString("daemon.log_file")
	cfg.Web.Host = v.GetString("web.host")
	cfg.Web.Port = v.GetInt("web.port")
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("tracker.poll_interval_seconds", cfg.GetPollIntervalSeconds())
	v.SetDefault("tracker.idle_threshold_seconds", cfg.GetIdleThresholdSeconds())
	v.SetDefault("timeline.workday_start", cfg.Timeline.WorkdayStart)
	v.SetDefault("timeline.workday_end", cfg.Timeline.WorkdayEnd)
	v.SetDefault("timeline.cache_days", cfg.Timeline.CacheDays)
	v.SetDefault("daemon.pid_file", cfg.Daemon.PIDFile)
	v.SetDefault("daemon.log_file", cfg.Daemon.LogFile)
	v.SetDefault("web.host", cfg.Web.Host)
	v.SetDefault("web.port", cfg.Web.Port)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
