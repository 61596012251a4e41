package daemon

import (
	"context"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// NotifyReady tells systemd that startup finished. Outside systemd it is a no-op.
func NotifyReady() (bool, error) {
	return notify(sddaemon.SdNotifyReady)
}

// NotifyStopping tells systemd that shutdown has begun.
func NotifyStopping() (bool, error) {
	return notify(sddaemon.SdNotifyStopping)
}

// NotifyWatchdog pings the systemd watchdog.
func NotifyWatchdog() (bool, error) {
	return notify(sddaemon.SdNotifyWatchdog)
}

func notify(state string) (bool, error) {
	sent, err := sddaemon.SdNotify(false, state)
	if err != nil {
		return false, errors.Wrap(err, "failed to send sd_notify")
	}
	return sent, nil
}

// RunWatchdog pings the watchdog at half the configured interval until ctx is
// done. It returns immediately when the unit has no WatchdogSec.
func RunWatchdog(ctx context.Context, logger zerolog.Logger) {
	interval, err := sddaemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read systemd watchdog settings")
		return
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	logger.Debug().Dur("interval", interval).Msg("Systemd watchdog enabled")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := NotifyWatchdog(); err != nil {
				logger.Warn().Err(err).Msg("Failed to ping systemd watchdog")
			}
		}
	}
}
