package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ErrAlreadyRunning is returned by Acquire when another process holds the lock.
var ErrAlreadyRunning = errors.New("tracker is already running")

// Daemon manages the PID file and the single-instance lock beside it.
type Daemon struct {
	pidFile string
	lock    *flock.Flock
}

func New(pidFile string) *Daemon {
	return &Daemon{
		pidFile: pidFile,
		lock:    flock.New(pidFile + ".lock"),
	}
}

func (d *Daemon) PIDFile() string {
	return d.pidFile
}

// Acquire takes the exclusive lock and writes the PID file. The lock is held
// until Release or process exit.
func (d *Daemon) Acquire() error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return errors.Wrap(err, "failed to lock PID file")
	}
	if !locked {
		pid, _ := d.ReadPID()
		if pid > 0 {
			return errors.Wrapf(ErrAlreadyRunning, "PID %d", pid)
		}
		return ErrAlreadyRunning
	}

	if err := d.WritePID(); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	return nil
}

// Release removes the PID file and drops the lock.
func (d *Daemon) Release() error {
	removeErr := d.RemovePID()
	if err := d.lock.Unlock(); err != nil {
		return errors.Wrap(err, "failed to unlock PID file")
	}
	return removeErr
}

func (d *Daemon) WritePID() error {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, fmt.Appendf([]byte{}, "%d", pid), 0644); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	return nil
}

func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether a live process owns the PID file. A PID file left
// behind by a crashed process is removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	if pid != os.Getpid() && !d.lockHeld() {
		_ = d.RemovePID()
		return false, 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0, nil
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		_ = d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// lockHeld probes the lock file with a fresh descriptor.
func (d *Daemon) lockHeld() bool {
	if _, err := os.Stat(d.lock.Path()); os.IsNotExist(err) {
		return false
	}

	probe := flock.New(d.lock.Path())
	locked, err := probe.TryLock()
	if err != nil {
		return true
	}
	if locked {
		_ = probe.Unlock()
		return false
	}
	return true
}

func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking daemon status")
	}

	if !running {
		return errors.New("daemon is not running or PID file is stale")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrap(err, "failed to find process")
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = d.RemovePID()
			return errors.New("daemon process already terminated")
		}
		return errors.Wrap(err, "failed to send SIGTERM")
	}

	return nil
}
