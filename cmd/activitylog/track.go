package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/actionsum/activitylog/internal/aggregator"
	"github.com/actionsum/activitylog/internal/config"
	"github.com/actionsum/activitylog/internal/daemon"
	"github.com/actionsum/activitylog/internal/database"
	"github.com/actionsum/activitylog/internal/logging"
	"github.com/actionsum/activitylog/internal/tracker"
	"github.com/actionsum/activitylog/internal/web"
	"github.com/actionsum/activitylog/pkg/detector"
)

// childEnv marks the re-executed background process.
const childEnv = "ACTIVITYLOG_DAEMON_CHILD"

var (
	foreground bool
	webPort    int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tracker",
	Long: `Start sampling idle time and focus. By default the tracker detaches and
logs to the configured log file; use --foreground under systemd or a terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrackerCommand(false)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracker together with the web dashboard and API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrackerCommand(true)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background tracker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		dm := daemon.New(cfg.Daemon.PIDFile)
		running, pid, err := dm.IsRunning()
		if err != nil {
			return fmt.Errorf("failed to check tracker status: %w", err)
		}
		if !running {
			fmt.Println("Tracker is not running")
			return nil
		}

		fmt.Printf("Stopping tracker (PID: %d)...\n", pid)
		if err := dm.Stop(); err != nil {
			return fmt.Errorf("failed to stop tracker: %w", err)
		}
		fmt.Println("Tracker stopped")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{startCmd, serveCmd} {
		c.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in the foreground instead of detaching")
	}
	serveCmd.Flags().IntVarP(&webPort, "port", "p", 0, "Web server port (default from configuration)")

	rootCmd.AddCommand(startCmd, serveCmd, stopCmd)
}

func runTrackerCommand(withWeb bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if withWeb && webPort > 0 {
		if err := cfg.SetWebPort(webPort); err != nil {
			return err
		}
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	if running, pid, err := dm.IsRunning(); err != nil {
		return fmt.Errorf("failed to check tracker status: %w", err)
	} else if running {
		return fmt.Errorf("tracker is already running (PID: %d)", pid)
	}

	if !foreground && os.Getenv(childEnv) != "1" {
		return daemonize(cfg, withWeb)
	}

	if os.Getenv(childEnv) == "1" {
		logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			defer logFile.Close()
			logger = logging.NewWithWriter(cfg.Logging, logFile)
			log.Logger = logger
		}
	}

	return runTracker(cfg, dm, withWeb, logger)
}

// runTracker holds the single-instance lock and runs the poll loop, and
// optionally the web server, until SIGINT or SIGTERM.
func runTracker(cfg *config.Config, dm *daemon.Daemon, withWeb bool, logger zerolog.Logger) error {
	if err := dm.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := dm.Release(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release PID file")
		}
	}()

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}
	store := database.NewStore(db)

	det, err := detector.New()
	if err != nil {
		return errors.Wrap(err, "failed to initialize window detector")
	}
	defer det.Close()

	logger.Info().Str("display_server", det.GetDisplayServer()).Msg("Window detector initialized")
	logger.Debug().Msgf("Configuration:\n%s", cfg.String())

	svc := tracker.NewService(cfg, store, tracker.NewDetectorSampler(det, logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *web.Server
	serverErr := make(chan error, 1)
	if withWeb {
		agg, err := aggregator.New(store, cfg, logger)
		if err != nil {
			return err
		}
		server = web.NewServer(cfg, agg, 0, logger)
		go func() {
			serverErr <- server.Start()
		}()
	}

	trackerDone := make(chan error, 1)
	go func() {
		trackerDone <- svc.Start(ctx)
	}()

	go daemon.RunWatchdog(ctx, logger)

	if sent, err := daemon.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	} else if sent {
		logger.Debug().Msg("Notified systemd of readiness")
	}

	var runErr error
	trackerStopped := false
	select {
	case <-ctx.Done():
		logger.Info().Msg("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			runErr = errors.Wrap(err, "web server failed")
		}
	case err := <-trackerDone:
		trackerStopped = true
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	if _, err := daemon.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	}

	svc.Stop()
	if !trackerStopped {
		<-trackerDone
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error shutting down web server")
		}
	}

	logger.Info().Msg("Tracker stopped")
	return runErr
}

// daemonize re-executes the binary detached from the terminal.
func daemonize(cfg *config.Config, withWeb bool) error {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	procAttr := &os.ProcAttr{
		Env:   append(os.Environ(), childEnv+"=1"),
		Files: []*os.File{nil, nil, nil},
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	process, err := os.StartProcess(exe, os.Args, procAttr)
	if err != nil {
		return fmt.Errorf("failed to start background process: %w", err)
	}

	fmt.Printf("Tracker started (PID: %d)\n", process.Pid)
	if withWeb {
		fmt.Printf("Dashboard: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}
	fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)
	return process.Release()
}
