package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/actionsum/activitylog/internal/config"
	"github.com/actionsum/activitylog/internal/daemon"
	"github.com/actionsum/activitylog/internal/database"
	"github.com/actionsum/activitylog/internal/models"
	"github.com/actionsum/activitylog/pkg/detector"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracker status, today's totals and the focused window",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check tracker status: %w", err)
	}

	cyan.Print("Tracker:  ")
	if running {
		green.Printf("running (PID: %d)\n", pid)
	} else {
		red.Println("not running")
	}
	fmt.Printf("Interval: %v (idle after %v)\n", cfg.Tracker.PollInterval, cfg.Tracker.IdleThreshold)
	fmt.Printf("Database: %s\n", databasePath(cfg))

	db, agg, err := openAggregator(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	snap, err := agg.Snapshot(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to read today's totals: %w", err)
	}

	fmt.Println()
	cyan.Println("Today")
	t := snap.Totals
	fmt.Printf("  Total:  %s\n", t.Total)
	fmt.Printf("  Active: %s\n", green.Sprint(t.Active))
	fmt.Printf("  Idle:   %s (%.2f%%)\n", yellow.Sprint(t.Idle), t.IdlePercentage)
	if t.Degraded {
		red.Println("  Totals unavailable: the database holds malformed intervals")
	}

	if running {
		if s := snap.OpenStatus; s != nil {
			fmt.Printf("  Now:    %s since %s\n", statusColor(s.Status).Sprint(s.Status), s.Span.Start.Format(models.TimestampLayout))
		}
		if f := snap.OpenFocus; f != nil {
			fmt.Printf("  Focus:  %s\n", f.Focus().Label())
		}
	}

	det, err := detector.New()
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return nil
	}
	defer det.Close()

	fmt.Println()
	cyan.Printf("Session (%s)\n", det.GetDisplayServer())
	if info, err := det.GetFocusedWindow(); err == nil && info != nil {
		fmt.Printf("  Program: %s\n", info.Program())
		fmt.Printf("  Title:   %s\n", info.WindowTitle)
	} else if err == nil {
		fmt.Println("  No window has focus")
	}
	if idle, err := det.GetIdleInfo(); err == nil && idle != nil {
		fmt.Printf("  Idle:    %ds\n", int64(idle.IdleSeconds))
		if idle.IsLocked {
			yellow.Println("  Locked")
		}
	}
	return nil
}

// databasePath is the file the tracker writes to, resolving the default
// location when none is configured.
func databasePath(cfg *config.Config) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	path, err := database.GetDefaultDBPath()
	if err != nil {
		return "(unknown: " + err.Error() + ")"
	}
	return path
}

func statusColor(s models.Status) *color.Color {
	if s == models.StatusIdle {
		return color.New(color.FgYellow)
	}
	return color.New(color.FgGreen)
}
