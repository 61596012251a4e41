package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/actionsum/activitylog/internal/aggregator"
	"github.com/actionsum/activitylog/internal/config"
	"github.com/actionsum/activitylog/internal/database"
	"github.com/actionsum/activitylog/internal/logging"
)

var (
	version = "0.2.0"
	commit  = "unknown"
	date    = "unknown"

	configPath string
)

const appName = "activitylog"

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "activitylog - active/idle time and focus tracker",
	Long: `activitylog samples the desktop session every few seconds, records when the
user was active or idle and which program held focus, and reports per-day
totals and a per-minute timeline.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: $XDG_CONFIG_HOME/activitylog/config.yaml)")
	rootCmd.SetVersionTemplate(versionString())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionString() string {
	return fmt.Sprintf("%s version %s\n  commit: %s\n  built:  %s\n", appName, version, commit, date)
}

// loadConfig reads and validates the configuration and installs the logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.Logging)
	log.Logger = logger
	return cfg, logger, nil
}

// openAggregator opens the database for reading and returns an aggregator
// over it. The caller closes the returned DB.
func openAggregator(cfg *config.Config, logger zerolog.Logger) (*database.DB, *aggregator.Aggregator, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Initialize(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	agg, err := aggregator.New(database.NewStore(db), cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, agg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(versionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
