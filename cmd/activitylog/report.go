package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/activitylog/internal/reporter"
	"github.com/actionsum/activitylog/internal/tui"
)

var (
	reportJSON    bool
	timelinePlain bool
)

var reportCmd = &cobra.Command{
	Use:   "report [day]",
	Short: "Show totals and focus time per program for a day",
	Long: `Show the active/idle totals and the focus time per program for a day.
The day is "today" (default), "yesterday", or YYYY-MM-DD.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline [day]",
	Short: "Show the per-minute timeline of a day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTimeline,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live terminal view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		db, agg, err := openAggregator(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		return tui.Run(agg)
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output JSON")
	timelineCmd.Flags().BoolVar(&timelinePlain, "plain", false, "Print slot codes without colours")

	rootCmd.AddCommand(reportCmd, timelineCmd, watchCmd)
}

func dayArg(args []string) (time.Time, error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	return reporter.ParseDay(arg, time.Now())
}

func runReport(cmd *cobra.Command, args []string) error {
	day, err := dayArg(args)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	db, agg, err := openAggregator(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	rep := reporter.New(cfg, agg)
	report, err := rep.GenerateReport(ctx, day)
	if err != nil {
		return err
	}

	if reportJSON {
		out, err := rep.FormatReportJSON(report)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Println(rep.FormatReportText(report))
	return nil
}

func runTimeline(cmd *cobra.Command, args []string) error {
	day, err := dayArg(args)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	db, agg, err := openAggregator(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if timelinePlain {
		out, err := reporter.New(cfg, agg).Timeline(ctx, day)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	grid, err := agg.Grid(ctx, day)
	if err != nil {
		return err
	}
	fmt.Printf("Timeline - %s\n\n", day.Format("Mon Jan 2, 2006"))
	fmt.Println(tui.RenderGrid(&grid))
	fmt.Println()
	fmt.Println(tui.Legend())
	return nil
}
