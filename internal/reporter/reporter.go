package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/actionsum/activitylog/internal/config"
	"github.com/actionsum/activitylog/internal/models"
)

// Source is the aggregator surface reports are built from.
type Source interface {
	DayTotals(ctx context.Context, day time.Time) (models.DayTotals, error)
	Grid(ctx context.Context, day time.Time) (models.Grid, error)
	Programs(ctx context.Context, day time.Time) ([]models.ProgramSummary, error)
}

// Reporter handles report generation
type Reporter struct {
	config *config.Config
	source Source
}

// New creates a new reporter
func New(cfg *config.Config, source Source) *Reporter {
	return &Reporter{
		config: cfg,
		source: source,
	}
}

// GenerateReport builds the status totals and per-program focus time of day.
func (r *Reporter) GenerateReport(ctx context.Context, day time.Time) (*models.Report, error) {
	totals, err := r.source.DayTotals(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to compute day totals: %w", err)
	}

	programs, err := r.source.Programs(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get program summary: %w", err)
	}

	var totalSeconds int64
	for _, p := range programs {
		totalSeconds += p.TotalSeconds
	}

	return &models.Report{
		Day:          models.StartOfDay(day).Format(models.DateLayout),
		Status:       totals,
		Programs:     programs,
		TotalSeconds: totalSeconds,
		GeneratedAt:  time.Now(),
	}, nil
}

// ParseDay resolves a day argument: "today", "yesterday", or YYYY-MM-DD.
func ParseDay(arg string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "today":
		return models.StartOfDay(now), nil
	case "yesterday":
		return models.StartOfDay(now).AddDate(0, 0, -1), nil
	}
	day, err := models.ParseDay(arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q (valid: today, yesterday, YYYY-MM-DD)", arg)
	}
	return day, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Activity Report - %s\n", report.Day)
	s := report.Status
	fmt.Fprintf(&b, "Total: %s   Active: %s   Idle: %s   (%.2f%% idle)\n", s.Total, s.Active, s.Idle, s.IdlePercentage)
	if s.Degraded {
		b.WriteString("Warning: some intervals of this day could not be read; totals are incomplete.\n")
	}
	b.WriteString("\n")

	if len(report.Programs) == 0 {
		b.WriteString("No focus recorded for this day.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %10s %10s %10s %10s\n", "Program", "Hours", "Minutes", "Intervals", "Percent")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 74))

	for _, p := range report.Programs {
		fmt.Fprintf(&b, "%-30s %10.2f %10.0f %10d %9.1f%%\n",
			truncate(p.Program, 30),
			p.TotalHours,
			p.TotalMinutes,
			p.IntervalCount,
			p.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// Timeline renders the per-minute grid of day.
func (r *Reporter) Timeline(ctx context.Context, day time.Time) (string, error) {
	grid, err := r.source.Grid(ctx, day)
	if err != nil {
		return "", fmt.Errorf("failed to build timeline: %w", err)
	}
	return FormatTimeline(&grid), nil
}

// FormatTimeline renders a grid as one line per hour of slot codes.
func FormatTimeline(grid *models.Grid) string {
	var b strings.Builder
	b.WriteString("      0         1         2         3         4         5\n")
	b.WriteString("      012345678901234567890123456789012345678901234567890123456789\n")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, "%02d:00 ", h)
		for m := 0; m < 60; m++ {
			b.WriteByte(grid[h*60+m].Code())
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\n%c active  %c idle  %c expected  %c no data\n",
		models.SlotActive.Code(), models.SlotIdle.Code(), models.SlotExpected.Code(), models.SlotNoData.Code())
	return b.String()
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
