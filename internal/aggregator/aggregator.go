// Package aggregator rebuilds per-day views of the status and focus series:
// the per-minute grid, daily totals and per-program focus time.
package aggregator

import (
	"context"
	"database/sql"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/actionsum/activitylog/internal/clock"
	"github.com/actionsum/activitylog/internal/config"
	"github.com/actionsum/activitylog/internal/database"
	"github.com/actionsum/activitylog/internal/metrics"
	"github.com/actionsum/activitylog/internal/models"
	"github.com/actionsum/activitylog/pkg/utils"
)

// Store is the read side of database.Store.
type Store interface {
	ReadStatusDay(ctx context.Context, day, now time.Time) (database.StatusDay, error)
	FocusTotals(ctx context.Context, day, now time.Time) ([]database.FocusTotal, error)
	OpenStatus(ctx context.Context) (*models.StatusInterval, error)
	OpenFocus(ctx context.Context) (*models.FocusInterval, error)
}

// dayView is everything computed for one day from the status series.
type dayView struct {
	totals models.DayTotals
	grid   models.Grid
	open   bool // an interval starting that day is still open
}

// Aggregator answers day-scoped queries. Past days without open intervals
// can no longer change and are kept in an LRU cache.
type Aggregator struct {
	store     Store
	clock     clock.Clock
	logger    zerolog.Logger
	workStart int
	workEnd   int
	cache     *lru.Cache[string, dayView]
}

// New creates an aggregator using the configured working hours and cache size.
func New(store Store, cfg *config.Config, logger zerolog.Logger) (*Aggregator, error) {
	start, end, err := cfg.WorkingHours()
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		store:     store,
		clock:     clock.Real{},
		logger:    logger.With().Str("component", "aggregator").Logger(),
		workStart: start,
		workEnd:   end,
	}

	if cfg.Timeline.CacheDays > 0 {
		a.cache, err = lru.New[string, dayView](cfg.Timeline.CacheDays)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create day cache")
		}
	}
	return a, nil
}

// WithClock replaces the time source used for open intervals.
func (a *Aggregator) WithClock(c clock.Clock) *Aggregator {
	a.clock = c
	return a
}

// DayTotals returns total, active and idle time for intervals starting on
// day. Malformed rows degrade the result to zeros instead of failing.
func (a *Aggregator) DayTotals(ctx context.Context, day time.Time) (models.DayTotals, error) {
	v, err := a.view(ctx, day)
	if err != nil {
		return models.DayTotals{}, err
	}
	return v.totals, nil
}

// Grid returns the per-minute status of day.
func (a *Aggregator) Grid(ctx context.Context, day time.Time) (models.Grid, error) {
	v, err := a.view(ctx, day)
	if err != nil {
		return models.Grid{}, err
	}
	return v.grid, nil
}

// Snapshot returns the totals and grid of day along with the currently open
// intervals of both series.
func (a *Aggregator) Snapshot(ctx context.Context, day time.Time) (models.Snapshot, error) {
	v, err := a.view(ctx, day)
	if err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{Totals: v.totals, Grid: v.grid}
	if snap.OpenStatus, err = a.store.OpenStatus(ctx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.OpenFocus, err = a.store.OpenFocus(ctx); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

// Programs returns focus time per program for intervals starting on day,
// longest first.
func (a *Aggregator) Programs(ctx context.Context, day time.Time) ([]models.ProgramSummary, error) {
	totals, err := a.store.FocusTotals(ctx, day, a.clock.Now())
	if err != nil {
		if database.IsAggregation(err) {
			metrics.AggregationErrors.Inc()
			a.logger.Warn().Err(err).Str("day", day.Format(models.DateLayout)).Msg("Skipping focus summary")
			return nil, nil
		}
		return nil, err
	}

	var sum int64
	for _, t := range totals {
		sum += t.Seconds
	}

	programs := make([]models.ProgramSummary, 0, len(totals))
	for _, t := range totals {
		programs = append(programs, models.ProgramSummary{
			Program:       programName(t.Program),
			TotalSeconds:  t.Seconds,
			TotalMinutes:  float64(t.Seconds) / 60,
			TotalHours:    float64(t.Seconds) / 3600,
			IntervalCount: t.Intervals,
			Percentage:    utils.Percentage(t.Seconds, sum),
		})
	}
	return programs, nil
}

func programName(p sql.NullString) string {
	if !p.Valid || p.String == "" {
		return "(none)"
	}
	return p.String
}

func (a *Aggregator) view(ctx context.Context, day time.Time) (dayView, error) {
	now := a.clock.Now()
	day = models.StartOfDay(day)
	key := day.Format(models.DateLayout)

	if a.cache != nil {
		if v, ok := a.cache.Get(key); ok {
			metrics.DayCacheHits.Inc()
			return v, nil
		}
	}
	metrics.DayCacheMisses.Inc()

	sd, err := a.store.ReadStatusDay(ctx, day, now)
	if err != nil {
		return dayView{}, err
	}

	grid, open := a.grid(sd, day, now)
	v := dayView{totals: a.totals(sd, day), grid: grid, open: open}
	if a.cache != nil && !open && !v.totals.Degraded && day.Before(models.StartOfDay(now)) {
		a.cache.Add(key, v)
	}
	return v, nil
}

func (a *Aggregator) totals(sd database.StatusDay, day time.Time) models.DayTotals {
	if sd.TotalsErr != nil {
		metrics.AggregationErrors.Inc()
		a.logger.Warn().Err(sd.TotalsErr).Str("day", day.Format(models.DateLayout)).Msg("Day totals degraded")
		return NewTotals(day, 0, 0, true)
	}
	return NewTotals(day, sd.Totals[models.StatusActive], sd.Totals[models.StatusIdle], false)
}

// NewTotals derives the formatted totals of a day from its active and idle
// seconds. The total is their sum, so the three always agree in seconds.
func NewTotals(day time.Time, active, idle int64, degraded bool) models.DayTotals {
	total := active + idle
	return models.DayTotals{
		Day:            day.Format(models.DateLayout),
		TotalSeconds:   total,
		ActiveSeconds:  active,
		IdleSeconds:    idle,
		IdlePercentage: utils.Percentage(idle, total),
		Total:          utils.FormatHHMM(total),
		Active:         utils.FormatHHMM(active),
		Idle:           utils.FormatHHMM(idle),
		Degraded:       degraded,
	}
}
