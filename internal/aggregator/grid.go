package aggregator

import (
	"time"

	"github.com/actionsum/activitylog/internal/database"
	"github.com/actionsum/activitylog/internal/models"
)

func (a *Aggregator) grid(sd database.StatusDay, day, now time.Time) (models.Grid, bool) {
	grid := NewGrid(a.workStart, a.workEnd)
	open := false

	for _, err := range sd.Skipped {
		a.logger.Debug().Err(err).Msg("Skipping malformed interval")
	}
	for _, iv := range sd.Intervals {
		open = open || iv.Span.Open()
		Mark(&grid, day, iv.Span, models.SlotFor(iv.Status), now)
	}
	return grid, open
}

// NewGrid returns an empty grid with the minutes [workStart, workEnd) marked
// as expected.
func NewGrid(workStart, workEnd int) models.Grid {
	var g models.Grid
	for m := max(workStart, 0); m < min(workEnd, models.MinutesPerDay); m++ {
		g[m] = models.SlotExpected
	}
	return g
}

// Mark paints every minute of day touched by span with slot. A span covers
// the minutes from its start through the minute holding its last second, so
// 09:00-09:02 covers 09:00 and 09:01. A zero-length span still marks its
// start minute; a span running past midnight stops at 23:59.
func Mark(g *models.Grid, day time.Time, span models.Span, slot models.Slot, now time.Time) {
	if !models.SameDay(span.Start, day) {
		return
	}

	first := models.MinuteOfDay(span.Start)
	last := first

	end := span.EffectiveEnd(now)
	if end.After(span.Start) {
		lastSecond := end.Add(-time.Second)
		switch {
		case !models.SameDay(lastSecond, day):
			last = models.MinutesPerDay - 1
		default:
			last = max(first, models.MinuteOfDay(lastSecond))
		}
	}

	for m := first; m <= last; m++ {
		g[m] = slot
	}
}
