package models

import "strings"

// MinutesPerDay is the number of slots in a Grid.
const MinutesPerDay = 24 * 60

// Slot is the marker of one minute of a day.
type Slot uint8

const (
	SlotNoData   Slot = iota // no interval touches the minute
	SlotExpected             // inside working hours but nothing recorded
	SlotActive
	SlotIdle
)

var slotCodes = [...]byte{SlotNoData: '.', SlotExpected: '-', SlotActive: 'A', SlotIdle: 'I'}

// Code is the single-character encoding used by the timeline API.
func (s Slot) Code() byte {
	if int(s) < len(slotCodes) {
		return slotCodes[s]
	}
	return '?'
}

func (s Slot) String() string {
	switch s {
	case SlotNoData:
		return "no-data"
	case SlotExpected:
		return "expected"
	case SlotActive:
		return "active"
	case SlotIdle:
		return "idle"
	}
	return "unknown"
}

// SlotFor maps a status to its grid marker. Unknown statuses map to
// SlotNoData.
func SlotFor(s Status) Slot {
	switch s {
	case StatusActive:
		return SlotActive
	case StatusIdle:
		return SlotIdle
	}
	return SlotNoData
}

// Grid is the per-minute status of one day, index 0 being 00:00.
type Grid [MinutesPerDay]Slot

// Encode renders the grid as MinutesPerDay slot codes.
func (g *Grid) Encode() string {
	var b strings.Builder
	b.Grow(MinutesPerDay)
	for _, s := range g {
		b.WriteByte(s.Code())
	}
	return b.String()
}

// Count returns how many slots hold s.
func (g *Grid) Count(s Slot) int {
	n := 0
	for _, v := range g {
		if v == s {
			n++
		}
	}
	return n
}

// DayTotals are the aggregate durations of one day of the status series.
type DayTotals struct {
	Day            string  `json:"day"`
	TotalSeconds   int64   `json:"total_seconds"`
	ActiveSeconds  int64   `json:"active_seconds"`
	IdleSeconds    int64   `json:"idle_seconds"`
	IdlePercentage float64 `json:"idle_percentage"`
	Total          string  `json:"total"`
	Active         string  `json:"active"`
	Idle           string  `json:"idle"`
	Degraded       bool    `json:"degraded,omitempty"`
}

// Snapshot bundles what a presentation consumer needs for one day.
type Snapshot struct {
	Totals     DayTotals       `json:"totals"`
	Grid       Grid            `json:"-"`
	OpenStatus *StatusInterval `json:"open_status,omitempty"`
	OpenFocus  *FocusInterval  `json:"open_focus,omitempty"`
}
