package models

import (
	"time"
)

const (
	// TimestampLayout is the on-disk format of every interval boundary.
	// Values are local wall-clock time at one-second granularity.
	TimestampLayout = "2006-01-02 15:04:05"

	// DateLayout identifies a calendar day.
	DateLayout = "2006-01-02"
)

// FormatTimestamp renders t in the local zone using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(TimestampLayout)
}

// ParseTimestamp parses a stored boundary as local wall-clock time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}

// Truncate drops sub-second precision and moves t into the local zone.
func Truncate(t time.Time) time.Time {
	return t.In(time.Local).Truncate(time.Second)
}

// StartOfDay returns local midnight of the day holding t.
func StartOfDay(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// DayRange returns the stored-format bounds [from, to) of the day holding t.
// Boundaries sort lexicographically, so they can be compared as text.
func DayRange(t time.Time) (from, to string) {
	start := StartOfDay(t)
	end := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, time.Local)
	return start.Format(TimestampLayout), end.Format(TimestampLayout)
}

// ParseDay parses a YYYY-MM-DD string as a local day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	a, b = a.In(time.Local), b.In(time.Local)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// MinuteOfDay returns the minute index of t within its local day.
func MinuteOfDay(t time.Time) int {
	t = t.In(time.Local)
	return t.Hour()*60 + t.Minute()
}
