package utils

import (
	"fmt"
	"math"
)

// FormatRoundedUnit renders a duration in its largest whole unit: 45s, 12m, 3h.
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%dh", int64(seconds/3600))
	}
	return fmt.Sprintf("%dm", int64(seconds/60))
}

// FormatHHMM renders elapsed seconds as HH:MM, truncating leftover seconds.
// Hours are not capped at 24; negative input renders as 00:00.
func FormatHHMM(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/3600, seconds%3600/60)
}

// Percentage returns 100*part/whole rounded to two decimals, or 0 when whole
// is not positive.
func Percentage(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(whole)) / 100
}
