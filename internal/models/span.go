package models

import (
	"database/sql"
	"time"
)

// Span is the parsed [Start, End) of a stored interval. End is nil while the
// interval is open.
type Span struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Open reports whether the interval is still ongoing.
func (s Span) Open() bool {
	return s.End == nil
}

// EffectiveEnd is End for closed intervals and now for open ones.
func (s Span) EffectiveEnd(now time.Time) time.Time {
	if s.End != nil {
		return *s.End
	}
	return now
}

// Seconds returns the whole-second length of the span, treating an open span
// as ending at now. Spans that end before they start count as zero.
func (s Span) Seconds(now time.Time) int64 {
	d := int64(s.EffectiveEnd(now).Sub(s.Start) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

func parseSpan(startedAt string, endedAt sql.NullString) (Span, error) {
	start, err := ParseTimestamp(startedAt)
	if err != nil {
		return Span{}, err
	}
	span := Span{Start: start}
	if endedAt.Valid {
		end, err := ParseTimestamp(endedAt.String)
		if err != nil {
			return Span{}, err
		}
		span.End = &end
	}
	return span, nil
}
