package models

import "time"

// ProgramSummary is the focused time of one program within a report.
type ProgramSummary struct {
	Program       string  `json:"program"`
	TotalSeconds  int64   `json:"total_seconds"`
	TotalMinutes  float64 `json:"total_minutes"`
	TotalHours    float64 `json:"total_hours"`
	IntervalCount int     `json:"interval_count"`
	Percentage    float64 `json:"percentage,omitempty"`
}

// Report is the per-program focus breakdown of one day next to its status
// totals.
type Report struct {
	Day          string           `json:"day"`
	Status       DayTotals        `json:"status"`
	Programs     []ProgramSummary `json:"programs"`
	TotalSeconds int64            `json:"total_seconds"`
	GeneratedAt  time.Time        `json:"generated_at"`
}
