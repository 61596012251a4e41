package models

import (
	"database/sql"
	"encoding/json"
)

// Focus identifies what held focus: the owning program and the window or
// document title. Either part may be null; the zero value means nothing was
// focused or the focus could not be sampled.
type Focus struct {
	Program sql.NullString
	Title   sql.NullString
}

// NoFocus is the (null, null) pair.
var NoFocus = Focus{}

// NewFocus builds a focus pair. An empty program is recorded as null.
func NewFocus(program, title string) Focus {
	return Focus{
		Program: sql.NullString{String: program, Valid: program != ""},
		Title:   sql.NullString{String: title, Valid: program != "" || title != ""},
	}
}

// Label renders the pair for logs and reports.
func (f Focus) Label() string {
	switch {
	case !f.Program.Valid && !f.Title.Valid:
		return "(none)"
	case !f.Title.Valid || f.Title.String == "":
		return f.Program.String
	case !f.Program.Valid:
		return f.Title.String
	}
	return f.Program.String + " - " + f.Title.String
}

func (f Focus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Program *string `json:"program"`
		Title   *string `json:"title"`
	}{nullable(f.Program), nullable(f.Title)})
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// FocusInterval is one row of the focus series.
type FocusInterval struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Program   sql.NullString `gorm:"index" json:"-"`
	Title     sql.NullString `json:"-"`
	StartedAt string         `gorm:"not null;index" json:"-"`
	EndedAt   sql.NullString `gorm:"index" json:"-"`

	Span Span `gorm:"-" json:"span"`
}

// Focus returns the pair this interval records.
func (i FocusInterval) Focus() Focus {
	return Focus{Program: i.Program, Title: i.Title}
}

// ParseSpan decodes the stored boundaries into Span.
func (i *FocusInterval) ParseSpan() error {
	span, err := parseSpan(i.StartedAt, i.EndedAt)
	if err != nil {
		return err
	}
	i.Span = span
	return nil
}

func (i FocusInterval) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    uint  `json:"id"`
		Focus Focus `json:"focus"`
		Span  Span  `json:"span"`
	}{i.ID, i.Focus(), i.Span})
}

// Heartbeat records the last instant the poll loop completed a tick. The
// table holds a single row with ID 1.
type Heartbeat struct {
	ID     uint   `gorm:"primaryKey"`
	SeenAt string `gorm:"not null"`
}
