package models

import (
	"database/sql"

	"github.com/pkg/errors"
)

// Status is the classification of a user session at a point in time.
type Status string

const (
	StatusActive Status = "active"
	StatusIdle   Status = "idle"
)

// Valid reports whether s is a recorded status. The zero value means no
// status has been observed yet.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusIdle
}

// StatusInterval is one row of the active/idle series.
type StatusInterval struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Status    Status         `gorm:"type:text;not null;index" json:"status"`
	StartedAt string         `gorm:"not null;index" json:"-"`
	EndedAt   sql.NullString `gorm:"index" json:"-"`

	Span Span `gorm:"-" json:"span"`
}

// ParseSpan decodes the stored boundaries into Span. A row whose status is
// neither active nor idle is rejected like an unparseable timestamp.
func (i *StatusInterval) ParseSpan() error {
	if !i.Status.Valid() {
		return errors.Errorf("unknown status %q", i.Status)
	}
	span, err := parseSpan(i.StartedAt, i.EndedAt)
	if err != nil {
		return err
	}
	i.Span = span
	return nil
}
