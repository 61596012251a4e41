package tracker

import (
	"context"
	"time"

	"github.com/actionsum/activitylog/internal/database"
	"github.com/actionsum/activitylog/internal/models"
)

// StatusStore persists status transitions.
type StatusStore interface {
	TransitionStatus(ctx context.Context, prev *database.StatusKey, next models.Status, at time.Time) (uint, error)
}

// statusState is the tracker's view of the open status interval. The zero
// value is "unset": nothing has been recorded by this process yet.
type statusState struct {
	status    models.Status
	openStart time.Time
	openID    uint
}

func (s statusState) key() *database.StatusKey {
	if s.status == "" {
		return nil
	}
	return &database.StatusKey{Status: s.status, Start: s.openStart}
}

// StatusTracker is the Active/Idle state machine.
type StatusTracker struct {
	store     StatusStore
	threshold time.Duration
	state     statusState
}

// NewStatusTracker creates a tracker classifying samples against threshold.
func NewStatusTracker(store StatusStore, threshold time.Duration) *StatusTracker {
	return &StatusTracker{store: store, threshold: threshold}
}

// Classify maps an idle-seconds sample to a status.
func Classify(idleSeconds float64, threshold time.Duration) models.Status {
	if idleSeconds >= threshold.Seconds() {
		return models.StatusIdle
	}
	return models.StatusActive
}

// Observe feeds one sample taken at now. It reports whether a new interval
// was opened. On error the state is left untouched so the next sample
// retries the same transition.
func (t *StatusTracker) Observe(ctx context.Context, idleSeconds float64, now time.Time) (bool, error) {
	next := Classify(idleSeconds, t.threshold)
	if next == t.state.status {
		return false, nil
	}

	now = models.Truncate(now)
	if now.Before(t.state.openStart) {
		now = t.state.openStart
	}

	id, err := t.store.TransitionStatus(ctx, t.state.key(), next, now)
	if err != nil {
		return false, err
	}

	t.state = statusState{status: next, openStart: now, openID: id}
	return true, nil
}

// Current returns the status of the open interval, if any.
func (t *StatusTracker) Current() (models.Status, bool) {
	return t.state.status, t.state.status != ""
}

// OpenSince returns the start of the open interval.
func (t *StatusTracker) OpenSince() time.Time {
	return t.state.openStart
}
