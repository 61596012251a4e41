package tracker

import (
	"context"
	"time"

	"github.com/actionsum/activitylog/internal/database"
	"github.com/actionsum/activitylog/internal/models"
)

// FocusStore persists focus transitions.
type FocusStore interface {
	TransitionFocus(ctx context.Context, prev *database.FocusKey, next models.Focus, at time.Time) (uint, error)
}

type focusState struct {
	set       bool
	focus     models.Focus
	openStart time.Time
	openID    uint
}

func (s focusState) key() *database.FocusKey {
	if !s.set {
		return nil
	}
	return &database.FocusKey{Focus: s.focus, Start: s.openStart}
}

// FocusTracker follows the focused (program, title) pair. NoFocus is a real
// state, so the tracker needs an explicit flag for "unset".
type FocusTracker struct {
	store FocusStore
	state focusState
}

// NewFocusTracker creates a focus tracker writing to store.
func NewFocusTracker(store FocusStore) *FocusTracker {
	return &FocusTracker{store: store}
}

// Observe feeds the focus sampled at now and reports whether a new interval
// was opened. A different title under the same program is a change.
func (t *FocusTracker) Observe(ctx context.Context, focus models.Focus, now time.Time) (bool, error) {
	if t.state.set && focus == t.state.focus {
		return false, nil
	}

	now = models.Truncate(now)
	if now.Before(t.state.openStart) {
		now = t.state.openStart
	}

	id, err := t.store.TransitionFocus(ctx, t.state.key(), focus, now)
	if err != nil {
		return false, err
	}

	t.state = focusState{set: true, focus: focus, openStart: now, openID: id}
	return true, nil
}

// Current returns the focus of the open interval, if any.
func (t *FocusTracker) Current() (models.Focus, bool) {
	return t.state.focus, t.state.set
}
