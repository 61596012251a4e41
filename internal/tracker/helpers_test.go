package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/activitylog/internal/database"
	"github.com/actionsum/activitylog/internal/models"
)

type memStatus struct {
	status models.Status
	start  time.Time
	end    *time.Time
}

type memFocus struct {
	focus models.Focus
	start time.Time
	end   *time.Time
}

// memStore mimics database.Store semantics in memory.
type memStore struct {
	mu         sync.Mutex
	status     []memStatus
	focus      []memFocus
	fail       bool
	focusCalls int
	heartbeats []time.Time
	staleCalls int
	staleFails int // CloseStale fails this many more times
}

func (m *memStore) setFail(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

func (m *memStore) TransitionStatus(_ context.Context, prev *database.StatusKey, next models.Status, at time.Time) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return 0, &database.PersistenceError{Op: "transition status", Err: errors.New("disk I/O error")}
	}
	if prev != nil {
		for i := range m.status {
			iv := &m.status[i]
			if iv.end == nil && iv.status == prev.Status && iv.start.Equal(prev.Start) {
				end := at
				iv.end = &end
			}
		}
	}
	m.status = append(m.status, memStatus{status: next, start: at})
	return uint(len(m.status)), nil
}

func (m *memStore) TransitionFocus(_ context.Context, prev *database.FocusKey, next models.Focus, at time.Time) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focusCalls++
	if m.fail {
		return 0, &database.PersistenceError{Op: "transition focus", Err: errors.New("disk I/O error")}
	}
	if prev != nil {
		for i := range m.focus {
			iv := &m.focus[i]
			if iv.end == nil && iv.focus == prev.Focus && iv.start.Equal(prev.Start) {
				end := at
				iv.end = &end
			}
		}
	}
	m.focus = append(m.focus, memFocus{focus: next, start: at})
	return uint(len(m.focus)), nil
}

func (m *memStore) Heartbeat(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats = append(m.heartbeats, at)
	return nil
}

func (m *memStore) CloseStale(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleCalls++
	if m.staleFails > 0 {
		m.staleFails--
		return 0, &database.PersistenceError{Op: "close stale intervals", Err: errors.New("database is locked")}
	}
	return 0, nil
}

func (m *memStore) openStatusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, iv := range m.status {
		if iv.end == nil {
			n++
		}
	}
	return n
}

func (m *memStore) openFocusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, iv := range m.focus {
		if iv.end == nil {
			n++
		}
	}
	return n
}

func (m *memStore) statusLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.status)
}

// scriptedSampler replays fixed samples, repeating the last one.
type scriptedSampler struct {
	mu    sync.Mutex
	idle  []float64
	focus []models.Focus
	i, j  int
}

func (s *scriptedSampler) IdleSeconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.idle) == 0 {
		return 0
	}
	v := s.idle[min(s.i, len(s.idle)-1)]
	s.i++
	return v
}

func (s *scriptedSampler) Focused() models.Focus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.focus) == 0 {
		return models.NoFocus
	}
	v := s.focus[min(s.j, len(s.focus)-1)]
	s.j++
	return v
}

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
