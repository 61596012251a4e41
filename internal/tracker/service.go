package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/actionsum/activitylog/internal/clock"
	"github.com/actionsum/activitylog/internal/config"
	"github.com/actionsum/activitylog/internal/metrics"
	"github.com/actionsum/activitylog/internal/models"
)

// Store is the subset of database.Store the poll loop writes to.
type Store interface {
	StatusStore
	FocusStore
	Heartbeat(ctx context.Context, at time.Time) error
	CloseStale(ctx context.Context) (int64, error)
}

// Service drives both trackers from a fixed-period ticker.
type Service struct {
	config  *config.Config
	store   Store
	sampler Sampler
	clock   clock.Clock
	logger  zerolog.Logger

	status *StatusTracker
	focus  *FocusTracker

	// last focus successfully handed to the focus tracker
	lastFed models.Focus
	fed     bool

	// intervals left open by a previous run have been closed
	staleClosed bool

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

func NewService(cfg *config.Config, store Store, sampler Sampler, logger zerolog.Logger) *Service {
	return &Service{
		config:   cfg,
		store:    store,
		sampler:  sampler,
		clock:    clock.Real{},
		logger:   logger.With().Str("component", "tracker").Logger(),
		status:   NewStatusTracker(store, cfg.Tracker.IdleThreshold),
		focus:    NewFocusTracker(store),
		stopChan: make(chan struct{}),
	}
}

// WithClock replaces the time source. Tests use it to pin sample times.
func (s *Service) WithClock(c clock.Clock) *Service {
	s.clock = c
	return s
}

// Start closes intervals left open by a previous run, samples once, and then
// samples every poll interval until ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("tracker is already running")
	}
	defer s.running.Store(false)

	s.logger.Info().
		Dur("poll_interval", s.config.Tracker.PollInterval).
		Dur("idle_threshold", s.config.Tracker.IdleThreshold).
		Msg("Starting tracker")

	s.closeStale(ctx)

	ticker := time.NewTicker(s.config.Tracker.PollInterval)
	defer ticker.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Tracker stopped by context")
			s.finish()
			return ctx.Err()

		case <-s.stopChan:
			s.logger.Info().Msg("Tracker stopped")
			s.finish()
			return nil

		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop ends a running Start loop. Calling it more than once is harmless.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Tick runs one sampling step. Each series is persisted independently: a
// failed status write does not hold back the focus series, and the failed
// tracker retries on the next tick.
func (s *Service) Tick(ctx context.Context) {
	began := time.Now()
	defer func() {
		metrics.TicksTotal.Inc()
		metrics.TickDuration.Observe(time.Since(began).Seconds())
	}()

	// No interval may be opened while one from a previous run is still open.
	if !s.staleClosed && !s.closeStale(ctx) {
		s.logger.Warn().Msg("Skipping tick until stale intervals are closed")
		return
	}

	now := s.clock.Now()

	idle := s.sampler.IdleSeconds()
	changed, err := s.status.Observe(ctx, idle, now)
	switch {
	case err != nil:
		metrics.PersistenceErrors.WithLabelValues(metrics.SeriesStatus).Inc()
		s.logger.Error().Err(err).Msg("Failed to record status transition")
	case changed:
		status, _ := s.status.Current()
		metrics.TransitionsTotal.WithLabelValues(metrics.SeriesStatus).Inc()
		metrics.CurrentStatus.WithLabelValues(string(models.StatusActive)).Set(boolGauge(status == models.StatusActive))
		metrics.CurrentStatus.WithLabelValues(string(models.StatusIdle)).Set(boolGauge(status == models.StatusIdle))
		s.logger.Info().Str("status", string(status)).Float64("idle_seconds", idle).Msg("Status changed")
	}

	focus := s.sampler.Focused()
	if !s.fed || focus != s.lastFed {
		changed, err := s.focus.Observe(ctx, focus, now)
		switch {
		case err != nil:
			metrics.PersistenceErrors.WithLabelValues(metrics.SeriesFocus).Inc()
			s.logger.Error().Err(err).Msg("Failed to record focus transition")
		default:
			s.lastFed, s.fed = focus, true
			if changed {
				metrics.TransitionsTotal.WithLabelValues(metrics.SeriesFocus).Inc()
				s.logger.Debug().Str("focus", focus.Label()).Msg("Focus changed")
			}
		}
	}

	if err := s.store.Heartbeat(ctx, models.Truncate(now)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write heartbeat")
	}
}

// closeStale closes intervals left open by a previous process and reports
// whether that succeeded.
func (s *Service) closeStale(ctx context.Context) bool {
	n, err := s.store.CloseStale(ctx)
	if err != nil {
		metrics.PersistenceErrors.WithLabelValues(metrics.SeriesStale).Inc()
		s.logger.Warn().Err(err).Msg("Failed to close stale intervals")
		return false
	}
	s.staleClosed = true
	if n > 0 {
		metrics.StaleIntervalsClosed.Add(float64(n))
		s.logger.Info().Int64("count", n).Msg("Closed intervals left open by a previous run")
	}
	return true
}

// finish records a last heartbeat so the next start closes the open
// intervals at shutdown time.
func (s *Service) finish() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Heartbeat(ctx, models.Truncate(s.clock.Now())); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write final heartbeat")
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
