package tracker

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/actionsum/activitylog/internal/metrics"
	"github.com/actionsum/activitylog/internal/models"
	"github.com/actionsum/activitylog/pkg/window"
)

// IdleSampler reports seconds since the last user input. It never fails.
type IdleSampler interface {
	IdleSeconds() float64
}

// FocusSampler reports the focused (program, title) pair. It never fails.
type FocusSampler interface {
	Focused() models.Focus
}

// Sampler is everything the poll loop reads per tick.
type Sampler interface {
	IdleSampler
	FocusSampler
}

// DetectorSampler adapts a window.Detector to the Sampler contract,
// substituting 0 idle seconds and NoFocus when the platform call fails.
type DetectorSampler struct {
	detector window.Detector
	logger   zerolog.Logger
}

// NewDetectorSampler wraps detector.
func NewDetectorSampler(detector window.Detector, logger zerolog.Logger) *DetectorSampler {
	return &DetectorSampler{
		detector: detector,
		logger:   logger.With().Str("component", "sampler").Logger(),
	}
}

// IdleSeconds returns the session idle time. A locked session counts as
// idle regardless of its input timer.
func (s *DetectorSampler) IdleSeconds() float64 {
	info, err := s.detector.GetIdleInfo()
	if err != nil || info == nil {
		metrics.SamplerFailures.WithLabelValues("idle").Inc()
		s.logger.Debug().Err(err).Msg("idle sampling failed, assuming active")
		return 0
	}
	if info.IsLocked {
		return math.Inf(1)
	}
	if info.IdleSeconds < 0 || math.IsNaN(info.IdleSeconds) {
		return 0
	}
	return info.IdleSeconds
}

// Focused returns the focused program and window title.
func (s *DetectorSampler) Focused() models.Focus {
	info, err := s.detector.GetFocusedWindow()
	if err != nil {
		metrics.SamplerFailures.WithLabelValues("focus").Inc()
		s.logger.Debug().Err(err).Msg("focus sampling failed")
		return models.NoFocus
	}
	if info == nil {
		return models.NoFocus
	}
	return models.NewFocus(info.Program(), info.WindowTitle)
}
