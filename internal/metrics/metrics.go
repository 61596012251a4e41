// Package metrics exposes Prometheus instruments for the tracker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tracker metrics
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activitylog_ticks_total",
			Help: "Total poll loop iterations",
		},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "activitylog_tick_duration_seconds",
			Help:    "Time spent sampling and persisting per tick",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activitylog_transitions_total",
			Help: "Intervals opened, by series",
		},
		[]string{"series"},
	)

	PersistenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activitylog_persistence_errors_total",
			Help: "Failed interval writes, by series",
		},
		[]string{"series"},
	)

	SamplerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activitylog_sampler_failures_total",
			Help: "Sampler calls that failed and fell back to a default",
		},
		[]string{"sampler"},
	)

	CurrentStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "activitylog_current_status",
			Help: "1 for the status of the open interval, 0 otherwise",
		},
		[]string{"status"},
	)

	// Aggregation metrics
	AggregationErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activitylog_aggregation_errors_total",
			Help: "Day aggregations that hit malformed rows",
		},
	)

	DayCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activitylog_day_cache_hits_total",
			Help: "Aggregations served from the closed-day cache",
		},
	)

	DayCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activitylog_day_cache_misses_total",
			Help: "Aggregations computed from the store",
		},
	)

	StaleIntervalsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activitylog_stale_intervals_closed_total",
			Help: "Open intervals left by a previous run and closed at startup",
		},
	)
)

// Series labels
const (
	SeriesStatus = "status"
	SeriesFocus  = "focus"
	SeriesStale  = "stale"
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		TickDuration,
		TransitionsTotal,
		PersistenceErrors,
		SamplerFailures,
		CurrentStatus,
		AggregationErrors,
		DayCacheHits,
		DayCacheMisses,
		StaleIntervalsClosed,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
