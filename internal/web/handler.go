package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/actionsum/activitylog/internal/clock"
	"github.com/actionsum/activitylog/internal/config"
	"github.com/actionsum/activitylog/internal/metrics"
	"github.com/actionsum/activitylog/internal/models"
	"github.com/actionsum/activitylog/internal/reporter"
	"github.com/actionsum/activitylog/pkg/utils"
)

// Source is the aggregator surface served over HTTP.
type Source interface {
	reporter.Source
	Snapshot(ctx context.Context, day time.Time) (models.Snapshot, error)
}

type Handler struct {
	config   *config.Config
	source   Source
	reporter *reporter.Reporter
	clock    clock.Clock
	logger   zerolog.Logger
}

func NewHandler(cfg *config.Config, source Source, logger zerolog.Logger) *Handler {
	return &Handler{
		config:   cfg,
		source:   source,
		reporter: reporter.New(cfg, source),
		clock:    clock.Real{},
		logger:   logger,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/day", h.handleDay)
	mux.HandleFunc("/api/timeline", h.handleTimeline)
	mux.HandleFunc("/api/focus", h.handleFocus)
	mux.HandleFunc("/api/report", h.handleReport)
	mux.HandleFunc("/api/status", h.handleStatus)

	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/", h.handleIndex)
}

// day resolves the ?date= parameter, defaulting to today.
func (h *Handler) day(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return time.Time{}, false
	}
	day, err := reporter.ParseDay(r.URL.Query().Get("date"), h.clock.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return time.Time{}, false
	}
	return day, true
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error().Err(err).Msg(what)
	http.Error(w, fmt.Sprintf("%s: %v", what, err), http.StatusInternalServerError)
}

func (h *Handler) handleDay(w http.ResponseWriter, r *http.Request) {
	day, ok := h.day(w, r)
	if !ok {
		return
	}

	totals, err := h.source.DayTotals(r.Context(), day)
	if err != nil {
		h.fail(w, "Failed to compute day totals", err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondTotalsHTML(w, totals)
		return
	}
	respondJSON(w, totals)
}

func (h *Handler) respondTotalsHTML(w http.ResponseWriter, t models.DayTotals) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<div class="totals">
	<div><span class="label">Total</span><span class="value">%s</span></div>
	<div><span class="label">Active</span><span class="value">%s</span></div>
	<div><span class="label">Idle</span><span class="value">%s</span></div>
	<div><span class="label">Idle %%</span><span class="value">%.2f</span></div>
</div>`, t.Total, t.Active, t.Idle, t.IdlePercentage)
}

type timelineResponse struct {
	Day    string            `json:"day"`
	Grid   string            `json:"grid"`
	Legend map[string]string `json:"legend"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	day, ok := h.day(w, r)
	if !ok {
		return
	}

	grid, err := h.source.Grid(r.Context(), day)
	if err != nil {
		h.fail(w, "Failed to build timeline", err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<pre class="timeline">%s</pre>`, html.EscapeString(reporter.FormatTimeline(&grid)))
		return
	}

	legend := make(map[string]string, 4)
	for _, s := range []models.Slot{models.SlotNoData, models.SlotExpected, models.SlotActive, models.SlotIdle} {
		legend[string(s.Code())] = s.String()
	}
	respondJSON(w, timelineResponse{
		Day:    day.Format(models.DateLayout),
		Grid:   grid.Encode(),
		Legend: legend,
	})
}

func (h *Handler) handleFocus(w http.ResponseWriter, r *http.Request) {
	day, ok := h.day(w, r)
	if !ok {
		return
	}

	programs, err := h.source.Programs(r.Context(), day)
	if err != nil {
		h.fail(w, "Failed to get focus summary", err)
		return
	}

	var totalSeconds int64
	for _, p := range programs {
		totalSeconds += p.TotalSeconds
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondFocusHTML(w, programs, totalSeconds)
		return
	}

	if programs == nil {
		programs = []models.ProgramSummary{}
	}
	respondJSON(w, map[string]interface{}{
		"day":           day.Format(models.DateLayout),
		"programs":      programs,
		"total_seconds": totalSeconds,
	})
}

func (h *Handler) respondFocusHTML(w http.ResponseWriter, programs []models.ProgramSummary, totalSeconds int64) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(programs) == 0 {
		w.Write([]byte(`<div class="loading">No data available</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, p := range programs {
		fmt.Fprintf(&b, `
		<div class="app-item" style="--bar-width: %.1f%%">
			<span class="app-name">%s</span>
			<div>
				<span class="app-time">%s</span>
				<span class="app-percentage">%.1f%%</span>
			</div>
		</div>`, p.Percentage, html.EscapeString(p.Program), utils.FormatRoundedUnit(p.TotalSeconds), p.Percentage)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatRoundedUnit(totalSeconds))
	w.Write([]byte(b.String()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	day, ok := h.day(w, r)
	if !ok {
		return
	}

	report, err := h.reporter.GenerateReport(r.Context(), day)
	if err != nil {
		h.fail(w, "Failed to generate report", err)
		return
	}

	respondJSON(w, report)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := h.source.Snapshot(r.Context(), h.clock.Now())
	if err != nil {
		h.fail(w, "Failed to read current state", err)
		return
	}

	status := map[string]interface{}{
		"poll_interval":  h.config.Tracker.PollInterval.String(),
		"idle_threshold": h.config.Tracker.IdleThreshold.String(),
		"database_path":  h.config.Database.Path,
		"today":          snap.Totals,
	}
	if snap.OpenStatus != nil {
		status["status"] = snap.OpenStatus
	}
	if snap.OpenFocus != nil {
		status["focus"] = snap.OpenFocus
	}

	respondJSON(w, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
