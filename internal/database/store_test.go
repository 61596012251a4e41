package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/actionsum/activitylog/internal/models"
)

func newTestStore(t *testing.T) (*Store, *DB) {
	t.Helper()

	db, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	return NewStore(db), db
}

func at(day, hh, mm, ss int) time.Time {
	return time.Date(2025, 3, day, hh, mm, ss, 0, time.Local)
}

func collectStatus(t *testing.T, s *Store) []models.StatusInterval {
	t.Helper()
	var out []models.StatusInterval
	for row, err := range s.StatusIntervals(context.Background()) {
		if err != nil {
			t.Fatalf("StatusIntervals() error: %v", err)
		}
		out = append(out, row)
	}
	return out
}

func TestTransitionStatusChains(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t0, t1, t2 := at(10, 9, 0, 0), at(10, 9, 10, 0), at(10, 9, 20, 0)

	if _, err := store.TransitionStatus(ctx, nil, models.StatusActive, t0); err != nil {
		t.Fatalf("TransitionStatus() error: %v", err)
	}
	if _, err := store.TransitionStatus(ctx, &StatusKey{models.StatusActive, t0}, models.StatusIdle, t1); err != nil {
		t.Fatalf("TransitionStatus() error: %v", err)
	}
	if _, err := store.TransitionStatus(ctx, &StatusKey{models.StatusIdle, t1}, models.StatusActive, t2); err != nil {
		t.Fatalf("TransitionStatus() error: %v", err)
	}

	rows := collectStatus(t, store)
	if len(rows) != 3 {
		t.Fatalf("got %d intervals, want 3", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		prev, next := rows[i-1].Span, rows[i].Span
		if prev.End == nil || !prev.End.Equal(next.Start) {
			t.Errorf("interval %d end %v does not chain to start %v", i-1, prev.End, next.Start)
		}
	}
	if !rows[2].Span.Open() {
		t.Error("last interval should be open")
	}

	openStatus, openFocus, err := store.OpenCounts(ctx)
	if err != nil {
		t.Fatalf("OpenCounts() error: %v", err)
	}
	if openStatus != 1 || openFocus != 0 {
		t.Errorf("OpenCounts() = %d, %d, want 1, 0", openStatus, openFocus)
	}
}

func TestCloseStatusIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	start, end := at(10, 9, 0, 0), at(10, 9, 5, 0)
	if _, err := store.AppendStatus(ctx, models.StatusActive, start); err != nil {
		t.Fatalf("AppendStatus() error: %v", err)
	}

	// Wrong key: nothing closes.
	if err := store.CloseStatus(ctx, models.StatusIdle, start, end); err != nil {
		t.Fatalf("CloseStatus() error: %v", err)
	}
	if rows := collectStatus(t, store); !rows[0].Span.Open() {
		t.Fatal("interval closed by non-matching key")
	}

	for i := 0; i < 2; i++ {
		if err := store.CloseStatus(ctx, models.StatusActive, start, end.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("CloseStatus() error: %v", err)
		}
	}
	rows := collectStatus(t, store)
	if rows[0].Span.End == nil || !rows[0].Span.End.Equal(end) {
		t.Errorf("end = %v, want %v (second close must not move it)", rows[0].Span.End, end)
	}
}

func TestTransitionFocusWithNullParts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t0, t1, t2 := at(10, 9, 0, 0), at(10, 9, 1, 0), at(10, 9, 2, 0)
	editor := models.NewFocus("code", "main.go")

	if _, err := store.TransitionFocus(ctx, nil, models.NoFocus, t0); err != nil {
		t.Fatalf("TransitionFocus() error: %v", err)
	}
	if _, err := store.TransitionFocus(ctx, &FocusKey{models.NoFocus, t0}, editor, t1); err != nil {
		t.Fatalf("TransitionFocus() error: %v", err)
	}
	if _, err := store.TransitionFocus(ctx, &FocusKey{editor, t1}, models.NewFocus("code", "go.mod"), t2); err != nil {
		t.Fatalf("TransitionFocus() error: %v", err)
	}

	var rows []models.FocusInterval
	for row, err := range store.FocusIntervals(ctx) {
		if err != nil {
			t.Fatalf("FocusIntervals() error: %v", err)
		}
		rows = append(rows, row)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d focus intervals, want 3", len(rows))
	}
	if rows[0].Focus() != models.NoFocus || rows[0].Span.End == nil {
		t.Errorf("null focus interval not closed: %+v", rows[0])
	}
	if rows[1].Span.End == nil || !rows[1].Span.End.Equal(t2) {
		t.Errorf("editor interval end = %v, want %v", rows[1].Span.End, t2)
	}

	open, err := store.OpenFocus(ctx)
	if err != nil {
		t.Fatalf("OpenFocus() error: %v", err)
	}
	if open == nil || open.Title.String != "go.mod" {
		t.Errorf("OpenFocus() = %+v, want go.mod", open)
	}
}

func TestIntervalsSkipMalformedRows(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AppendStatus(ctx, models.StatusActive, at(10, 9, 0, 0)); err != nil {
		t.Fatalf("AppendStatus() error: %v", err)
	}
	if err := db.Exec("INSERT INTO status_intervals (status, started_at, ended_at) VALUES ('idle', '2025-03-10 10:00:00', 'garbage')").Error; err != nil {
		t.Fatalf("insert malformed row: %v", err)
	}

	var good, bad int
	for _, err := range store.StatusIntervals(ctx) {
		switch {
		case err == nil:
			good++
		case IsAggregation(err):
			bad++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if good != 1 || bad != 1 {
		t.Errorf("good=%d bad=%d, want 1 and 1", good, bad)
	}

	// The sequence is restartable.
	n := 0
	for range store.StatusIntervals(ctx) {
		n++
	}
	if n != 2 {
		t.Errorf("second pass yielded %d rows, want 2", n)
	}

	if _, err := store.StatusTotals(ctx, at(10, 0, 0, 0), at(10, 12, 0, 0)); !IsAggregation(err) {
		t.Errorf("StatusTotals() error = %v, want AggregationError", err)
	}
	if _, err := store.StatusTotals(ctx, at(11, 0, 0, 0), at(11, 12, 0, 0)); err != nil {
		t.Errorf("StatusTotals() on clean day error = %v", err)
	}
}

func TestIntervalsOnDay(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.TransitionStatus(ctx, nil, models.StatusActive, at(9, 23, 50, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.TransitionStatus(ctx, &StatusKey{models.StatusActive, at(9, 23, 50, 0)}, models.StatusIdle, at(10, 0, 10, 0)); err != nil {
		t.Fatal(err)
	}

	n := 0
	for row, err := range store.StatusIntervalsOn(ctx, at(10, 12, 0, 0)) {
		if err != nil {
			t.Fatal(err)
		}
		if row.Status != models.StatusIdle {
			t.Errorf("day 10 yielded %s interval", row.Status)
		}
		n++
	}
	if n != 1 {
		t.Errorf("StatusIntervalsOn() yielded %d rows, want 1", n)
	}
}

func TestStatusTotals(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	day := at(10, 0, 0, 0)
	now := at(10, 23, 0, 0)

	totals, err := store.StatusTotals(ctx, day, now)
	if err != nil {
		t.Fatalf("StatusTotals() on empty day error: %v", err)
	}
	if len(totals) != 0 {
		t.Errorf("empty day totals = %v", totals)
	}

	t0, t1, t2 := at(10, 0, 0, 0), at(10, 0, 10, 0), at(10, 0, 20, 0)
	if _, err := store.TransitionStatus(ctx, nil, models.StatusActive, t0); err != nil {
		t.Fatal(err)
	}
	if _, err := store.TransitionStatus(ctx, &StatusKey{models.StatusActive, t0}, models.StatusIdle, t1); err != nil {
		t.Fatal(err)
	}

	// Open idle interval runs to now.
	totals, err = store.StatusTotals(ctx, day, t2)
	if err != nil {
		t.Fatalf("StatusTotals() error: %v", err)
	}
	if totals[models.StatusActive] != 600 || totals[models.StatusIdle] != 600 {
		t.Errorf("totals = %v, want 600/600", totals)
	}
}

func TestStatusTotalsCrossMidnight(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	start, end := at(9, 23, 50, 0), at(10, 0, 10, 0)
	if _, err := store.TransitionStatus(ctx, nil, models.StatusActive, start); err != nil {
		t.Fatal(err)
	}
	if err := store.CloseStatus(ctx, models.StatusActive, start, end); err != nil {
		t.Fatal(err)
	}

	// The whole interval belongs to the day it started on.
	prev, err := store.StatusTotals(ctx, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if prev[models.StatusActive] != 1200 {
		t.Errorf("start day active = %d, want 1200", prev[models.StatusActive])
	}
	next, err := store.StatusTotals(ctx, end, end)
	if err != nil {
		t.Fatal(err)
	}
	if next[models.StatusActive] != 0 {
		t.Errorf("following day active = %d, want 0", next[models.StatusActive])
	}
}

func TestStatusTotalsMatchSpanArithmetic(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Uneven second boundaries exercise truncation.
	boundaries := []time.Time{
		at(10, 8, 0, 7), at(10, 8, 13, 59), at(10, 9, 47, 1), at(10, 12, 0, 30), at(10, 17, 59, 59),
	}
	var prev *StatusKey
	status := models.StatusActive
	for _, b := range boundaries {
		if _, err := store.TransitionStatus(ctx, prev, status, b); err != nil {
			t.Fatal(err)
		}
		prev = &StatusKey{status, b}
		if status == models.StatusActive {
			status = models.StatusIdle
		} else {
			status = models.StatusActive
		}
	}

	now := at(10, 18, 30, 13)
	want := map[models.Status]int64{}
	for row, err := range store.StatusIntervalsOn(ctx, now) {
		if err != nil {
			t.Fatal(err)
		}
		want[row.Status] += row.Span.Seconds(now)
	}

	got, err := store.StatusTotals(ctx, now, now)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []models.Status{models.StatusActive, models.StatusIdle} {
		if got[s] != want[s] {
			t.Errorf("%s: SQL total %d != span total %d", s, got[s], want[s])
		}
	}
}

func TestFocusTotals(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	seq := []struct {
		focus models.Focus
		at    time.Time
	}{
		{models.NewFocus("code", "a.go"), at(10, 9, 0, 0)},
		{models.NewFocus("code", "b.go"), at(10, 9, 10, 0)},
		{models.NewFocus("firefox", "docs"), at(10, 9, 30, 0)},
		{models.NoFocus, at(10, 9, 35, 0)},
	}
	var prev *FocusKey
	for _, s := range seq {
		if _, err := store.TransitionFocus(ctx, prev, s.focus, s.at); err != nil {
			t.Fatal(err)
		}
		prev = &FocusKey{s.focus, s.at}
	}

	totals, err := store.FocusTotals(ctx, at(10, 0, 0, 0), at(10, 9, 40, 0))
	if err != nil {
		t.Fatalf("FocusTotals() error: %v", err)
	}
	if len(totals) != 3 {
		t.Fatalf("got %d programs, want 3: %+v", len(totals), totals)
	}
	if totals[0].Program.String != "code" || totals[0].Seconds != 1800 || totals[0].Intervals != 2 {
		t.Errorf("first total = %+v, want code 1800s over 2 intervals", totals[0])
	}
}

func TestCloseStale(t *testing.T) {
	tests := []struct {
		name      string
		heartbeat *time.Time
		wantEnd   time.Time
	}{
		{"no heartbeat closes at start", nil, at(10, 9, 0, 0)},
		{"heartbeat after start", ptr(at(10, 9, 42, 0)), at(10, 9, 42, 0)},
		{"heartbeat before start", ptr(at(10, 8, 0, 0)), at(10, 9, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			ctx := context.Background()

			start := at(10, 9, 0, 0)
			if _, err := store.AppendStatus(ctx, models.StatusActive, start); err != nil {
				t.Fatal(err)
			}
			if _, err := store.AppendFocus(ctx, models.NewFocus("code", ""), start); err != nil {
				t.Fatal(err)
			}
			if tt.heartbeat != nil {
				if err := store.Heartbeat(ctx, *tt.heartbeat); err != nil {
					t.Fatal(err)
				}
			}

			closed, err := store.CloseStale(ctx)
			if err != nil {
				t.Fatalf("CloseStale() error: %v", err)
			}
			if closed != 2 {
				t.Errorf("CloseStale() closed %d, want 2", closed)
			}

			rows := collectStatus(t, store)
			if rows[0].Span.End == nil || !rows[0].Span.End.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", rows[0].Span.End, tt.wantEnd)
			}
			if s, f, _ := store.OpenCounts(ctx); s != 0 || f != 0 {
				t.Errorf("OpenCounts() = %d, %d after CloseStale", s, f)
			}
		})
	}
}

func TestHeartbeatOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.LastHeartbeat(ctx); err != nil || ok {
		t.Fatalf("LastHeartbeat() on empty store = %v, %v", ok, err)
	}
	for _, ts := range []time.Time{at(10, 9, 0, 0), at(10, 9, 0, 5)} {
		if err := store.Heartbeat(ctx, ts); err != nil {
			t.Fatalf("Heartbeat() error: %v", err)
		}
	}
	got, ok, err := store.LastHeartbeat(ctx)
	if err != nil || !ok || !got.Equal(at(10, 9, 0, 5)) {
		t.Errorf("LastHeartbeat() = %v, %v, %v", got, ok, err)
	}
}

func TestConcurrentReaderSeesConsistentSeries(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var prev *StatusKey
		status := models.StatusActive
		for i := 0; i < 50; i++ {
			ts := at(10, 9, 0, 0).Add(time.Duration(i) * time.Second)
			if _, err := store.TransitionStatus(ctx, prev, status, ts); err != nil {
				t.Errorf("TransitionStatus() error: %v", err)
				return
			}
			prev = &StatusKey{status, ts}
			if status == models.StatusActive {
				status = models.StatusIdle
			} else {
				status = models.StatusActive
			}
		}
	}()

	for i := 0; i < 20; i++ {
		open, total := 0, 0
		var last models.StatusInterval
		for row, err := range store.StatusIntervals(ctx) {
			if err != nil {
				t.Fatalf("StatusIntervals() error: %v", err)
			}
			if row.Span.Open() {
				open++
			}
			last = row
			total++
		}
		if total > 0 && (open != 1 || !last.Span.Open()) {
			t.Fatalf("reader saw %d open intervals among %d, last open=%v", open, total, last.Span.Open())
		}
	}
	wg.Wait()
}

func ptr[T any](v T) *T { return &v }

func TestTotalsRejectNonCanonicalRows(t *testing.T) {
	tests := []struct {
		name   string
		status string
		start  string
		end    string
	}{
		{"T separator", "idle", "2025-03-10 10:00:00", "2025-03-10T10:30:00"},
		{"hour 24", "idle", "2025-03-10 10:00:00", "2025-03-10 24:00:00"},
		{"february 30", "idle", "2025-03-10 10:00:00", "2025-02-30 10:30:00"},
		{"unknown status", "Ativo", "2025-03-10 10:00:00", "2025-03-10 10:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, db := newTestStore(t)
			ctx := context.Background()

			err := db.Exec("INSERT INTO status_intervals (status, started_at, ended_at) VALUES (?, ?, ?)", tt.status, tt.start, tt.end).Error
			if err != nil {
				t.Fatalf("insert: %v", err)
			}

			if _, err := store.StatusTotals(ctx, at(10, 0, 0, 0), at(10, 12, 0, 0)); !IsAggregation(err) {
				t.Errorf("StatusTotals() error = %v, want AggregationError", err)
			}
			for _, err := range store.StatusIntervals(ctx) {
				if !IsAggregation(err) {
					t.Errorf("StatusIntervals() error = %v, want AggregationError", err)
				}
			}
		})
	}
}

func TestFocusTotalsRejectNonCanonicalRows(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	err := db.Exec("INSERT INTO focus_intervals (program, started_at, ended_at) VALUES ('code', '2025-03-10 10:00:00', '2025-03-10T10:30:00')").Error
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.FocusTotals(ctx, at(10, 0, 0, 0), at(10, 12, 0, 0)); !IsAggregation(err) {
		t.Errorf("FocusTotals() error = %v, want AggregationError", err)
	}
}

func TestReadStatusDay(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	if _, err := store.TransitionStatus(ctx, nil, models.StatusActive, at(10, 9, 0, 0)); err != nil {
		t.Fatal(err)
	}
	prev := &StatusKey{models.StatusActive, at(10, 9, 0, 0)}
	if _, err := store.TransitionStatus(ctx, prev, models.StatusIdle, at(10, 9, 10, 0)); err != nil {
		t.Fatal(err)
	}

	now := at(10, 9, 15, 0)
	sd, err := store.ReadStatusDay(ctx, now, now)
	if err != nil {
		t.Fatalf("ReadStatusDay() error: %v", err)
	}
	if sd.TotalsErr != nil || len(sd.Skipped) != 0 {
		t.Fatalf("clean day reported malformed rows: %v %v", sd.TotalsErr, sd.Skipped)
	}
	if len(sd.Intervals) != 2 {
		t.Fatalf("Intervals = %d, want 2", len(sd.Intervals))
	}
	var spans int64
	for _, iv := range sd.Intervals {
		spans += iv.Span.Seconds(now)
	}
	if total := sd.Totals[models.StatusActive] + sd.Totals[models.StatusIdle]; total != spans || total != 900 {
		t.Errorf("totals %d, spans %d, want 900", total, spans)
	}

	if err := db.Exec("INSERT INTO status_intervals (status, started_at, ended_at) VALUES ('idle', '2025-03-10 10:00:00', 'garbage')").Error; err != nil {
		t.Fatal(err)
	}
	sd, err = store.ReadStatusDay(ctx, now, now)
	if err != nil {
		t.Fatalf("ReadStatusDay() error: %v", err)
	}
	if !IsAggregation(sd.TotalsErr) || sd.Totals != nil {
		t.Errorf("TotalsErr = %v, Totals = %v; want AggregationError and nil", sd.TotalsErr, sd.Totals)
	}
	if len(sd.Intervals) != 2 || len(sd.Skipped) != 1 {
		t.Errorf("Intervals = %d, Skipped = %d; want 2 and 1", len(sd.Intervals), len(sd.Skipped))
	}
}
