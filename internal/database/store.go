package database

import (
	"context"
	"database/sql"
	"iter"
	"sync"
	"time"

	"github.com/actionsum/activitylog/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	statusTable = "status_intervals"
	focusTable  = "focus_intervals"
)

// StatusKey identifies the open status interval to close.
type StatusKey struct {
	Status models.Status
	Start  time.Time
}

// FocusKey identifies the open focus interval to close.
type FocusKey struct {
	Focus models.Focus
	Start time.Time
}

// FocusTotal is the summed focus time of one program on one day.
type FocusTotal struct {
	Program   sql.NullString
	Seconds   int64
	Intervals int
}

// Store owns the status and focus interval series. Every mutation and every
// multi-step read holds mu, so a reader never observes a close without the
// matching open.
type Store struct {
	db *DB
	mu sync.Mutex
}

// NewStore creates a store over an initialized database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// AppendStatus opens a new status interval starting at start.
func (s *Store) AppendStatus(ctx context.Context, status models.Status, start time.Time) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendStatus(s.db.WithContext(ctx), status, start)
}

// CloseStatus sets the end of the open interval matching status and start.
// It is a no-op when no such interval is open.
func (s *Store) CloseStatus(ctx context.Context, status models.Status, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return closeStatus(s.db.WithContext(ctx), StatusKey{Status: status, Start: start}, end)
}

// TransitionStatus closes prev (when non-nil) and opens next, both at the same
// instant, in one transaction.
func (s *Store) TransitionStatus(ctx context.Context, prev *StatusKey, next models.Status, at time.Time) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prev != nil {
			if err := closeStatus(tx, *prev, at); err != nil {
				return err
			}
		}
		var err error
		id, err = appendStatus(tx, next, at)
		return err
	})
	if err != nil {
		return 0, persistErr("transition status", err)
	}
	return id, nil
}

// AppendFocus opens a new focus interval starting at start.
func (s *Store) AppendFocus(ctx context.Context, focus models.Focus, start time.Time) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendFocus(s.db.WithContext(ctx), focus, start)
}

// CloseFocus sets the end of the open interval matching focus and start.
// It is a no-op when no such interval is open.
func (s *Store) CloseFocus(ctx context.Context, focus models.Focus, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return closeFocus(s.db.WithContext(ctx), FocusKey{Focus: focus, Start: start}, end)
}

// TransitionFocus closes prev (when non-nil) and opens next at the same
// instant, in one transaction.
func (s *Store) TransitionFocus(ctx context.Context, prev *FocusKey, next models.Focus, at time.Time) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prev != nil {
			if err := closeFocus(tx, *prev, at); err != nil {
				return err
			}
		}
		var err error
		id, err = appendFocus(tx, next, at)
		return err
	})
	if err != nil {
		return 0, persistErr("transition focus", err)
	}
	return id, nil
}

func appendStatus(tx *gorm.DB, status models.Status, start time.Time) (uint, error) {
	row := &models.StatusInterval{
		Status:    status,
		StartedAt: models.FormatTimestamp(start),
	}
	if err := tx.Create(row).Error; err != nil {
		return 0, persistErr("append status interval", err)
	}
	return row.ID, nil
}

func closeStatus(tx *gorm.DB, key StatusKey, end time.Time) error {
	err := tx.Model(&models.StatusInterval{}).
		Where("status = ? AND started_at = ? AND ended_at IS NULL", key.Status, models.FormatTimestamp(key.Start)).
		Update("ended_at", models.FormatTimestamp(end)).Error
	if err != nil {
		return persistErr("close status interval", err)
	}
	return nil
}

func appendFocus(tx *gorm.DB, focus models.Focus, start time.Time) (uint, error) {
	row := &models.FocusInterval{
		Program:   focus.Program,
		Title:     focus.Title,
		StartedAt: models.FormatTimestamp(start),
	}
	if err := tx.Create(row).Error; err != nil {
		return 0, persistErr("append focus interval", err)
	}
	return row.ID, nil
}

// closeFocus matches program and title with IS so null parts compare equal.
func closeFocus(tx *gorm.DB, key FocusKey, end time.Time) error {
	err := tx.Model(&models.FocusInterval{}).
		Where("program IS ? AND title IS ? AND started_at = ? AND ended_at IS NULL",
			key.Focus.Program, key.Focus.Title, models.FormatTimestamp(key.Start)).
		Update("ended_at", models.FormatTimestamp(end)).Error
	if err != nil {
		return persistErr("close focus interval", err)
	}
	return nil
}

// StatusIntervals lazily yields every status interval in start order. Rows
// with unparseable timestamps are yielded with an *AggregationError and
// iteration continues. Each range over the sequence re-runs the query. The
// store lock is held for the whole iteration, so the loop body must not call
// back into the store.
func (s *Store) StatusIntervals(ctx context.Context) iter.Seq2[models.StatusInterval, error] {
	return scanIntervals[models.StatusInterval](s, ctx, statusTable, nil)
}

// StatusIntervalsOn yields the status intervals whose start falls on day.
func (s *Store) StatusIntervalsOn(ctx context.Context, day time.Time) iter.Seq2[models.StatusInterval, error] {
	return scanIntervals[models.StatusInterval](s, ctx, statusTable, onDay(day))
}

// FocusIntervals lazily yields every focus interval in start order, with the
// same error and locking rules as StatusIntervals.
func (s *Store) FocusIntervals(ctx context.Context) iter.Seq2[models.FocusInterval, error] {
	return scanIntervals[models.FocusInterval](s, ctx, focusTable, nil)
}

// FocusIntervalsOn yields the focus intervals whose start falls on day.
func (s *Store) FocusIntervalsOn(ctx context.Context, day time.Time) iter.Seq2[models.FocusInterval, error] {
	return scanIntervals[models.FocusInterval](s, ctx, focusTable, onDay(day))
}

type spanRow[T any] interface {
	*T
	ParseSpan() error
}

func onDay(day time.Time) func(*gorm.DB) *gorm.DB {
	from, to := models.DayRange(day)
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("started_at >= ? AND started_at < ?", from, to)
	}
}

func scanIntervals[T any, P spanRow[T]](s *Store, ctx context.Context, table string, scope func(*gorm.DB) *gorm.DB) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		s.mu.Lock()
		defer s.mu.Unlock()

		scanRows[T, P](s.db.WithContext(ctx), table, scope, yield)
	}
}

// scanRows runs the ordered query and yields each row. The caller holds mu.
func scanRows[T any, P spanRow[T]](tx *gorm.DB, table string, scope func(*gorm.DB) *gorm.DB, yield func(T, error) bool) {
	var zero T
	q := tx.Model(P(&zero))
	if scope != nil {
		q = q.Scopes(scope)
	}
	rows, err := q.Order("started_at ASC, id ASC").Rows()
	if err != nil {
		yield(zero, persistErr("read "+table, err))
		return
	}
	defer rows.Close()

	for rows.Next() {
		var row T
		if err := tx.ScanRows(rows, P(&row)); err != nil {
			if !yield(row, persistErr("scan "+table, err)) {
				return
			}
			continue
		}
		if err := P(&row).ParseSpan(); err != nil {
			if !yield(row, &AggregationError{Table: table, ID: rowID(P(&row)), Err: errors.WithStack(err)}) {
				return
			}
			continue
		}
		if !yield(row, nil) {
			return
		}
	}
	if err := rows.Err(); err != nil {
		yield(zero, persistErr("read "+table, err))
	}
}

func rowID(row any) uint {
	switch r := row.(type) {
	case *models.StatusInterval:
		return r.ID
	case *models.FocusInterval:
		return r.ID
	}
	return 0
}

// OpenStatus returns the currently open status interval, or nil.
func (s *Store) OpenStatus(ctx context.Context) (*models.StatusInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row models.StatusInterval
	if err := latestOpen(s.db.WithContext(ctx), &row); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistErr("read open status interval", err)
	}
	if err := row.ParseSpan(); err != nil {
		return nil, &AggregationError{Table: statusTable, ID: row.ID, Err: err}
	}
	return &row, nil
}

// OpenFocus returns the currently open focus interval, or nil.
func (s *Store) OpenFocus(ctx context.Context) (*models.FocusInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row models.FocusInterval
	if err := latestOpen(s.db.WithContext(ctx), &row); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistErr("read open focus interval", err)
	}
	if err := row.ParseSpan(); err != nil {
		return nil, &AggregationError{Table: focusTable, ID: row.ID, Err: err}
	}
	return &row, nil
}

func latestOpen(tx *gorm.DB, dest any) error {
	return tx.Where("ended_at IS NULL").Order("started_at DESC, id DESC").First(dest).Error
}

// OpenCounts returns how many intervals are open in each series.
func (s *Store) OpenCounts(ctx context.Context) (status, focus int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.db.WithContext(ctx)
	if err := tx.Model(&models.StatusInterval{}).Where("ended_at IS NULL").Count(&status).Error; err != nil {
		return 0, 0, persistErr("count open status intervals", err)
	}
	if err := tx.Model(&models.FocusInterval{}).Where("ended_at IS NULL").Count(&focus).Error; err != nil {
		return 0, 0, persistErr("count open focus intervals", err)
	}
	return status, focus, nil
}

// Heartbeat records at as the last instant the tracker was known alive.
func (s *Store) Heartbeat(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hb := models.Heartbeat{ID: 1, SeenAt: models.FormatTimestamp(at)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"seen_at"}),
	}).Create(&hb).Error
	if err != nil {
		return persistErr("write heartbeat", err)
	}
	return nil
}

// LastHeartbeat returns the last recorded heartbeat, if any.
func (s *Store) LastHeartbeat(ctx context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastHeartbeat(s.db.WithContext(ctx))
}

func lastHeartbeat(tx *gorm.DB) (time.Time, bool, error) {
	var hb models.Heartbeat
	if err := tx.First(&hb, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, persistErr("read heartbeat", err)
	}
	t, err := models.ParseTimestamp(hb.SeenAt)
	if err != nil {
		return time.Time{}, false, &AggregationError{Table: "heartbeats", ID: hb.ID, Err: err}
	}
	return t, true, nil
}

// CloseStale closes every interval left open by a previous process at the
// last heartbeat, or at its own start when the heartbeat predates it or was
// never written. It returns the number of intervals closed.
func (s *Store) CloseStale(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, ok, err := lastHeartbeat(tx)
		if err != nil && !IsAggregation(err) {
			return err
		}

		end := gorm.Expr("started_at")
		if ok {
			hb := models.FormatTimestamp(seen)
			end = gorm.Expr("CASE WHEN started_at > ? THEN started_at ELSE ? END", hb, hb)
		}

		for _, model := range []any{&models.StatusInterval{}, &models.FocusInterval{}} {
			res := tx.Model(model).Where("ended_at IS NULL").Update("ended_at", end)
			if res.Error != nil {
				return res.Error
			}
			closed += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, persistErr("close stale intervals", err)
	}
	return closed, nil
}

const spanSecondsSQL = "MAX(0, CAST(strftime('%s', COALESCE(ended_at, ?)) AS INTEGER) - CAST(strftime('%s', started_at) AS INTEGER))"

// malformedSpanSQL matches rows whose boundaries are not exactly in
// models.TimestampLayout. datetime() normalizes values such as a T separator,
// hour 24 or February 30, so any difference from the stored text is malformed.
const malformedSpanSQL = "datetime(started_at) IS NOT started_at OR (ended_at IS NOT NULL AND datetime(ended_at) IS NOT ended_at)"

const malformedStatusSQL = malformedSpanSQL + " OR status NOT IN ('active', 'idle')"

// StatusTotals sums, in whole seconds, the intervals of each status whose
// start falls on day. Open intervals count up to now. Any malformed row in
// the day fails the whole read with an *AggregationError.
func (s *Store) StatusTotals(ctx context.Context, day, now time.Time) (map[models.Status]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return statusTotals(s.db.WithContext(ctx), day, now)
}

func statusTotals(tx *gorm.DB, day, now time.Time) (map[models.Status]int64, error) {
	if err := checkDay(tx, &models.StatusInterval{}, statusTable, malformedStatusSQL, day); err != nil {
		return nil, err
	}

	var rows []struct {
		Status  models.Status
		Seconds int64
	}
	err := tx.Model(&models.StatusInterval{}).
		Select("status, COALESCE(SUM("+spanSecondsSQL+"), 0) AS seconds", models.FormatTimestamp(now)).
		Scopes(onDay(day)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, persistErr("sum status intervals", err)
	}

	totals := make(map[models.Status]int64, len(rows))
	for _, r := range rows {
		totals[r.Status] += r.Seconds
	}
	return totals, nil
}

// StatusDay is one consistent read of the status series for a day.
type StatusDay struct {
	// Totals is nil when TotalsErr holds the *AggregationError that
	// rejected the day.
	Totals    map[models.Status]int64
	TotalsErr error
	Intervals []models.StatusInterval
	Skipped   []error
}

// ReadStatusDay reads the totals and the intervals of day in one critical
// section, so both describe the same store state. Malformed rows land in
// TotalsErr and Skipped; only storage failures are returned as errors.
func (s *Store) ReadStatusDay(ctx context.Context, day, now time.Time) (StatusDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.db.WithContext(ctx)

	var out StatusDay
	totals, err := statusTotals(tx, day, now)
	switch {
	case err == nil:
		out.Totals = totals
	case IsAggregation(err):
		out.TotalsErr = err
	default:
		return StatusDay{}, err
	}

	var readErr error
	scanRows[models.StatusInterval](tx, statusTable, onDay(day), func(iv models.StatusInterval, err error) bool {
		switch {
		case err == nil:
			out.Intervals = append(out.Intervals, iv)
		case IsAggregation(err):
			out.Skipped = append(out.Skipped, err)
		default:
			readErr = err
			return false
		}
		return true
	})
	if readErr != nil {
		return StatusDay{}, readErr
	}
	return out, nil
}

// FocusTotals sums focus time per program for intervals starting on day,
// longest first. Titles are folded into their program.
func (s *Store) FocusTotals(ctx context.Context, day, now time.Time) ([]FocusTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.db.WithContext(ctx)
	if err := checkDay(tx, &models.FocusInterval{}, focusTable, malformedSpanSQL, day); err != nil {
		return nil, err
	}

	var totals []FocusTotal
	err := tx.Model(&models.FocusInterval{}).
		Select("program, COALESCE(SUM("+spanSecondsSQL+"), 0) AS seconds, COUNT(*) AS intervals", models.FormatTimestamp(now)).
		Scopes(onDay(day)).
		Group("program").
		Order("seconds DESC").
		Scan(&totals).Error
	if err != nil {
		return nil, persistErr("sum focus intervals", err)
	}
	return totals, nil
}

func checkDay(tx *gorm.DB, model any, table, malformed string, day time.Time) error {
	var bad int64
	if err := tx.Model(model).Scopes(onDay(day)).Where("(" + malformed + ")").Count(&bad).Error; err != nil {
		return persistErr("validate "+table, err)
	}
	if bad > 0 {
		return &AggregationError{Table: table, Err: errors.Errorf("%d malformed rows", bad)}
	}
	return nil
}
