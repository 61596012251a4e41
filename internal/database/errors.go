package database

import (
	"fmt"

	"github.com/pkg/errors"
)

// PersistenceError reports a failed read or write against the store. Trackers
// treat it as non-fatal and retry the same transition on the next tick.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AggregationError reports a stored row that cannot be interpreted, such as an
// unparseable timestamp.
type AggregationError struct {
	Table string
	ID    uint
	Err   error
}

func (e *AggregationError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("malformed rows in %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("malformed row %s#%d: %v", e.Table, e.ID, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: errors.WithStack(err)}
}

// IsPersistence reports whether err is, or wraps, a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsAggregation reports whether err is, or wraps, an AggregationError.
func IsAggregation(err error) bool {
	var ae *AggregationError
	return errors.As(err, &ae)
}
