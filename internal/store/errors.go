package store

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that an operation referenced an id absent from the store.
	ErrNotFound = errors.New("not found")
	// ErrInvariant reports an operation that would break a domain invariant.
	ErrInvariant = errors.New("invariant violation")
	// ErrPersistence matches any *PersistenceError via errors.Is.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError wraps a failed read or write against the record store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// rowErr maps sql.ErrNoRows to ErrNotFound and everything else to a
// PersistenceError.
func rowErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return persistErr(op, err)
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
