package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a place lookup misses. Callers in the merge
// pass treat it as a no-op.
var ErrNotFound = errors.New("place not found")

// PersistenceError wraps a storage failure. Flush callers must not drop
// in-memory elapsed time when they see one.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
