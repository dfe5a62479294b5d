package graphstore

import (
	"errors"
	"fmt"
)

// ErrClosed is wrapped by StoreError when a closed store is used.
var ErrClosed = errors.New("store is closed")

// StoreError reports that the backing engine was unreachable or a query failed.
type StoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("graphstore %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Fail wraps err as a StoreError for op. It returns nil for a nil err and
// leaves an existing StoreError untouched.
func Fail(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Backend: backend, Op: op, Err: err}
}

// IsStoreError reports whether err is, or wraps, a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
