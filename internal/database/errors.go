package database

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrUnavailable is returned once every attempt has failed.
	ErrUnavailable = errors.New("persistence unavailable")
	// ErrConflict marks a unique constraint violation. It is never retried.
	ErrConflict = errors.New("persistence conflict")
)

func isConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// scanError marks a failure reading rows that were already returned.
type scanError struct {
	err error
}

func (e *scanError) Error() string { return e.err.Error() }
func (e *scanError) Unwrap() error { return e.err }

func isPermanent(err error) bool {
	var se *scanError
	return errors.As(err, &se)
}
