// Package repository defines error types that are reused across multiple
// repositories and by the lifecycle layer above them. These sentinel
// values allow handlers to distinguish failure scenarios: ErrNotFound
// maps to 404, ErrInvalidTransition and ErrTooLateToCancel to 400-level
// rejections with no state change, and storage faults to 503 after the
// handle's single reconnect attempt is exhausted.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested reservation or spot does
// not exist. Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a requested status change is not
// an edge of the allowed-transition table, or when a concurrent caller
// already moved the row somewhere else. No state is changed.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrTooLateToCancel is returned when a paid reservation is cancelled or
// submitted for refund with fewer than three full days left before its
// start day.
var ErrTooLateToCancel = errors.New("too late to cancel")

// ErrConflict is returned when an insert collides with existing state,
// such as occupying a day that already carries the same block source.
var ErrConflict = errors.New("conflict")

// IsDuplicateEntry reports whether err is MySQL error 1062, a unique key
// collision.  The block ledger's (spot_id, day, source) key turns a lost
// create race into exactly this error.
func IsDuplicateEntry(err error) bool {
    var myErr *mysql.MySQLError
    return errors.As(err, &myErr) && myErr.Number == 1062
}
