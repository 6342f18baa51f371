// Package repository implements MySQL persistence for tables,
// reservations and time slots.  It defines sentinel error values that
// are reused across repositories so that higher layers such as handlers
// can distinguish between failure scenarios without inspecting driver
// errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as cancelling an already-completed
// reservation.  Handlers should translate this into an HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrUnavailable wraps transient database failures.  Interactive
// callers surface it as HTTP 503; the sweeper logs it and retries on
// its next tick.
var ErrUnavailable = errors.New("repository unavailable")
