package types

import "errors"

// Sentinel errors shared across repositories, services and handlers.
// Repositories wrap these with context; handlers translate them with
// errors.Is into HTTP statuses without leaking internals.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrStaleWrite      = errors.New("row version conflict, reload and retry")
	ErrUnavailable     = errors.New("storage unavailable")
	ErrValidation      = errors.New("invalid input")
)
