package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrDuplicateSlot is returned when the unique (resource_id, start_time)
	// index rejects an insert. It backstops the in-transaction overlap check.
	ErrDuplicateSlot = errors.New("booking slot already taken")

	// ErrLockHeld is returned when another request holds the advisory lock
	// for the same resource and slot start.
	ErrLockHeld = errors.New("booking lock held by another request")
)
