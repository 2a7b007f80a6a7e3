package repository

import "errors"

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrBusy is returned when the storage engine is busy with another
	// writer. Retryable.
	ErrBusy = errors.New("storage busy")

	// ErrLocked is returned when a table or database lock blocks the
	// operation. Retryable.
	ErrLocked = errors.New("storage locked")

	// ErrTimeout is returned when a storage operation ran out of time.
	// Retryable.
	ErrTimeout = errors.New("storage timeout")

	// ErrDiskFull is returned when the underlying media is out of space.
	// Not retryable within a single save.
	ErrDiskFull = errors.New("storage full")
)
