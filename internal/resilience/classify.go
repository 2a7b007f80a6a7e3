package resilience

import (
	"context"
	"errors"

	"github.com/timetrail/timetrail/internal/domain/activity"
	"github.com/timetrail/timetrail/internal/repository"
)

// Class is the failure class of a storage or validation error.
type Class int

const (
	// ClassTransient failures (lock contention, busy, timeout) are retried
	// with exponential backoff.
	ClassTransient Class = iota
	// ClassPersistent failures (disk full, unclassified) are not retried
	// within a single save; repeated occurrences trip the circuit breaker.
	ClassPersistent
	// ClassValidation failures are data-integrity bugs. Never retried,
	// never queued.
	ClassValidation
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPersistent:
		return "persistent"
	case ClassValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Classify maps an error to its failure class. The mapping is a fixed table
// over the repository's sentinel errors, deliberately decoupled from any
// storage engine's native error codes.
func Classify(err error) Class {
	switch {
	case activity.IsValidationError(err):
		return ClassValidation
	case errors.Is(err, repository.ErrBusy),
		errors.Is(err, repository.ErrLocked),
		errors.Is(err, repository.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	default:
		return ClassPersistent
	}
}

// Retryable reports whether the error is worth retrying within one save.
func Retryable(err error) bool {
	return Classify(err) == ClassTransient
}
