package activity

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is the base error every validation failure wraps.
// Validation failures indicate programmer or data error, never a transient
// condition, so they are never retried or queued.
var ErrInvalidRecord = errors.New("invalid activity record")

var (
	// ErrIDRequired indicates a record without an identifier.
	ErrIDRequired = fmt.Errorf("%w: id required", ErrInvalidRecord)
	// ErrAppNameRequired indicates a missing application name.
	ErrAppNameRequired = fmt.Errorf("%w: application name required", ErrInvalidRecord)
	// ErrAppNameTooLong indicates the application name exceeds its bound.
	ErrAppNameTooLong = fmt.Errorf("%w: application name too long", ErrInvalidRecord)
	// ErrAppIDRequired indicates a missing application identifier.
	ErrAppIDRequired = fmt.Errorf("%w: application id required", ErrInvalidRecord)
	// ErrAppIDTooLong indicates the application identifier exceeds its bound.
	ErrAppIDTooLong = fmt.Errorf("%w: application id too long", ErrInvalidRecord)
	// ErrWindowTitleTooLong indicates the window title exceeds its bound.
	ErrWindowTitleTooLong = fmt.Errorf("%w: window title too long", ErrInvalidRecord)
	// ErrContextTooLong indicates an optional context field exceeds its bound.
	ErrContextTooLong = fmt.Errorf("%w: context field too long", ErrInvalidRecord)
	// ErrIconTooLong indicates the icon identifier exceeds its bound.
	ErrIconTooLong = fmt.Errorf("%w: icon too long", ErrInvalidRecord)
	// ErrStartMissing indicates a record without a start time.
	ErrStartMissing = fmt.Errorf("%w: start time required", ErrInvalidRecord)
	// ErrStartTooOld indicates a start time beyond the 30 day window.
	ErrStartTooOld = fmt.Errorf("%w: start time too far in the past", ErrInvalidRecord)
	// ErrStartInFuture indicates a start time beyond clock-skew tolerance.
	ErrStartInFuture = fmt.Errorf("%w: start time in the future", ErrInvalidRecord)
	// ErrEndBeforeStart indicates an end time earlier than the start time.
	ErrEndBeforeStart = fmt.Errorf("%w: end time before start time", ErrInvalidRecord)
	// ErrEndInFuture indicates an end time beyond clock-skew tolerance.
	ErrEndInFuture = fmt.Errorf("%w: end time in the future", ErrInvalidRecord)
	// ErrSpanTooLong indicates a closed span exceeding 24 hours.
	ErrSpanTooLong = fmt.Errorf("%w: span exceeds 24 hours", ErrInvalidRecord)
	// ErrNegativeDuration indicates a negative stored duration.
	ErrNegativeDuration = fmt.Errorf("%w: negative duration", ErrInvalidRecord)
	// ErrDurationMismatch indicates the stored duration drifts more than
	// the tolerance from the span implied by start/end times.
	ErrDurationMismatch = fmt.Errorf("%w: duration does not match span", ErrInvalidRecord)
	// ErrSecondOpenRecord indicates a second open record would violate the
	// single-open-activity invariant.
	ErrSecondOpenRecord = fmt.Errorf("%w: another activity is already open", ErrInvalidRecord)
)

// IsValidationError reports whether err originates from record validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRecord)
}
