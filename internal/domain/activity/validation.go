package activity

import (
	"strings"
	"time"
)

// Validate checks every record invariant against the given reference time.
// It is pure: no I/O, no clock reads.
func Validate(rec *Record, now time.Time) error {
	if rec == nil {
		return ErrInvalidRecord
	}
	if strings.TrimSpace(rec.ID) == "" {
		return ErrIDRequired
	}
	if strings.TrimSpace(rec.AppName) == "" {
		return ErrAppNameRequired
	}
	if len(rec.AppName) > MaxAppNameLen {
		return ErrAppNameTooLong
	}
	if strings.TrimSpace(rec.AppID) == "" {
		return ErrAppIDRequired
	}
	if len(rec.AppID) > MaxAppIDLen {
		return ErrAppIDTooLong
	}
	if len(rec.WindowTitle) > MaxWindowTitleLen {
		return ErrWindowTitleTooLong
	}
	if len(rec.URL) > MaxContextLen || len(rec.DocumentPath) > MaxContextLen || len(rec.ExtraContext) > MaxContextLen {
		return ErrContextTooLong
	}
	if len(rec.Icon) > MaxIconLen {
		return ErrIconTooLong
	}

	if rec.StartTime.IsZero() {
		return ErrStartMissing
	}
	if rec.StartTime.Before(now.Add(-MaxStartAge)) {
		return ErrStartTooOld
	}
	if rec.StartTime.After(now.Add(ClockSkewTolerance)) {
		return ErrStartInFuture
	}

	if rec.DurationSeconds < 0 {
		return ErrNegativeDuration
	}

	if rec.EndTime != nil {
		end := *rec.EndTime
		if end.Before(rec.StartTime) {
			return ErrEndBeforeStart
		}
		if end.After(now.Add(ClockSkewTolerance)) {
			return ErrEndInFuture
		}
		if end.Sub(rec.StartTime) > MaxSpan {
			return ErrSpanTooLong
		}
		if rec.DurationDrift() > DurationTolerance {
			return ErrDurationMismatch
		}
	}

	return nil
}

// ValidateAgainstOpen enforces the single-open-activity invariant for
// in-memory state: an open record may not coexist with a different open
// record.
func ValidateAgainstOpen(rec, open *Record) error {
	if rec == nil || open == nil {
		return nil
	}
	if rec.Open() && open.Open() && rec.ID != open.ID {
		return ErrSecondOpenRecord
	}
	return nil
}
