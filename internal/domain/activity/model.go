package activity

import "time"

// Field length and time-range bounds enforced by Validate.
const (
	MaxAppNameLen     = 255
	MaxAppIDLen       = 255
	MaxWindowTitleLen = 500
	MaxContextLen     = 500
	MaxIconLen        = 100

	// MaxStartAge is how far in the past a record may start.
	MaxStartAge = 30 * 24 * time.Hour
	// ClockSkewTolerance allows timestamps slightly ahead of the local clock.
	ClockSkewTolerance = time.Minute
	// MaxSpan is the longest a single closed record may run.
	MaxSpan = 24 * time.Hour
	// DurationTolerance is the allowed drift between the stored duration
	// and the span implied by start/end times.
	DurationTolerance = 2 * time.Second
)

// Record is one contiguous span of application focus. A nil EndTime marks
// the record as open (still accumulating time); at most one open record may
// exist across memory and storage combined.
type Record struct {
	ID              string     `json:"id"`
	AppName         string     `json:"app_name"`
	AppID           string     `json:"app_id"`
	WindowTitle     string     `json:"window_title,omitempty"`
	URL             string     `json:"url,omitempty"`
	DocumentPath    string     `json:"document_path,omitempty"`
	ExtraContext    string     `json:"extra_context,omitempty"`
	Icon            string     `json:"icon,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
}

// Open reports whether the record is still accumulating time.
func (r *Record) Open() bool {
	return r.EndTime == nil
}

// CloseAt closes the record at the given instant and recomputes its
// duration. A span that would come out negative (clock adjustments) is
// clamped to zero.
func (r *Record) CloseAt(at time.Time) {
	end := at
	r.EndTime = &end
	r.DurationSeconds = spanSeconds(r.StartTime, end)
}

// Span returns the stored duration as a time.Duration.
func (r *Record) Span() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}

// DurationDrift returns the absolute difference between the stored duration
// and the duration implied by the start/end times. Zero for open records.
func (r *Record) DurationDrift() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	implied := spanSeconds(r.StartTime, *r.EndTime)
	drift := r.DurationSeconds - implied
	if drift < 0 {
		drift = -drift
	}
	return time.Duration(drift) * time.Second
}

func spanSeconds(start, end time.Time) int64 {
	secs := int64(end.Sub(start) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
