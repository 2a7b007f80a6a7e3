package repository

import (
	"context"
	"time"

	"github.com/timetrail/timetrail/internal/domain/activity"
)

// ActivityRepository manages durable storage of activity records.
//
// Save is an upsert keyed on record ID so that retrying a queued record or
// re-persisting a maintenance repair is idempotent. All writes are expected
// to flow through the resilience saver; reads may be used directly.
type ActivityRepository interface {
	Save(ctx context.Context, rec *activity.Record) error
	Get(ctx context.Context, id string) (*activity.Record, error)
	List(ctx context.Context, opts activity.ListOptions) ([]activity.Record, error)

	// ListOpen returns every record with no end time, oldest first.
	ListOpen(ctx context.Context) ([]activity.Record, error)
	// ListStaleOpen returns open records that started before cutoff.
	ListStaleOpen(ctx context.Context, cutoff time.Time) ([]activity.Record, error)
	// ListDurationDrift returns closed records whose stored duration
	// disagrees with the start/end span by more than tolerance.
	ListDurationDrift(ctx context.Context, tolerance time.Duration) ([]activity.Record, error)

	// Probe performs the cheapest possible read, used to test whether
	// storage has recovered from an outage.
	Probe(ctx context.Context) error
	// Flush forces buffered writes to durable media. Called before the
	// system is allowed to suspend.
	Flush(ctx context.Context) error

	Close() error
}
