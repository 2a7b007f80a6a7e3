package tracking

import (
	"context"

	"github.com/timetrail/timetrail/internal/domain/activity"
	"github.com/timetrail/timetrail/internal/resilience"
)

// Saver is the persistence pipeline the tracker hands closed records to.
// Implemented by resilience.Saver.
type Saver interface {
	Save(ctx context.Context, rec *activity.Record) error
	SaveBatch(ctx context.Context, recs []*activity.Record) error
	Drain(ctx context.Context) int
	Flush(ctx context.Context) error
	StorageAvailable() bool
	Status() resilience.Status
	KickProbe()
	ResetHealth()
	Shutdown()
}
