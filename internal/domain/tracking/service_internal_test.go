package tracking

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/timetrail/timetrail/internal/domain/activity"
)

func newBareService() (*Service, clockwork.Clock) {
	fc := clockwork.NewFakeClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(nil, nil, nil, fc, logger), fc
}

func TestOpenLocked_RefusesSecondOpenActivity(t *testing.T) {
	svc, clock := newBareService()
	now := clock.Now()

	svc.current = &activity.Record{
		ID:        "open-1",
		AppID:     "com.apple.Terminal",
		AppName:   "Terminal",
		StartTime: now.Add(-time.Minute),
	}

	next := &activity.Record{
		ID:        "open-2",
		AppID:     "com.google.Chrome",
		AppName:   "Chrome",
		StartTime: now,
	}
	svc.openLocked(next, now)

	// The conflicting record is discarded; the original stays current.
	require.Equal(t, "open-1", svc.current.ID)
}

func TestOpenLocked_InstallsValidRecord(t *testing.T) {
	svc, clock := newBareService()
	now := clock.Now()

	next := &activity.Record{
		ID:        "open-1",
		AppID:     "com.apple.Terminal",
		AppName:   "Terminal",
		StartTime: now,
	}
	svc.openLocked(next, now)
	require.Equal(t, "open-1", svc.current.ID)
}

func TestOpenLocked_DropsInvalidRecord(t *testing.T) {
	svc, clock := newBareService()
	now := clock.Now()

	svc.openLocked(&activity.Record{
		ID:        "open-1",
		AppID:     "com.apple.Terminal",
		AppName:   "Terminal",
		StartTime: now.Add(-40 * 24 * time.Hour),
	}, now)
	require.Nil(t, svc.current)
}
