package tracking_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/timetrail/timetrail/internal/domain/activity"
	"github.com/timetrail/timetrail/internal/domain/tracking"
	"github.com/timetrail/timetrail/internal/repository/mocks"
	"github.com/timetrail/timetrail/internal/resilience"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// capture records every successfully saved record, worker goroutine included.
type capture struct {
	mu   sync.Mutex
	recs []activity.Record
}

func (c *capture) add(args mock.Arguments) {
	rec := args.Get(1).(*activity.Record)
	c.mu.Lock()
	c.recs = append(c.recs, *rec)
	c.mu.Unlock()
}

func (c *capture) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recs)
}

func (c *capture) at(i int) activity.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recs[i]
}

func newTestTracker(t *testing.T, repo *mocks.ActivityRepository) (*tracking.Service, *resilience.Saver, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	cfg := resilience.Config{
		MaxAttempts:      1,
		BaseDelay:        0,
		BreakerThreshold: 5,
		ProbeDelay:       5 * time.Second,
		ProbeInterval:    30 * time.Second,
	}
	saver := resilience.NewSaver(repo, fc, discardLogger(), cfg)
	svc := tracking.NewService(saver, repo, nil, fc, discardLogger())
	return svc, saver, fc
}

// expectStart covers the calls every Start makes: the startup cleanup pass
// finds nothing to repair.
func expectStart(repo *mocks.ActivityRepository) {
	repo.On("ListStaleOpen", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("ListDurationDrift", mock.Anything, mock.Anything).Return(nil, nil)
}

func focus(appID, appName, title string) tracking.FocusEvent {
	return tracking.FocusEvent{AppID: appID, AppName: appName, WindowTitle: title}
}

func TestService_FocusSwitchClosesPreviousSpan(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	saved := &capture{}
	expectStart(repo)
	repo.On("Save", mock.Anything, mock.Anything).Run(saved.add).Return(nil)
	repo.On("Flush", mock.Anything).Return(nil)

	svc, _, fc := newTestTracker(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(ctx)

	start := fc.Now()
	require.NoError(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "zsh")))

	cur := svc.Current()
	require.NotNil(t, cur)
	require.Equal(t, "com.apple.Terminal", cur.AppID)
	require.True(t, cur.Open())
	require.Equal(t, start, cur.StartTime)

	fc.Advance(120 * time.Second)
	require.NoError(t, svc.RecordFocus(ctx, focus("com.google.Chrome", "Chrome", "docs")))

	require.Eventually(t, func() bool { return saved.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	closed := saved.at(0)
	require.Equal(t, "com.apple.Terminal", closed.AppID)
	require.False(t, closed.Open())
	require.Equal(t, int64(120), closed.DurationSeconds)
	require.Equal(t, start.Add(120*time.Second), *closed.EndTime)

	cur = svc.Current()
	require.NotNil(t, cur)
	require.Equal(t, "com.google.Chrome", cur.AppID)
}

func TestService_RepeatFocusSameAppIsNoOp(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	expectStart(repo)
	repo.On("Flush", mock.Anything).Return(nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc, _, fc := newTestTracker(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(ctx)

	require.NoError(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "zsh")))
	first := svc.Current()

	fc.Advance(30 * time.Second)
	// Same app, new window title: the span keeps running.
	require.NoError(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "vim")))

	cur := svc.Current()
	require.Equal(t, first.ID, cur.ID)
	require.Equal(t, first.StartTime, cur.StartTime)
	require.Equal(t, "zsh", cur.WindowTitle)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_SuspendClosesOpenRecordAndFlushes(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	saved := &capture{}
	expectStart(repo)
	repo.On("Save", mock.Anything, mock.Anything).Run(saved.add).Return(nil)
	repo.On("Flush", mock.Anything).Return(nil)

	svc, _, fc := newTestTracker(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(ctx)

	require.NoError(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "zsh")))
	fc.Advance(380 * time.Second)
	require.NoError(t, svc.Suspend(ctx))

	// Suspend waits for the commit, so no Eventually needed.
	require.Equal(t, 1, saved.len())
	closed := saved.at(0)
	require.Equal(t, int64(380), closed.DurationSeconds)
	require.False(t, closed.Open())

	require.Nil(t, svc.Current())
	repo.AssertCalled(t, "Flush", mock.Anything)

	h := svc.Health()
	require.NotNil(t, h.SleepStartTime)
	require.Equal(t, fc.Now(), *h.SleepStartTime)
}

func TestService_SuspendDrainsPendingBeforeFlush(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	saved := &capture{}
	expectStart(repo)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk I/O error")).Times(2)
	repo.On("Save", mock.Anything, mock.Anything).Run(saved.add).Return(nil)
	repo.On("Flush", mock.Anything).Return(nil)

	svc, _, fc := newTestTracker(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(ctx)

	require.NoError(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "zsh")))
	fc.Advance(time.Minute)
	require.NoError(t, svc.RecordFocus(ctx, focus("com.google.Chrome", "Chrome", "")))
	require.Eventually(t, func() bool { return svc.Health().PendingCount == 1 }, 2*time.Second, 10*time.Millisecond)

	// The Chrome save also fails at suspend; both records drain before the
	// checkpoint so the flush covers them.
	fc.Advance(30 * time.Second)
	require.NoError(t, svc.Suspend(ctx))

	require.Equal(t, 0, svc.Health().PendingCount)
	require.Equal(t, 2, saved.len())
	require.Equal(t, "com.apple.Terminal", saved.at(0).AppID)
	require.Equal(t, "com.google.Chrome", saved.at(1).AppID)

	lastSave, lastFlush := -1, -1
	for i, call := range repo.Calls {
		switch call.Method {
		case "Save":
			lastSave = i
		case "Flush":
			lastFlush = i
		}
	}
	require.Greater(t, lastFlush, lastSave)
}

func TestService_ResumeDoesNotReopen(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	saved := &capture{}
	expectStart(repo)
	repo.On("Save", mock.Anything, mock.Anything).Run(saved.add).Return(nil)
	repo.On("Flush", mock.Anything).Return(nil)

	svc, _, fc := newTestTracker(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(ctx)

	require.NoError(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "zsh")))
	fc.Advance(time.Minute)
	require.NoError(t, svc.Suspend(ctx))
	require.Equal(t, 1, saved.len())

	fc.Advance(time.Hour)
	require.NoError(t, svc.Resume(ctx))

	// Nothing reopens on wake; the next focus event starts a new span.
	require.Nil(t, svc.Current())
	require.Equal(t, 1, saved.len())
	require.Nil(t, svc.Health().SleepStartTime)

	require.NoError(t, svc.RecordFocus(ctx, focus("com.microsoft.VSCode", "Code", "main.go")))
	cur := svc.Current()
	require.NotNil(t, cur)
	require.Equal(t, "com.microsoft.VSCode", cur.AppID)
	require.Equal(t, fc.Now(), cur.StartTime)
}

func TestService_EventsBeforeStartReturnErrNotTracking(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	svc, _, _ := newTestTracker(t, repo)
	ctx := context.Background()

	require.ErrorIs(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "")), tracking.ErrNotTracking)
	require.ErrorIs(t, svc.Suspend(ctx), tracking.ErrNotTracking)
	require.ErrorIs(t, svc.Resume(ctx), tracking.ErrNotTracking)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_StopPersistsOpenRecordAndIsIdempotent(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	saved := &capture{}
	expectStart(repo)
	repo.On("Save", mock.Anything, mock.Anything).Run(saved.add).Return(nil)
	repo.On("Flush", mock.Anything).Return(nil)

	svc, _, fc := newTestTracker(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	require.NoError(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "zsh")))
	fc.Advance(45 * time.Second)

	require.NoError(t, svc.Stop(ctx))
	require.Equal(t, 1, saved.len())
	require.Equal(t, int64(45), saved.at(0).DurationSeconds)
	require.Nil(t, svc.Current())
	require.False(t, svc.Health().IsTracking)

	require.NoError(t, svc.Stop(ctx))
	require.Equal(t, 1, saved.len())
}

func TestService_FailedSaveQueuedThenDrained(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	saved := &capture{}
	expectStart(repo)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk I/O error")).Once()
	repo.On("Save", mock.Anything, mock.Anything).Run(saved.add).Return(nil)
	repo.On("Flush", mock.Anything).Return(nil)

	svc, saver, fc := newTestTracker(t, repo)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(ctx)

	require.NoError(t, svc.RecordFocus(ctx, focus("com.apple.Terminal", "Terminal", "zsh")))
	fc.Advance(time.Minute)
	require.NoError(t, svc.RecordFocus(ctx, focus("com.google.Chrome", "Chrome", "")))

	// The failed save parks the record instead of dropping it.
	require.Eventually(t, func() bool { return svc.Health().PendingCount == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, saver.Drain(ctx))
	require.Equal(t, 1, saved.len())
	require.Equal(t, "com.apple.Terminal", saved.at(0).AppID)
	require.Equal(t, 0, svc.Health().PendingCount)
}

func TestService_CleanupClosesStaleAndFixesDrift(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	saved := &capture{}

	svc, _, fc := newTestTracker(t, repo)
	now := fc.Now()

	staleStart := now.Add(-30 * time.Hour)
	stale := activity.Record{
		ID:        "stale-1",
		AppID:     "com.apple.Terminal",
		AppName:   "Terminal",
		StartTime: staleStart,
	}
	driftEnd := now.Add(-time.Hour)
	drifted := activity.Record{
		ID:              "drift-1",
		AppID:           "com.google.Chrome",
		AppName:         "Chrome",
		StartTime:       driftEnd.Add(-100 * time.Second),
		EndTime:         &driftEnd,
		DurationSeconds: 5,
	}
	repo.On("ListStaleOpen", mock.Anything, mock.Anything).Return([]activity.Record{stale}, nil)
	repo.On("ListDurationDrift", mock.Anything, mock.Anything).Return([]activity.Record{drifted}, nil)
	repo.On("Save", mock.Anything, mock.Anything).Run(saved.add).Return(nil)

	rep, err := svc.RunCleanupPass(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, rep.StaleClosed)
	require.Equal(t, 1, rep.DurationsFixed)

	require.Equal(t, 2, saved.len())
	closedStale := saved.at(0)
	require.Equal(t, "stale-1", closedStale.ID)
	require.False(t, closedStale.Open())
	require.Equal(t, staleStart.Add(time.Hour), *closedStale.EndTime)
	require.Equal(t, int64(3600), closedStale.DurationSeconds)

	fixed := saved.at(1)
	require.Equal(t, "drift-1", fixed.ID)
	require.Equal(t, int64(100), fixed.DurationSeconds)
	require.Equal(t, driftEnd, *fixed.EndTime)
}

func TestHealthStatus_IsHealthy(t *testing.T) {
	h := tracking.HealthStatus{StorageAvailable: true}
	require.True(t, h.IsHealthy())

	h.StorageAvailable = false
	require.False(t, h.IsHealthy())

	h = tracking.HealthStatus{StorageAvailable: true, ConsecutiveFailures: 3}
	require.False(t, h.IsHealthy())

	h = tracking.HealthStatus{StorageAvailable: true, PendingCount: 11}
	require.False(t, h.IsHealthy())

	h = tracking.HealthStatus{StorageAvailable: true, ConsecutiveFailures: 2, PendingCount: 9}
	require.True(t, h.IsHealthy())
}
