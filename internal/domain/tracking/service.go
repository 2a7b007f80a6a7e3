package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/timetrail/timetrail/internal/domain/activity"
	"github.com/timetrail/timetrail/internal/repository"
	"github.com/timetrail/timetrail/internal/resilience"
)

const (
	// submitBuffer bounds how many closed records may queue behind an
	// in-flight save before event handling blocks.
	submitBuffer = 64

	// staleCloseGrace is how much time a record orphaned open by a crash is
	// billed past its recorded start.
	staleCloseGrace = time.Hour
)

type submission struct {
	rec  *activity.Record
	done chan error
}

// Service owns the single in-memory open activity record and reacts to
// focus, suspend and resume events. All state mutations are serialized
// through one mutex; persistence submissions flow through a single worker
// goroutine so records reach the saver in the order their spans closed,
// while retry backoff never blocks event intake.
type Service struct {
	saver  Saver
	repo   repository.ActivityRepository
	source Source
	clock  clockwork.Clock
	logger *slog.Logger

	mu          sync.Mutex
	current     *activity.Record
	sleepStart  *time.Time
	tracking    bool
	unsubscribe func()
	submissions chan submission
	workerDone  chan struct{}
}

// NewService creates a tracker. source may be nil when events are delivered
// by calling the handlers directly.
func NewService(saver Saver, repo repository.ActivityRepository, source Source, clock clockwork.Clock, logger *slog.Logger) *Service {
	return &Service{
		saver:  saver,
		repo:   repo,
		source: source,
		clock:  clock,
		logger: logger,
	}
}

// Start begins tracking: health counters reset, a best-effort cleanup pass
// runs, and only then does the tracker subscribe to the event source.
// Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.tracking {
		s.mu.Unlock()
		return nil
	}
	s.tracking = true
	s.submissions = make(chan submission, submitBuffer)
	s.workerDone = make(chan struct{})
	subs, workerDone := s.submissions, s.workerDone
	s.mu.Unlock()

	s.saver.ResetHealth()
	go s.worker(subs, workerDone)

	if _, err := s.RunCleanupPass(ctx); err != nil {
		s.logger.Warn("startup cleanup pass failed", "error", err)
	}

	s.mu.Lock()
	if s.tracking && s.source != nil {
		s.unsubscribe = s.source.Subscribe(s.dispatch)
	}
	s.mu.Unlock()

	s.logger.Info("tracking started")
	return nil
}

// Stop unsubscribes from the event source, closes and persists any open
// record, waits for in-flight submissions, flushes the gateway and tears
// down the probe loop. Idempotent.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.tracking {
		s.mu.Unlock()
		return nil
	}
	s.tracking = false
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.sleepStart = nil

	now := s.clock.Now()
	var done chan error
	if s.current != nil {
		closed := s.current
		s.current = nil
		closed.CloseAt(now)
		done = make(chan error, 1)
		s.submitLocked(closed, done, now)
	}
	subs, workerDone := s.submissions, s.workerDone
	s.submissions = nil
	s.workerDone = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if done != nil {
		<-done
	}
	close(subs)
	<-workerDone

	if err := s.saver.Flush(ctx); err != nil {
		s.logger.Warn("flush on stop failed", "error", err)
	}
	s.saver.Shutdown()

	s.logger.Info("tracking stopped")
	return nil
}

// RecordFocus handles an application-focus change. A repeat event for the
// app already being tracked is a no-op; title-only changes within the same
// app are deliberately left unmerged. Otherwise any open record is closed
// at now and submitted, and a fresh in-memory record opens for the newly
// focused app. At most one persistence submission per event.
func (s *Service) RecordFocus(ctx context.Context, ev FocusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tracking {
		return ErrNotTracking
	}
	now := s.clock.Now()

	if s.current != nil && s.current.AppID == ev.AppID {
		return nil
	}

	var closed *activity.Record
	if s.current != nil {
		closed = s.current
		s.current = nil
		closed.CloseAt(now)
	}

	s.openLocked(newRecord(ev, now), now)

	if closed != nil {
		s.submitLocked(closed, nil, now)
	}
	return nil
}

// openLocked installs next as the current activity after full validation,
// including the in-memory single-open check against whatever record is
// still current. Records failing either check are reported and discarded.
// Called with s.mu held.
func (s *Service) openLocked(next *activity.Record, now time.Time) {
	if err := activity.Validate(next, now); err != nil {
		s.logger.Error("dropping invalid focus event", "app", next.AppID, "error", err)
		return
	}
	if err := activity.ValidateAgainstOpen(next, s.current); err != nil {
		s.logger.Error("refusing second open activity", "app", next.AppID, "error", err)
		return
	}
	s.current = next
}

// Suspend handles an imminent system sleep. The open record (if any) is
// closed and its save is waited on — either committed or parked in the
// pending queue — and the gateway is flushed before this returns, so the
// process never sleeps with the span only in memory. Failures are logged,
// never propagated past the event boundary.
func (s *Service) Suspend(ctx context.Context) error {
	s.mu.Lock()
	if !s.tracking {
		s.mu.Unlock()
		return ErrNotTracking
	}
	now := s.clock.Now()
	start := now
	s.sleepStart = &start

	var done chan error
	if s.current != nil {
		closed := s.current
		s.current = nil
		closed.CloseAt(now)
		done = make(chan error, 1)
		s.submitLocked(closed, done, now)
	}
	s.mu.Unlock()

	if done != nil {
		if err := <-done; err != nil {
			s.logger.Warn("suspend save did not commit, record queued", "error", err)
		}
	}
	// Drain before the checkpoint so records persisted here are flushed too.
	s.saver.Drain(ctx)
	if err := s.saver.Flush(ctx); err != nil {
		s.logger.Warn("flush before suspend failed", "error", err)
	}
	return nil
}

// Resume handles wake from sleep. No record is reopened: the next focus
// event starts a fresh span rather than assuming the same app regains
// focus. If the breaker is open a recovery probe is kicked off.
func (s *Service) Resume(ctx context.Context) error {
	s.mu.Lock()
	if !s.tracking {
		s.mu.Unlock()
		return ErrNotTracking
	}
	if s.sleepStart != nil {
		s.logger.Info("system resumed", "slept", s.clock.Now().Sub(*s.sleepStart))
		s.sleepStart = nil
	}
	s.mu.Unlock()

	if !s.saver.StorageAvailable() {
		s.saver.KickProbe()
	}
	s.saver.Drain(ctx)
	return nil
}

// Current returns a copy of the open activity record, or nil. Reads only
// in-memory state; never blocks on storage.
func (s *Service) Current() *activity.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Health returns the diagnostic snapshot combining saver counters with
// tracker state.
func (s *Service) Health() HealthStatus {
	st := s.saver.Status()
	s.mu.Lock()
	tracking := s.tracking
	var sleep *time.Time
	if s.sleepStart != nil {
		t := *s.sleepStart
		sleep = &t
	}
	s.mu.Unlock()

	return HealthStatus{
		StorageAvailable:    st.StorageAvailable,
		ConsecutiveFailures: st.ConsecutiveFailures,
		PendingCount:        st.PendingCount,
		LastSuccessfulSave:  st.LastSuccessfulSave,
		IsTracking:          tracking,
		SleepStartTime:      sleep,
	}
}

// CleanupReport describes what a maintenance pass repaired.
type CleanupReport struct {
	StaleClosed    int
	DurationsFixed int
}

// RunCleanupPass repairs records orphaned by a crash (open for more than 24
// hours, closed at start+1h) and closed records whose stored duration
// drifted from the start/end span. Idempotent; safe to run repeatedly.
func (s *Service) RunCleanupPass(ctx context.Context) (CleanupReport, error) {
	var rep CleanupReport
	now := s.clock.Now()

	stale, err := s.repo.ListStaleOpen(ctx, now.Add(-activity.MaxSpan))
	if err != nil {
		return rep, fmt.Errorf("listing stale open records: %w", err)
	}
	if len(stale) > 0 {
		repaired := make([]*activity.Record, 0, len(stale))
		for i := range stale {
			rec := &stale[i]
			rec.CloseAt(rec.StartTime.Add(staleCloseGrace))
			repaired = append(repaired, rec)
		}
		if err := s.saver.SaveBatch(ctx, repaired); err != nil {
			s.logger.Warn("persisting stale-open repairs incomplete", "error", err)
		}
		rep.StaleClosed = len(repaired)
	}

	drifted, err := s.repo.ListDurationDrift(ctx, activity.DurationTolerance)
	if err != nil {
		return rep, fmt.Errorf("listing duration drift: %w", err)
	}
	if len(drifted) > 0 {
		fixed := make([]*activity.Record, 0, len(drifted))
		for i := range drifted {
			rec := &drifted[i]
			if rec.EndTime == nil {
				continue
			}
			rec.CloseAt(*rec.EndTime)
			fixed = append(fixed, rec)
		}
		if err := s.saver.SaveBatch(ctx, fixed); err != nil {
			s.logger.Warn("persisting duration corrections incomplete", "error", err)
		}
		rep.DurationsFixed = len(fixed)
	}

	if rep.StaleClosed > 0 || rep.DurationsFixed > 0 {
		s.logger.Info("cleanup pass repaired records",
			"stale_closed", rep.StaleClosed, "durations_fixed", rep.DurationsFixed)
	}
	return rep, nil
}

// dispatch is the subscription boundary: handler errors are logged, never
// rethrown into the event source.
func (s *Service) dispatch(ev Event) {
	ctx := context.Background()
	var err error
	switch e := ev.(type) {
	case FocusEvent:
		err = s.RecordFocus(ctx, e)
	case SuspendEvent:
		err = s.Suspend(ctx)
	case ResumeEvent:
		err = s.Resume(ctx)
	default:
		return
	}
	if err != nil && !errors.Is(err, ErrNotTracking) {
		s.logger.Error("event handling failed", "event", fmt.Sprintf("%T", ev), "error", err)
	}
}

// submitLocked validates a closed record and hands it to the persistence
// worker. Called with s.mu held so submissions keep event order. Records
// failing validation are reported and discarded, never queued.
func (s *Service) submitLocked(rec *activity.Record, done chan error, now time.Time) {
	if err := activity.Validate(rec, now); err != nil {
		s.logger.Error("discarding invalid activity record", "id", rec.ID, "app", rec.AppID, "error", err)
		if done != nil {
			done <- err
		}
		return
	}
	s.submissions <- submission{rec: rec, done: done}
}

// worker is the single persistence goroutine. Queued-for-later outcomes are
// expected during outages; only unexpected failures are logged as errors.
func (s *Service) worker(subs <-chan submission, done chan<- struct{}) {
	defer close(done)
	for sub := range subs {
		err := s.saver.Save(context.Background(), sub.rec)
		switch {
		case err == nil:
		case errors.Is(err, resilience.ErrStorageUnavailable),
			errors.Is(err, resilience.ErrSaveQueued):
			// Parked in the pending queue; reconciled once storage recovers.
		default:
			s.logger.Error("persisting activity failed", "id", sub.rec.ID, "error", err)
		}
		if sub.done != nil {
			sub.done <- err
		}
	}
}

func newRecord(ev FocusEvent, now time.Time) *activity.Record {
	name := ev.AppName
	if name == "" {
		name = ev.AppID
	}
	return &activity.Record{
		ID:           uuid.NewString(),
		AppID:        ev.AppID,
		AppName:      name,
		WindowTitle:  ev.WindowTitle,
		URL:          ev.URL,
		DocumentPath: ev.DocumentPath,
		Icon:         ev.Icon,
		StartTime:    now,
	}
}
