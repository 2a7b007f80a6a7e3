package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/timetrail/timetrail/internal/domain/activity"
	"github.com/timetrail/timetrail/internal/repository"
)

// Config tunes the saver's retry, breaker and probe behavior.
type Config struct {
	// MaxAttempts is the number of tries per save, including the first.
	MaxAttempts int
	// BaseDelay is the backoff before the second try; each further retry
	// doubles it.
	BaseDelay time.Duration
	// BreakerThreshold is the consecutive-failure count that marks storage
	// unavailable.
	BreakerThreshold int
	// ProbeDelay is the wait before the first recovery probe.
	ProbeDelay time.Duration
	// ProbeInterval is the wait between failed recovery probes.
	ProbeInterval time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		BaseDelay:        500 * time.Millisecond,
		BreakerThreshold: 5,
		ProbeDelay:       5 * time.Second,
		ProbeInterval:    30 * time.Second,
	}
}

// Status is a snapshot of the saver's health counters.
type Status struct {
	StorageAvailable    bool       `json:"storage_available"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	PendingCount        int        `json:"pending_count"`
	LastSuccessfulSave  *time.Time `json:"last_successful_save,omitempty"`
}

// Saver gets validated, closed activity records durably stored, tolerating
// transient and prolonged storage failures without losing data.
//
// While storage is considered available, each save is tried up to
// MaxAttempts times with exponential backoff between transient failures.
// A record whose save ultimately fails moves to the pending queue, which is
// drained opportunistically after any successful save and after recovery
// probes. Once BreakerThreshold consecutive saves fail, the breaker opens:
// further saves queue immediately and a background probe loop waits for
// storage to come back.
type Saver struct {
	repo   repository.ActivityRepository
	clock  clockwork.Clock
	logger *slog.Logger
	cfg    Config

	mu        sync.Mutex
	pending   []*activity.Record
	failures  int
	available bool
	lastSave  *time.Time
	probing   bool
	closed    bool
	stopCh    chan struct{}
}

// NewSaver creates a saver. Storage starts out presumed available.
func NewSaver(repo repository.ActivityRepository, clock clockwork.Clock, logger *slog.Logger, cfg Config) *Saver {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BreakerThreshold < 1 {
		cfg.BreakerThreshold = 1
	}
	return &Saver{
		repo:      repo,
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
		available: true,
		stopCh:    make(chan struct{}),
	}
}

// Save persists one record. It returns nil on success, ErrStorageUnavailable
// when the breaker is open (record queued, no I/O attempted), or an error
// wrapping ErrSaveQueued when every attempt failed (record queued). The
// record is never dropped.
func (s *Saver) Save(ctx context.Context, rec *activity.Record) error {
	s.mu.Lock()
	if !s.available {
		s.pending = append(s.pending, rec)
		n := len(s.pending)
		s.mu.Unlock()
		s.logger.Warn("storage unavailable, record queued", "id", rec.ID, "pending", n)
		return ErrStorageUnavailable
	}
	s.mu.Unlock()

	if err := s.saveWithRetry(ctx, rec); err != nil {
		s.markFailure(rec, err)
		return fmt.Errorf("%w: %v", ErrSaveQueued, err)
	}
	s.markSuccess()
	s.Drain(ctx)
	return nil
}

// SaveBatch persists a set of records under the single-record protocol. The
// whole batch is rejected up front when more than one record is open.
func (s *Saver) SaveBatch(ctx context.Context, recs []*activity.Record) error {
	open := 0
	for _, rec := range recs {
		if rec.Open() {
			open++
		}
	}
	if open > 1 {
		return ErrInvalidBatch
	}

	var firstErr error
	for _, rec := range recs {
		if err := s.Save(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Drain attempts to persist every queued record once, in order. Records
// that still fail are re-queued ahead of any new arrivals, preserving their
// relative order. Returns the number of records persisted.
func (s *Saver) Drain(ctx context.Context) int {
	s.mu.Lock()
	if !s.available || len(s.pending) == 0 {
		s.mu.Unlock()
		return 0
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	var failed []*activity.Record
	saved := 0
	for _, rec := range batch {
		// Single try per record; the queue itself is the retry
		// mechanism over time.
		if err := s.persist(ctx, rec); err != nil {
			s.logger.Warn("pending record still failing", "id", rec.ID, "error", err)
			failed = append(failed, rec)
			continue
		}
		saved++
	}

	if len(failed) > 0 {
		s.mu.Lock()
		s.pending = append(failed, s.pending...)
		s.mu.Unlock()
	}
	if saved > 0 {
		s.markSuccess()
		s.logger.Info("drained pending queue", "saved", saved, "still_failing", len(failed))
	}
	return saved
}

// Flush forces the gateway's buffered writes to durable media.
func (s *Saver) Flush(ctx context.Context) error {
	if err := s.repo.Flush(ctx); err != nil {
		return fmt.Errorf("flushing storage: %w", err)
	}
	return nil
}

// StorageAvailable reports the circuit breaker state.
func (s *Saver) StorageAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Status returns a snapshot of the health counters.
func (s *Saver) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		StorageAvailable:    s.available,
		ConsecutiveFailures: s.failures,
		PendingCount:        len(s.pending),
	}
	if s.lastSave != nil {
		t := *s.lastSave
		st.LastSuccessfulSave = &t
	}
	return st
}

// KickProbe starts the recovery probe loop if storage is marked unavailable
// and no probe is already running.
func (s *Saver) KickProbe() {
	s.mu.Lock()
	if !s.available {
		s.startProbeLocked()
	}
	s.mu.Unlock()
}

// ResetHealth marks storage available and zeroes the failure counter. Called
// when tracking starts.
func (s *Saver) ResetHealth() {
	s.mu.Lock()
	s.available = true
	s.failures = 0
	if s.closed {
		s.closed = false
		s.stopCh = make(chan struct{})
	}
	s.mu.Unlock()
}

// Shutdown cancels any outstanding probe loop. Queued records stay queued;
// they survive only as long as the process unless drained first.
func (s *Saver) Shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.stopCh)
	}
	s.mu.Unlock()
}

func (s *Saver) saveWithRetry(ctx context.Context, rec *activity.Record) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = s.persist(ctx, rec)
		if err == nil {
			return nil
		}
		if !Retryable(err) || attempt >= s.cfg.MaxAttempts {
			return err
		}
		delay := s.cfg.BaseDelay << (attempt - 1)
		s.logger.Debug("transient save failure, backing off",
			"id", rec.ID, "attempt", attempt, "delay", delay, "error", err)
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(delay):
			}
		}
	}
}

// persist performs one storage write. Before an open record is written it
// closes any other open records found in storage, protecting the
// single-open-activity invariant against records orphaned by a crash.
func (s *Saver) persist(ctx context.Context, rec *activity.Record) error {
	if rec.Open() {
		if err := s.repairForeignOpen(ctx, rec); err != nil {
			return err
		}
	}
	return s.repo.Save(ctx, rec)
}

func (s *Saver) repairForeignOpen(ctx context.Context, rec *activity.Record) error {
	open, err := s.repo.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("checking open records: %w", err)
	}
	now := s.clock.Now()
	for i := range open {
		other := &open[i]
		if other.ID == rec.ID {
			continue
		}
		other.CloseAt(now)
		s.logger.Warn("closing foreign open record", "id", other.ID, "app", other.AppID)
		if err := s.repo.Save(ctx, other); err != nil {
			return fmt.Errorf("closing foreign open record: %w", err)
		}
	}
	return nil
}

func (s *Saver) markSuccess() {
	now := s.clock.Now()
	s.mu.Lock()
	s.failures = 0
	s.lastSave = &now
	s.mu.Unlock()
}

func (s *Saver) markFailure(rec *activity.Record, cause error) {
	s.mu.Lock()
	s.failures++
	s.pending = append(s.pending, rec)
	tripped := false
	if s.failures >= s.cfg.BreakerThreshold && s.available {
		s.available = false
		tripped = true
		s.startProbeLocked()
	}
	failures, queued := s.failures, len(s.pending)
	s.mu.Unlock()

	if tripped {
		s.logger.Error("storage circuit breaker tripped",
			"consecutive_failures", failures, "pending", queued, "error", cause)
	} else {
		s.logger.Warn("save failed, record queued",
			"id", rec.ID, "consecutive_failures", failures, "pending", queued, "error", cause)
	}
}

func (s *Saver) startProbeLocked() {
	if s.probing || s.closed {
		return
	}
	s.probing = true
	go s.probeLoop(s.stopCh)
}

// probeLoop waits ProbeDelay, then attempts a trivial read every
// ProbeInterval until it succeeds or the saver shuts down. On success the
// breaker closes and the pending queue drains.
func (s *Saver) probeLoop(stop <-chan struct{}) {
	delay := s.cfg.ProbeDelay
	for {
		select {
		case <-stop:
			s.mu.Lock()
			s.probing = false
			s.mu.Unlock()
			return
		case <-s.clock.After(delay):
		}

		if err := s.repo.Probe(context.Background()); err != nil {
			s.logger.Warn("storage probe failed", "retry_in", s.cfg.ProbeInterval, "error", err)
			delay = s.cfg.ProbeInterval
			continue
		}

		s.mu.Lock()
		s.available = true
		s.failures = 0
		s.probing = false
		s.mu.Unlock()
		s.logger.Info("storage recovered")
		s.Drain(context.Background())
		return
	}
}
