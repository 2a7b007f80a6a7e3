package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/timetrail/timetrail/internal/domain/activity"
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Save(ctx context.Context, rec *activity.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *ActivityRepository) Get(ctx context.Context, id string) (*activity.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*activity.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Record, error) {
	args := m.Called(ctx, opts)
	if recs, ok := args.Get(0).([]activity.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) ListOpen(ctx context.Context) ([]activity.Record, error) {
	args := m.Called(ctx)
	if recs, ok := args.Get(0).([]activity.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) ListStaleOpen(ctx context.Context, cutoff time.Time) ([]activity.Record, error) {
	args := m.Called(ctx, cutoff)
	if recs, ok := args.Get(0).([]activity.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) ListDurationDrift(ctx context.Context, tolerance time.Duration) ([]activity.Record, error) {
	args := m.Called(ctx, tolerance)
	if recs, ok := args.Get(0).([]activity.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) Probe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *ActivityRepository) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *ActivityRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
