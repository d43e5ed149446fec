package loader

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
	"github.com/sells-group/awards-cli/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertAward(ctx context.Context, rec model.ClassifiedRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) GetAward(ctx context.Context, awardNum string) (*model.ClassifiedRecord, error) {
	args := m.Called(ctx, awardNum)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClassifiedRecord), args.Error(1)
}

func (m *mockStore) UpdateAward(ctx context.Context, rec model.ClassifiedRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) ListAwards(ctx context.Context, filter store.AwardFilter) ([]model.ClassifiedRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ClassifiedRecord), args.Error(1)
}

func (m *mockStore) SeveritySummary(ctx context.Context, year int) (map[model.Severity]int, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.Severity]int), args.Error(1)
}

func (m *mockStore) RecordFailure(ctx context.Context, entry resilience.DLQEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockStore) ListFailures(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]resilience.DLQEntry), args.Error(1)
}

func (m *mockStore) ResolveFailure(ctx context.Context, stage, sourceID string) error {
	args := m.Called(ctx, stage, sourceID)
	return args.Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
