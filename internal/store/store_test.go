package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSource is a mock implementation of Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Vehicles(ctx context.Context) ([]models.Vehicle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *MockSource) FleetStats(ctx context.Context) (models.FleetStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.FleetStats), args.Error(1)
}

// MockCache is a mock implementation of Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Save(ctx context.Context, vehicles []models.Vehicle, fetchedAt time.Time) error {
	args := m.Called(ctx, vehicles, fetchedAt)
	return args.Error(0)
}

func (m *MockCache) Load(ctx context.Context) ([]models.Vehicle, time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, time.Time{}, args.Error(2)
	}
	return args.Get(0).([]models.Vehicle), args.Get(1).(time.Time), args.Error(2)
}

var fleet = []models.Vehicle{
	{ID: 1, Name: "Van 1", Status: models.StatusAvailable},
	{ID: 2, Name: "Van 2", Status: models.StatusCheckedOut},
}

func TestStore_Refresh(t *testing.T) {
	source := new(MockSource)
	source.On("Vehicles", mock.Anything).Return(fleet, nil)

	s := New(source, nil)
	assert.Nil(t, s.Current())

	snap, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fleet, snap.Vehicles)
	assert.Equal(t, 2, snap.Stats.TotalVehicles)
	assert.True(t, snap.StatsDerived)
	assert.Same(t, snap, s.Current())

	v, ok := s.Vehicle(2)
	assert.True(t, ok)
	assert.Equal(t, "Van 2", v.Name)
	source.AssertExpectations(t)
}

func TestStore_Refresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	source := new(MockSource)
	source.On("Vehicles", mock.Anything).Return(fleet, nil).Once()
	source.On("Vehicles", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	s := New(source, nil)
	first, err := s.Refresh(context.Background())
	require.NoError(t, err)

	second, err := s.Refresh(context.Background())
	assert.Error(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, fleet, s.Vehicles())
}

func TestStore_Refresh_FailureOnEmptyStore(t *testing.T) {
	source := new(MockSource)
	source.On("Vehicles", mock.Anything).Return(nil, errors.New("boom"))

	s := New(source, nil)
	snap, err := s.Refresh(context.Background())
	assert.Error(t, err)
	assert.Nil(t, snap)
	assert.Nil(t, s.Vehicles())
}

func TestStore_RefreshStats(t *testing.T) {
	source := new(MockSource)
	fetched := models.FleetStats{Available: 1, CheckedOut: 1, TotalVehicles: 2, Reserved: 1}
	source.On("Vehicles", mock.Anything).Return(fleet, nil)
	source.On("FleetStats", mock.Anything).Return(fetched, nil).Once()
	source.On("FleetStats", mock.Anything).Return(models.FleetStats{}, errors.New("timeout")).Once()

	s := New(source, nil)
	snap, err := s.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fetched, snap.Stats)
	assert.False(t, snap.StatsDerived)
	assert.Equal(t, fleet, snap.Vehicles)

	// fetched stats survive a later vehicle refresh
	snap, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fetched, snap.Stats)

	// and a failing stats refresh
	snap, err = s.RefreshStats(context.Background())
	assert.Error(t, err)
	assert.Equal(t, fetched, snap.Stats)
}

func TestStore_CacheSaveAndWarm(t *testing.T) {
	fetchedAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	source := new(MockSource)
	source.On("Vehicles", mock.Anything).Return(fleet, nil)
	cache := new(MockCache)
	cache.On("Save", mock.Anything, fleet, fetchedAt).Return(errors.New("disk full"))

	s := New(source, cache)
	s.now = func() time.Time { return fetchedAt }
	_, err := s.Refresh(context.Background())
	assert.NoError(t, err, "cache failures must not fail the refresh")
	cache.AssertExpectations(t)

	warmCache := new(MockCache)
	warmCache.On("Load", mock.Anything).Return(fleet, fetchedAt, nil)
	cold := New(new(MockSource), warmCache)
	snap, err := cold.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fleet, snap.Vehicles)
	assert.Equal(t, fetchedAt, snap.FetchedAt)
	assert.Equal(t, 1, snap.Stats.Available)
}

func TestStore_Warm_NoCache(t *testing.T) {
	s := New(new(MockSource), nil)
	snap, err := s.Warm(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, snap)
}
