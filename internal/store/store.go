package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Mekka-mouse/Vaultsystem/internal/models"
	log "github.com/sirupsen/logrus"
)

// Source fetches the server-owned collections held by the store.
type Source interface {
	Vehicles(ctx context.Context) ([]models.Vehicle, error)
	FleetStats(ctx context.Context) (models.FleetStats, error)
}

// Cache persists the last good vehicle list across restarts.
type Cache interface {
	Save(ctx context.Context, vehicles []models.Vehicle, fetchedAt time.Time) error
	Load(ctx context.Context) ([]models.Vehicle, time.Time, error)
}

// Snapshot is an immutable copy of the fleet as last confirmed by the backend.
type Snapshot struct {
	Vehicles  []models.Vehicle
	Stats     models.FleetStats
	FetchedAt time.Time
	// StatsDerived is set when Stats was recomputed locally rather than fetched.
	StatsDerived bool
}

// Vehicle returns the vehicle with the given id from the snapshot.
func (s *Snapshot) Vehicle(id int) (models.Vehicle, bool) {
	if s == nil {
		return models.Vehicle{}, false
	}
	return models.FindVehicle(s.Vehicles, id)
}

// Store holds the current snapshot. Every refresh replaces it wholesale, so
// readers never see a partially written snapshot.
type Store struct {
	source Source
	cache  Cache
	now    func() time.Time

	mu   sync.RWMutex
	snap *Snapshot
}

// New creates a store. cache may be nil.
func New(source Source, cache Cache) *Store {
	return &Store{
		source: source,
		cache:  cache,
		now:    time.Now,
	}
}

// Current returns the current snapshot, or nil before the first refresh.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Vehicles returns the vehicles of the current snapshot.
func (s *Store) Vehicles() []models.Vehicle {
	if snap := s.Current(); snap != nil {
		return snap.Vehicles
	}
	return nil
}

// Vehicle looks a vehicle up in the current snapshot.
func (s *Store) Vehicle(id int) (models.Vehicle, bool) {
	return s.Current().Vehicle(id)
}

// Refresh re-fetches the vehicle list and replaces the snapshot. On failure the
// previous snapshot is kept and returned alongside the error.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	vehicles, err := s.source.Vehicles(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to refresh vehicles, keeping previous snapshot")
		return s.Current(), fmt.Errorf("refresh vehicles: %w", err)
	}
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}

	fetchedAt := s.now()

	s.mu.Lock()
	next := &Snapshot{Vehicles: vehicles, FetchedAt: fetchedAt}
	if prev := s.snap; prev != nil && !prev.StatsDerived {
		next.Stats = prev.Stats
	} else {
		next.Stats = models.StatsFromVehicles(vehicles)
		next.StatsDerived = true
	}
	s.snap = next
	s.mu.Unlock()

	log.WithField("vehicles", len(vehicles)).Debug("Vehicle snapshot refreshed")

	if s.cache != nil {
		if err := s.cache.Save(ctx, vehicles, fetchedAt); err != nil {
			log.WithError(err).Warn("Failed to persist vehicle snapshot")
		}
	}
	return next, nil
}

// RefreshStats re-fetches the precomputed fleet stats. When the stats endpoint
// fails the previous stats are kept, or derived from the vehicles if none were
// ever fetched.
func (s *Store) RefreshStats(ctx context.Context) (*Snapshot, error) {
	stats, err := s.source.FleetStats(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to refresh fleet stats, keeping previous values")
		return s.Current(), fmt.Errorf("refresh fleet stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := &Snapshot{Stats: stats}
	if prev := s.snap; prev != nil {
		next.Vehicles = prev.Vehicles
		next.FetchedAt = prev.FetchedAt
	}
	s.snap = next
	return next, nil
}

// RefreshAll refreshes vehicles and then stats, returning the first error.
func (s *Store) RefreshAll(ctx context.Context) (*Snapshot, error) {
	_, vErr := s.Refresh(ctx)
	snap, sErr := s.RefreshStats(ctx)
	if vErr != nil {
		return snap, vErr
	}
	return snap, sErr
}

// Warm seeds an empty store from the cache. It is a no-op when the store
// already holds a snapshot or no cache is configured.
func (s *Store) Warm(ctx context.Context) (*Snapshot, error) {
	if s.cache == nil {
		return s.Current(), nil
	}
	vehicles, fetchedAt, err := s.cache.Load(ctx)
	if err != nil {
		return s.Current(), fmt.Errorf("load cached snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil {
		return s.snap, nil
	}
	s.snap = &Snapshot{
		Vehicles:     vehicles,
		Stats:        models.StatsFromVehicles(vehicles),
		StatsDerived: true,
		FetchedAt:    fetchedAt,
	}
	log.WithFields(log.Fields{
		"vehicles":   len(vehicles),
		"fetched_at": fetchedAt,
	}).Info("Seeded snapshot from cache")
	return s.snap, nil
}
