package memory

import (
	"context"
	"sync"
	"time"

	"hlopg/internal/app/middleware"
)

// IdempotencyStore keeps command results in memory. Records older than ttl are
// invisible to Get and removed by Purge; a zero ttl keeps them forever.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]middleware.IdempotencyRecord
	ttl   time.Duration
	clock func() time.Time
}

func NewIdempotencyStore(ttl time.Duration, clock func() time.Time) *IdempotencyStore {
	if clock == nil {
		clock = time.Now
	}
	return &IdempotencyStore{items: make(map[string]middleware.IdempotencyRecord), ttl: ttl, clock: clock}
}

func (s *IdempotencyStore) expired(rec middleware.IdempotencyRecord, now time.Time) bool {
	return s.ttl > 0 && now.Sub(rec.OccurredAt) > s.ttl
}

// Reserve claims key with a pending record unless a live record already holds it.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.items[key]; ok && !s.expired(rec, s.clock()) {
		return false, nil
	}
	s.items[key] = middleware.IdempotencyRecord{Key: key, OccurredAt: at, Pending: true}
	return true, nil
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	rec, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || s.expired(rec, s.clock()) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	rec.Pending = false
	s.mu.Lock()
	s.items[rec.Key] = rec
	s.mu.Unlock()
	return nil
}

// Release drops a pending reservation. Completed records stay.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.items[key]; ok && rec.Pending {
		delete(s.items, key)
	}
	return nil
}

func (s *IdempotencyStore) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.items)
	for key, rec := range s.items {
		if s.expired(rec, now) {
			delete(s.items, key)
		}
	}
	return before - len(s.items)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
