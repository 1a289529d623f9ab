// Package statuscache is a short-lived cache for resolved status
// projections. Entries expire at the configured freshness bound, so the
// query layer never serves a status computed against a reference time
// older than that bound.
package statuscache

import (
	"context"
	"sync"
	"time"
)

// Store is the cache backend used by the query layer.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

// entry holds a cached value and its expiration time.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory Store with lazy expiration. It is
// the default backend when no redis is configured.
type MemoryStore struct {
	entries map[string]*entry
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry)}
}

// Get retrieves a value. Performs lazy expiration: deletes the entry and
// returns a miss if it has expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

// Set stores a value with the given TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.entries[key] = &entry{data: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// Delete removes a key.
func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}
