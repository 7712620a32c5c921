package feedcache

import (
	"context"
	"sync"
	"time"

	"github.com/illmade-knight/go-feedcache/pkg/feed"
)

// InMemoryStore is a thread-safe, volatile implementation of Store. It holds
// one snapshot in process memory and never fails. It is the reference
// implementation the durable backends are validated against, and is also
// useful for local development.
type InMemoryStore struct {
	mu   sync.RWMutex
	slot *CachedFeed
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Retrieve returns the current snapshot, or nil when the slot is unset or
// holds an empty feed. The returned feed is a copy; callers never alias the
// live slot.
func (s *InMemoryStore) Retrieve(_ context.Context) (*CachedFeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.slot == nil || len(s.slot.Feed) == 0 {
		return nil, nil
	}
	f := make(feed.Feed, len(s.slot.Feed))
	copy(f, s.slot.Feed)
	return &CachedFeed{Feed: f, Timestamp: s.slot.Timestamp}, nil
}

// Insert unconditionally replaces the slot.
func (s *InMemoryStore) Insert(_ context.Context, f feed.Feed, timestamp time.Time) error {
	stored := make(feed.Feed, len(f))
	copy(stored, f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = &CachedFeed{Feed: stored, Timestamp: timestamp}
	return nil
}

// Delete unconditionally clears the slot. Deleting an empty store is a no-op
// that still succeeds.
func (s *InMemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = nil
	return nil
}

// Close is a no-op for the in-memory implementation.
func (s *InMemoryStore) Close() error {
	return nil
}
