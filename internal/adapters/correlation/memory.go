// Package correlation stores message contexts for email tracking.
package correlation

import (
	"context"
	"sync"
	"time"

	"outreachpass/internal/domain"
)

// MemoryStore is a process-local MessageContextStore with TTL eviction.
// Contexts sent by another instance, or before a restart, are simply not
// found; that degrades open/click attribution but never the pipeline.
// Multi-instance deployments should bind the shared Postgres store instead.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	contexts map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	context  *domain.MessageContext
	expireAt time.Time
}

// NewMemoryStore returns a MemoryStore evicting entries after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &MemoryStore{
		ttl:      ttl,
		contexts: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, mc *domain.MessageContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.contexts[mc.MessageID] = memoryEntry{
		context:  mc,
		expireAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, messageID string) (*domain.MessageContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.contexts[messageID]
	if !ok || s.now().After(entry.expireAt) {
		return nil, domain.ErrNotFound
	}
	return entry.context, nil
}

// evictLocked drops expired entries. Called on writes so the map cannot
// grow without bound on a long-lived worker.
func (s *MemoryStore) evictLocked() {
	now := s.now()
	for id, entry := range s.contexts {
		if now.After(entry.expireAt) {
			delete(s.contexts, id)
		}
	}
}
