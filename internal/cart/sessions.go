package cart

import (
	"context"
	"sync"
	"time"

	"github.com/amogham/storefront/internal/storage"
	"go.uber.org/zap"
)

// Sessions hands out one Store per shopper session, each persisted in its
// own namespace of the shared storage.
type Sessions struct {
	mu      sync.Mutex
	stores  map[string]*entry
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

// NewSessions creates an empty registry over s.
func NewSessions(s storage.Storage, logger *zap.Logger) *Sessions {
	return &Sessions{
		stores:  make(map[string]*entry),
		storage: s,
		logger:  logger,
		now:     time.Now,
	}
}

// For returns the session's store, restoring it from storage on first use.
func (r *Sessions) For(ctx context.Context, sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.stores[sessionID]; ok {
		e.lastUsed = r.now()
		return e.store
	}
	st := New(ctx, storage.Namespaced(r.storage, sessionID), r.logger.With(zap.String("session", sessionID)))
	r.stores[sessionID] = &entry{store: st, lastUsed: r.now()}
	return st
}

// Evict drops stores not used for idle and returns their session ids.
// Sessions for which keep returns true stay. Every edit is already
// persisted, so an evicted cart is restored from storage on next use.
func (r *Sessions) Evict(idle time.Duration, keep func(sessionID string) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	var evicted []string
	for id, e := range r.stores {
		if e.lastUsed.After(cutoff) || (keep != nil && keep(id)) {
			continue
		}
		delete(r.stores, id)
		evicted = append(evicted, id)
	}
	return evicted
}

// Len returns the number of carts held in memory.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
