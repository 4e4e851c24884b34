package store

import (
	"context"
	"sync"
)

// Registry hands out one UserStore per signed-in uid. A store is loaded
// from the remote document on first access and dropped entirely on
// logout, so a later sign-in by a different identity starts empty until
// its own document loads.
type Registry struct {
	docs  Documents
	blobs Blobs

	mu     sync.Mutex
	stores map[string]*UserStore
}

// NewRegistry creates a registry over the given backends.
func NewRegistry(docs Documents, blobs Blobs) *Registry {
	return &Registry{
		docs:   docs,
		blobs:  blobs,
		stores: make(map[string]*UserStore),
	}
}

// Get returns the store for uid, loading the remote document on first
// access.
func (r *Registry) Get(ctx context.Context, uid string) (*UserStore, error) {
	r.mu.Lock()
	if s, ok := r.stores[uid]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	s := NewUserStore(uid, r.docs, r.blobs)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have loaded it meanwhile; keep the first.
	if existing, ok := r.stores[uid]; ok {
		return existing, nil
	}
	r.stores[uid] = s
	return s, nil
}

// Remove flushes pending writes, clears the store and drops it from the
// registry. Complete invalidation: nothing of this identity remains in
// memory.
func (r *Registry) Remove(uid string) {
	r.mu.Lock()
	s, ok := r.stores[uid]
	delete(r.stores, uid)
	r.mu.Unlock()

	if ok {
		s.Flush()
		s.Reset()
	}
}
