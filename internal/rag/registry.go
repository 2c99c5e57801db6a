package rag

import (
	"sort"
	"sync"
	"time"
)

// Registry owns the built indexes. The most recently added index is the
// active one and is used when a caller does not name a document.
type Registry struct {
	mu      sync.RWMutex
	indexes map[string]*Index
	active  string
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		indexes: make(map[string]*Index),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Put adds ix and makes it active.
func (r *Registry) Put(ix *Index) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes[ix.ID] = ix
	r.active = ix.ID
}

// Get resolves an index by id; an empty id means the active index.
func (r *Registry) Get(id string) (*Index, bool) {
	r.mu.RLock()
	if id == "" {
		id = r.active
	}
	ix, ok := r.indexes[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	ix.touch(r.now())
	return ix, true
}

// Active returns the active index without marking it used.
func (r *Registry) Active() (*Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ix, ok := r.indexes[r.active]
	return ix, ok
}

// Len is the number of held indexes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.indexes)
}

// EvictIdle drops indexes unused for longer than maxIdle and returns their
// ids sorted. The active index is never evicted.
func (r *Registry) EvictIdle(maxIdle time.Duration) []string {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, ix := range r.indexes {
		if id == r.active {
			continue
		}
		if ix.LastUsed().Before(cutoff) {
			delete(r.indexes, id)
			evicted = append(evicted, id)
		}
	}
	sort.Strings(evicted)
	return evicted
}
