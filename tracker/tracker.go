// Package tracker implements the in-memory mirror of "which block
// numbers have a persisted Block row with is_uncle = false". The
// Backfill Coordinator and Tip Follower both read and write it
// concurrently, so it is guarded the same way zk/syncer guards its own
// shared sync state.
//
// Grounded on zk/syncer/l1_syncer.go's atomic.Bool/atomic.Uint64 +
// sync.Mutex fields: that file protects single flags and counters; the
// Tracker needs a full set, so the container is generalized to a
// map[uint32]struct{} while keeping the same "plain mutex, no channel
// machinery" concurrency shape.
package tracker

import (
	"context"
	"sync"

	"github.com/satschain/evm-indexer/store"
)

// Tracker is safe for concurrent use by multiple goroutines.
type Tracker struct {
	mu  sync.RWMutex
	set map[uint32]struct{}
}

// New returns an empty Tracker; call Load to warm it up from the store.
func New() *Tracker {
	return &Tracker{set: make(map[uint32]struct{})}
}

// Load queries the store for the indexed set and replaces the in-memory
// set with it. A query failure is deliberately not fatal here -- it
// returns the error for the caller to
// log, and an empty Tracker behaves as "indexing from scratch", which is
// the documented risk of a misconfigured read.
func Load(ctx context.Context, s store.Store, chainID uint32) (*Tracker, error) {
	t := New()
	numbers, err := s.IndexedBlockNumbers(ctx, chainID)
	if err != nil {
		return t, err
	}
	t.mu.Lock()
	for _, n := range numbers {
		t.set[n] = struct{}{}
	}
	t.mu.Unlock()
	return t, nil
}

// Contains reports whether n's Block row is already persisted.
func (t *Tracker) Contains(n uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.set[n]
	return ok
}

// Insert records n as indexed. Monotonic: once true, Contains(n) stays
// true for the process lifetime.
func (t *Tracker) Insert(n uint32) {
	t.mu.Lock()
	t.set[n] = struct{}{}
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the indexed set.
func (t *Tracker) Snapshot() map[uint32]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[uint32]struct{}, len(t.set))
	for n := range t.set {
		out[n] = struct{}{}
	}
	return out
}

// Len returns the number of indexed block numbers currently tracked.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.set)
}
