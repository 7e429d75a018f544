package application

import (
	"sync"
	"time"

	"github.com/example/seatserve/internal/booking"
)

// snapshotCache keeps the most recent booking snapshot so read-heavy callers
// do not reload every table while nothing has changed. Writers invalidate it;
// a load that started before an invalidation is never stored.
type snapshotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	generation uint64
	entry      *snapshotCacheEntry
}

type snapshotCacheEntry struct {
	snapshot  booking.Snapshot
	expiresAt time.Time
}

func newSnapshotCache(ttl time.Duration, now func() time.Time) *snapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &snapshotCache{now: now, ttl: ttl}
}

// Get returns the cached snapshot and the generation a subsequent Store must present.
func (c *snapshotCache) Get() (booking.Snapshot, uint64, bool) {
	if c == nil {
		return booking.Snapshot{}, 0, false
	}
	c.mu.RLock()
	entry, gen := c.entry, c.generation
	c.mu.RUnlock()
	if entry == nil {
		return booking.Snapshot{}, gen, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		if c.entry == entry {
			c.entry = nil
		}
		c.mu.Unlock()
		return booking.Snapshot{}, gen, false
	}
	return entry.snapshot, gen, true
}

// Store caches snap when no invalidation happened since generation gen was observed.
func (c *snapshotCache) Store(gen uint64, snap booking.Snapshot) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.entry = &snapshotCacheEntry{snapshot: snap, expiresAt: c.now().Add(c.ttl)}
	return true
}

func (c *snapshotCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generation++
	c.entry = nil
	c.mu.Unlock()
}
