package cache

import (
	"sync"
	"time"

	"github.com/epeers/reconcile/internal/models"
)

// SnapshotCache is an in-memory TTL cache for per-account position snapshots.
// Projection is always re-derivable from the immutable ledger; the cache only
// spares repeated queries re-scanning the same trades. Ingestion clears it
// wholesale, so entries never outlive new ledger facts by more than the TTL.
type SnapshotCache struct {
	entries map[string]snapshotEntry
	mu      sync.RWMutex
	ttl     time.Duration
}

type snapshotEntry struct {
	snapshot  *models.PositionsResponse
	fetchedAt time.Time
}

// NewSnapshotCache creates a new snapshot cache.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		entries: make(map[string]snapshotEntry),
		ttl:     ttl,
	}
}

func snapshotKey(accountID string, date time.Time) string {
	return accountID + "@" + date.Format("2006-01-02")
}

// Get retrieves a cached snapshot if still fresh.
func (c *SnapshotCache) Get(accountID string, date time.Time) (*models.PositionsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[snapshotKey(accountID, date)]
	if !exists {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > c.ttl {
		return nil, false
	}
	return entry.snapshot, true
}

// Set caches a snapshot.
func (c *SnapshotCache) Set(accountID string, date time.Time, snapshot *models.PositionsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[snapshotKey(accountID, date)] = snapshotEntry{
		snapshot:  snapshot,
		fetchedAt: time.Now(),
	}
}

// Clear removes all cached snapshots.
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]snapshotEntry)
}
