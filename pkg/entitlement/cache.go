package entitlement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DisplayCache is a short-TTL cache for resolved PlanInfo values. It
// exists purely to cut read latency on entitlement display endpoints;
// authorization decisions at the feature gate must never read it, because
// a coach whose subscription just lapsed has to lose features on the very
// next gated request.
type DisplayCache interface {
	Get(ctx context.Context, subscriberID uuid.UUID) (*PlanInfo, bool)
	Set(ctx context.Context, subscriberID uuid.UUID, info *PlanInfo)
}

type memoryCacheEntry struct {
	info      *PlanInfo
	expiresAt time.Time
}

// MemoryDisplayCache is a process-local DisplayCache for tests and
// single-instance deployments.
type MemoryDisplayCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryDisplayCache creates a cache with the given TTL.
func NewMemoryDisplayCache(ttl time.Duration) *MemoryDisplayCache {
	return &MemoryDisplayCache{
		entries: make(map[uuid.UUID]memoryCacheEntry),
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (c *MemoryDisplayCache) Get(_ context.Context, subscriberID uuid.UUID) (*PlanInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[subscriberID]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, subscriberID)
		return nil, false
	}
	return entry.info, true
}

func (c *MemoryDisplayCache) Set(_ context.Context, subscriberID uuid.UUID, info *PlanInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[subscriberID] = memoryCacheEntry{
		info:      info,
		expiresAt: c.now().Add(c.ttl),
	}
}
