package cache

import (
	"encoding/json"
	"regexp"
	"sync"
	"time"

	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// Fixed bookkeeping cost charged per entry on top of the serialized payload.
const entryOverheadBytes = 128

// -----------------------------------------------------------------------------
// MemoryCache is a bounded TTL key/value store. Entries expire lazily on
// read; inserts evict the oldest-by-insertion entry until the cache is
// under both its size bound and its estimated memory budget. Safe for
// concurrent use.
// -----------------------------------------------------------------------------

type MemoryCache struct {
	entries     map[string]*cacheEntry
	defaultTTL  time.Duration
	maxSize     int
	maxMemory   int64
	memoryUsage int64
	Logger      *logger.Logger
	mu          sync.Mutex

	// now is swappable so tests can drive expiry with a simulated clock.
	now func() time.Time
}

type cacheEntry struct {
	value      interface{}
	insertedAt time.Time
	ttl        time.Duration
	byteSize   int64
}

// -----------------------------------------------------------------------------

func NewMemoryCache(cfg models.MCacheConfig, log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*cacheEntry),
		defaultTTL: time.Duration(cfg.DefaultTTLSeconds) * time.Second,
		maxSize:    cfg.MaxSize,
		maxMemory:  cfg.MaxMemoryBytes,
		Logger:     log,
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

// SetClock replaces the cache clock. Test hook.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// -----------------------------------------------------------------------------

// estimateSize approximates the serialized footprint of an entry:
// two bytes per key byte and per serialized value byte, plus a fixed
// per-entry overhead.
func estimateSize(key string, value interface{}) int64 {
	serialized := 0
	if data, err := json.Marshal(value); err == nil {
		serialized = len(data)
	}
	return int64(2*len(key)+2*serialized) + entryOverheadBytes
}

// -----------------------------------------------------------------------------

// Set inserts or overwrites an entry. Eviction runs before the insert and
// is atomic with it. An empty cache that is still over budget is left
// as-is; the insert proceeds regardless.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	size := estimateSize(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Overwrite releases the old entry's accounting first.
	if old, ok := c.entries[key]; ok {
		c.memoryUsage -= old.byteSize
		delete(c.entries, key)
	}

	// Evict oldest until under both bounds.
	for len(c.entries) > 0 &&
		(len(c.entries) >= c.maxSize || c.memoryUsage+size > c.maxMemory) {
		c.evictOldestLocked()
	}

	c.entries[key] = &cacheEntry{
		value:      value,
		insertedAt: c.now(),
		ttl:        ttl,
		byteSize:   size,
	}
	c.memoryUsage += size
}

// -----------------------------------------------------------------------------

// evictOldestLocked removes the entry with the smallest insertion
// timestamp. Caller holds the mutex.
func (c *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, entry := range c.entries {
		if first || entry.insertedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.insertedAt
			first = false
		}
	}

	if !first {
		c.memoryUsage -= c.entries[oldestKey].byteSize
		delete(c.entries, oldestKey)
	}
}

// -----------------------------------------------------------------------------

// Get returns the cached value, deleting it as a side effect if expired.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.insertedAt) > entry.ttl {
		c.memoryUsage -= entry.byteSize
		delete(c.entries, key)
		return nil, false
	}

	return entry.value, true
}

// -----------------------------------------------------------------------------

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.memoryUsage -= entry.byteSize
		delete(c.entries, key)
	}
}

// -----------------------------------------------------------------------------

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.memoryUsage = 0
}

// -----------------------------------------------------------------------------

// DeletePattern removes every key matching the regular expression and
// returns how many were deleted. An invalid pattern deletes nothing.
func (c *MemoryCache) DeletePattern(pattern string) int {
	re, err := regexp.Compile(pattern)
	if err != nil {
		c.Logger.Warning("Invalid cache pattern %q: %v", pattern, err)
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key, entry := range c.entries {
		if re.MatchString(key) {
			c.memoryUsage -= entry.byteSize
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted
}

// -----------------------------------------------------------------------------

// Cleanup sweeps all currently-expired entries. Optional maintenance hook;
// lazy expiry on Get keeps the cache correct without it.
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.insertedAt) > entry.ttl {
			c.memoryUsage -= entry.byteSize
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

func (c *MemoryCache) Stats() models.MCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}

	return models.MCacheStats{
		Size:        len(c.entries),
		MemoryBytes: c.memoryUsage,
		Keys:        keys,
	}
}
