package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

func newTestCache(maxSize int, maxMemory int64) *MemoryCache {
	cfg := models.MCacheConfig{
		DefaultTTLSeconds: 300,
		MaxSize:           maxSize,
		MaxMemoryBytes:    maxMemory,
	}
	return NewMemoryCache(cfg, logger.NewLogger("ERROR", "CacheTest"))
}

// -----------------------------------------------------------------------------

func TestSetAndGet(t *testing.T) {
	c := newTestCache(10, 1<<20)

	c.Set("stocks:all", []string{"AAPL", "TSLA"}, 0)

	got, ok := c.Get("stocks:all")
	require.True(t, ok)
	assert.Equal(t, []string{"AAPL", "TSLA"}, got)

	_, ok = c.Get("stocks:missing")
	assert.False(t, ok)
}

// -----------------------------------------------------------------------------

func TestGetAfterTTLExpiresAndDeletesEntry(t *testing.T) {
	c := newTestCache(10, 1<<20)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("stocks:all", "payload", time.Minute)

	// Still valid just before expiry.
	now = now.Add(59 * time.Second)
	_, ok := c.Get("stocks:all")
	require.True(t, ok)

	// Expired: miss, and the entry is removed as a side effect.
	now = now.Add(2 * time.Second)
	_, ok = c.Get("stocks:all")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
	assert.Equal(t, int64(0), c.Stats().MemoryBytes)
}

// -----------------------------------------------------------------------------

func TestSizeBoundEvictsOldest(t *testing.T) {
	c := newTestCache(3, 1<<20)

	base := time.Now()
	clock := base
	c.SetClock(func() time.Time { return clock })

	for i := 0; i < 5; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		c.Set(fmt.Sprintf("key-%d", i), i, 0)
		assert.LessOrEqual(t, c.Stats().Size, 3)
	}

	// Oldest two were evicted, newest three remain.
	_, ok := c.Get("key-0")
	assert.False(t, ok)
	_, ok = c.Get("key-1")
	assert.False(t, ok)
	for i := 2; i < 5; i++ {
		_, ok = c.Get(fmt.Sprintf("key-%d", i))
		assert.True(t, ok, "key-%d should survive", i)
	}
}

// -----------------------------------------------------------------------------

func TestMemoryBudgetEvictsUntilUnder(t *testing.T) {
	// Budget fits roughly two entries of this shape.
	c := newTestCache(100, 2*(entryOverheadBytes+2*5+2*104))

	base := time.Now()
	clock := base
	c.SetClock(func() time.Time { return clock })

	big := make([]byte, 75) // ~100 bytes as base64 JSON
	for i := 0; i < 4; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		c.Set(fmt.Sprintf("mem-%d", i), big, 0)

		stats := c.Stats()
		assert.LessOrEqual(t, stats.MemoryBytes, c.maxMemory)
	}
}

// -----------------------------------------------------------------------------

func TestOversizedValueStillInserted(t *testing.T) {
	// A single value larger than the whole budget is accepted; there is
	// nothing left to evict and no error is raised.
	c := newTestCache(10, 64)

	c.Set("huge", make([]byte, 1024), 0)

	_, ok := c.Get("huge")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats().Size)
}

// -----------------------------------------------------------------------------

func TestOverwriteReplacesAccounting(t *testing.T) {
	c := newTestCache(10, 1<<20)

	c.Set("key", make([]byte, 512), 0)
	first := c.Stats().MemoryBytes

	c.Set("key", "tiny", 0)
	second := c.Stats().MemoryBytes

	assert.Equal(t, 1, c.Stats().Size)
	assert.Less(t, second, first)
}

// -----------------------------------------------------------------------------

func TestDeletePatternRemovesOnlyNamespace(t *testing.T) {
	c := newTestCache(100, 1<<20)

	c.Set("stocks:all", 1, 0)
	c.Set("stocks:42", 2, 0)
	c.Set("holdings:user-1", 3, 0)
	c.Set("portfolio:stats:user-1", 4, 0)

	deleted := c.DeletePattern("^stocks:")
	assert.Equal(t, 2, deleted)

	_, ok := c.Get("stocks:all")
	assert.False(t, ok)
	_, ok = c.Get("stocks:42")
	assert.False(t, ok)
	_, ok = c.Get("holdings:user-1")
	assert.True(t, ok)
	_, ok = c.Get("portfolio:stats:user-1")
	assert.True(t, ok)
}

// -----------------------------------------------------------------------------

func TestDeletePatternInvalidRegex(t *testing.T) {
	c := newTestCache(10, 1<<20)
	c.Set("stocks:all", 1, 0)

	assert.Equal(t, 0, c.DeletePattern("["))
	_, ok := c.Get("stocks:all")
	assert.True(t, ok)
}

// -----------------------------------------------------------------------------

func TestCleanupSweepsExpired(t *testing.T) {
	c := newTestCache(100, 1<<20)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)

	now = now.Add(2 * time.Second)
	removed := c.Cleanup()

	assert.Equal(t, 1, removed)
	_, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats().Size)
}

// -----------------------------------------------------------------------------

func TestClear(t *testing.T) {
	c := newTestCache(10, 1<<20)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(0), stats.MemoryBytes)
	assert.Empty(t, stats.Keys)
}
