package interfaces

import (
	"time"

	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// ICache is the bounded TTL response cache consumed by the HTTP handlers
// and invalidated by the price updater after every tick.
// -----------------------------------------------------------------------------

type ICache interface {

	// -----------------------------------------------------------------------------

	// Set inserts or overwrites an entry, evicting oldest-by-insertion
	// entries first while the cache is over its size or memory bound.
	// A non-positive ttl uses the configured default.
	Set(key string, value interface{}, ttl time.Duration)

	// -----------------------------------------------------------------------------

	// Get returns the value and true, or nil and false if the key is
	// absent or expired. Expired entries are deleted on read.
	Get(key string) (interface{}, bool)

	// -----------------------------------------------------------------------------

	Delete(key string)
	Clear()

	// -----------------------------------------------------------------------------

	// DeletePattern removes every key matching the regular expression.
	// Used to invalidate whole namespaces ("^stocks:", "^holdings:", ...).
	DeletePattern(pattern string) int

	// -----------------------------------------------------------------------------

	// Cleanup proactively sweeps expired entries. Correctness does not
	// depend on it running; lazy expiry on Get is authoritative.
	Cleanup() int

	// -----------------------------------------------------------------------------

	Stats() models.MCacheStats
}
