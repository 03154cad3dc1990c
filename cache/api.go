package cache

import "context"

// Cache is a sharded, cost-bounded key/value cache.
// All methods are safe for concurrent use by multiple goroutines.
//
// Each operation takes one shard lock and runs the matching lru.Cache
// operation under it, so it is atomic with respect to that shard.
// Operations spanning shards (Len, Cost, Keys, SetBudget) visit the
// shards one at a time and are not a consistent snapshot.
type Cache[K comparable, V any] interface {
	// Set inserts or updates k→v and marks it most recently used in its shard.
	// An entry costing more than the per-shard budget is dropped silently.
	Set(k K, v V)

	// Get returns the value for k, or lru.ErrKeyNotFound.
	// On hit the entry is marked most recently used.
	Get(k K) (V, error)

	// GetOr returns the value for k, or def if it is absent.
	GetOr(k K, def V) V

	// Peek returns the value for k without touching it.
	Peek(k K) (V, bool)

	// Delete removes k, or returns lru.ErrKeyNotFound.
	Delete(k K) error

	// Contains reports whether k is present without touching it.
	Contains(k K) bool

	// Len returns the number of entries across all shards.
	Len() int

	// Cost returns the total cost across all shards.
	Cost() float64

	// Budget returns the total budget.
	Budget() float64

	// SetBudget changes the total budget and evicts until every shard fits
	// its share. Negative or NaN budgets return lru.ErrInvalidArgument.
	SetBudget(budget float64) error

	// Keys returns every key, shard by shard, each shard from least to most
	// recently used.
	Keys() []K

	// Stats returns counters aggregated over all shards.
	Stats() Stats

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced; the load is not
	// cancelled by any one caller, and each caller's ctx bounds its own wait.
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close marks the cache closed. Afterwards Set is ignored; Get, Delete,
	// SetBudget and GetOrLoad return ErrClosed; GetOr returns def; Peek and
	// Contains report absence. Len, Cost, Keys and Stats keep working.
	Close() error
}

// Stats is a point-in-time summary of cache activity.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Rejections uint64
	Entries    int
	Cost       float64
}
