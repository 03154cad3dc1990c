package cache

import (
	"context"

	"github.com/IvanBrykalov/costcache/lru"
	"go.uber.org/zap"
)

// Options configures the cache. Defaults applied in New():
//   - Shards <= 0  => auto (≈ 2*GOMAXPROCS, rounded up to a power of two)
//   - nil Cost     => 1 per entry
//   - nil Metrics  => lru.NoopMetrics
//   - nil Logger   => zap.NewNop()
type Options[K comparable, V any] struct {
	// Budget is the total cost limit, split evenly across shards.
	// Use lru.Unbounded to disable eviction. Zero is valid and keeps
	// nothing with a positive cost; negative values make New fail.
	Budget float64

	// Shards defines the number of shards. Recency is tracked per shard;
	// Shards: 1 gives a single global LRU order.
	Shards int

	// Cost weighs an entry (e.g. bytes). Negative results count as zero.
	Cost func(k K, v V) float64

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called under the shard lock for entries removed to fit the
	// budget. Keep it light and do not call back into the cache.
	OnEvict func(k K, v V, reason lru.EvictReason)

	// Metrics receives Hit/Miss/Reject/Evict signals and the global size.
	Metrics lru.Metrics

	Logger *zap.Logger
}
