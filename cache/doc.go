// Package cache provides a goroutine-safe, sharded front end over the
// cost-bounded LRU in package lru, with coalesced loading and metrics hooks.
//
// Design
//
//   - Concurrency: keys are hashed (xxhash) onto a power-of-two number of
//     shards. Each shard is a sync.Mutex around its own lru.Cache, held for
//     the whole core operation, so every single-key call is atomic.
//
//   - Budget: Options.Budget is split evenly across shards. Recency and
//     eviction are per shard; use Shards: 1 for one global LRU order. An
//     entry whose cost exceeds a shard's share is rejected, never stored.
//
//   - Cost: Options.Cost weighs entries (1 each by default), e.g. bytes.
//
//   - GetOrLoad: coalesces concurrent loads for the same key.
//     If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Reject/Evict signals and
//     the cache-wide size. Stats() aggregates per-shard counters kept on
//     padded atomics.
//
// Basic usage
//
//	c, err := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Budget: 64 << 20,
//	    Cost:   func(_ string, v []byte) float64 { return float64(len(v)) },
//	})
//	if err != nil {
//	    return err
//	}
//	c.Set("a", []byte("1"))
//	v, err := c.Get("a") // lru.ErrKeyNotFound on miss
//
// With GetOrLoad
//
//	c, _ := cache.New[string, string](cache.Options[string, string]{
//	    Budget: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(ctx, "key")
//
// Exporting metrics
//
//	m := prom.New(nil, "costcache", "demo", nil) // implements lru.Metrics
//	c, _ := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Budget:  10_000,
//	    Metrics: m,
//	})
package cache
