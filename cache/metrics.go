package cache

import "github.com/IvanBrykalov/costcache/lru"

// shardMetrics is the lru.Metrics each shard's core cache reports to.
// It bumps the shard's own counters and forwards to Options.Metrics,
// replacing per-shard sizes with the cache-wide totals.
// Called under the shard lock.
type shardMetrics[K comparable, V any] struct {
	s     *shard[K, V]
	owner *cache[K, V]
}

func (m shardMetrics[K, V]) Hit() {
	m.s.hits.Add(1)
	m.owner.metrics.Hit()
}

func (m shardMetrics[K, V]) Miss() {
	m.s.misses.Add(1)
	m.owner.metrics.Miss()
}

func (m shardMetrics[K, V]) Reject() {
	m.s.rejects.Add(1)
	m.owner.metrics.Reject()
}

func (m shardMetrics[K, V]) Evict(r lru.EvictReason) {
	m.s.evicts.Add(1)
	m.owner.metrics.Evict(r)
}

func (m shardMetrics[K, V]) Size(entries int, cost float64) {
	m.s.entries.Store(uint64(entries))
	m.s.cost.Store(cost)
	if m.owner.noopMetrics {
		return
	}
	var n uint64
	var total float64
	for _, s := range m.owner.shards {
		n += s.entries.Load()
		total += s.cost.Load()
	}
	m.owner.metrics.Size(int(n), total)
}

var _ lru.Metrics = shardMetrics[string, int]{}
