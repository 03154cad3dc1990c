package cache

import (
	"sync"

	"github.com/IvanBrykalov/costcache/internal/util"
	"github.com/IvanBrykalov/costcache/lru"
	"go.uber.org/zap"
)

// shard is an independent partition of the cache: a mutex around an
// lru.Cache holding its share of the budget.
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu sync.Mutex
	c  *lru.Cache[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_       util.CacheLinePad
	hits    util.PaddedCounter
	misses  util.PaddedCounter
	evicts  util.PaddedCounter
	rejects util.PaddedCounter

	// last size reported by c, readable without mu
	entries util.PaddedCounter
	cost    util.PaddedFloat
}

func newShard[K comparable, V any](owner *cache[K, V], id int, budget float64, opt Options[K, V]) (*shard[K, V], error) {
	s := &shard[K, V]{}

	opts := []lru.Option[K, V]{
		lru.WithBudget[K, V](budget),
		lru.WithMetrics[K, V](shardMetrics[K, V]{s: s, owner: owner}),
		lru.WithLogger[K, V](owner.log.With(zap.Int("shard", id))),
	}
	if opt.Cost != nil {
		opts = append(opts, lru.WithCost(opt.Cost))
	}
	if opt.OnEvict != nil {
		opts = append(opts, lru.WithOnEvict(opt.OnEvict))
	}

	c, err := lru.New[K, V](opts...)
	if err != nil {
		return nil, err
	}
	s.c = c
	return s, nil
}

func (s *shard[K, V]) set(k K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Set(k, v)
}

func (s *shard[K, V]) get(k K) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Get(k)
}

func (s *shard[K, V]) getOr(k K, def V) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.GetOr(k, def)
}

func (s *shard[K, V]) peek(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Peek(k)
}

func (s *shard[K, V]) delete(k K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Delete(k)
}

func (s *shard[K, V]) contains(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Contains(k)
}

func (s *shard[K, V]) size() (int, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Len(), s.c.Cost()
}

func (s *shard[K, V]) setBudget(b float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.SetBudget(b)
}

// appendKeys appends this shard's keys, least recently used first.
func (s *shard[K, V]) appendKeys(dst []K) []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.c.All() {
		dst = append(dst, k)
	}
	return dst
}
