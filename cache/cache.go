package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/IvanBrykalov/costcache/internal/singleflight"
	"github.com/IvanBrykalov/costcache/internal/util"
	"github.com/IvanBrykalov/costcache/lru"
	"go.uber.org/zap"
)

var (
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache: closed")
)

// cache is a sharded front end over lru.Cache.
// All methods are safe for concurrent use by multiple goroutines.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   util.Hasher[K]
	closed atomic.Bool
	budget util.PaddedFloat

	opt         Options[K, V]
	metrics     lru.Metrics
	noopMetrics bool
	log         *zap.Logger

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache with the provided Options.
// It fails with lru.ErrInvalidArgument for a negative or NaN budget.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if opt.Budget < 0 || math.IsNaN(opt.Budget) {
		return nil, fmt.Errorf("%w: budget %v", lru.ErrInvalidArgument, opt.Budget)
	}
	c := &cache[K, V]{
		hash:    util.Hash[K],
		opt:     opt,
		metrics: opt.Metrics,
		log:     opt.Logger,
	}
	if c.metrics == nil {
		c.metrics = lru.NoopMetrics{}
	}
	_, c.noopMetrics = c.metrics.(lru.NoopMetrics)
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.budget.Store(opt.Budget)

	n := util.ShardCount(opt.Shards)
	per := opt.Budget / float64(n)
	c.shards = make([]*shard[K, V], n)
	for i := range c.shards {
		s, err := newShard(c, i, per, opt)
		if err != nil {
			return nil, err
		}
		c.shards[i] = s
	}

	c.log.Info("cache created",
		zap.Int("shards", n),
		zap.Float64("budget", opt.Budget),
		zap.Float64("shard_budget", per))

	// return pointer-to-impl as the interface (avoids unexported-return lint)
	return c, nil
}

// ---- Cache[K,V] implementation ----

func (c *cache[K, V]) Set(k K, v V) {
	if c.closed.Load() {
		return
	}
	c.shardFor(k).set(k, v)
}

func (c *cache[K, V]) Get(k K) (V, error) {
	if c.closed.Load() {
		var zero V
		return zero, ErrClosed
	}
	return c.shardFor(k).get(k)
}

func (c *cache[K, V]) GetOr(k K, def V) V {
	if c.closed.Load() {
		return def
	}
	return c.shardFor(k).getOr(k, def)
}

func (c *cache[K, V]) Peek(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.shardFor(k).peek(k)
}

func (c *cache[K, V]) Delete(k K) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.shardFor(k).delete(k)
}

func (c *cache[K, V]) Contains(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.shardFor(k).contains(k)
}

func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		n, _ := s.size()
		total += n
	}
	return total
}

func (c *cache[K, V]) Cost() float64 {
	var total float64
	for _, s := range c.shards {
		_, cost := s.size()
		total += cost
	}
	return total
}

func (c *cache[K, V]) Budget() float64 { return c.budget.Load() }

func (c *cache[K, V]) SetBudget(budget float64) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if budget < 0 || math.IsNaN(budget) {
		return fmt.Errorf("%w: budget %v", lru.ErrInvalidArgument, budget)
	}
	old := c.budget.Load()
	c.budget.Store(budget)

	per := budget / float64(len(c.shards))
	for _, s := range c.shards {
		if err := s.setBudget(per); err != nil {
			return err
		}
	}
	c.log.Info("budget changed",
		zap.Float64("old", old),
		zap.Float64("new", budget),
		zap.Int("entries", c.Len()))
	return nil
}

func (c *cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.Len())
	for _, s := range c.shards {
		keys = s.appendKeys(keys)
	}
	return keys
}

func (c *cache[K, V]) Stats() Stats {
	var st Stats
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
		st.Rejections += s.rejects.Load()
		n, cost := s.size()
		st.Entries += n
		st.Cost += cost
	}
	return st
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key. Loader errors are returned
// as is and nothing is stored.
//
// The Loader gets the first caller's ctx values but not its cancellation;
// each caller stops waiting when its own ctx ends, and the load still fills
// the cache for the rest.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, ErrClosed
	}
	s := c.shardFor(k)

	// fast path
	v, err := s.get(k)
	if err == nil {
		return v, nil
	}
	if c.opt.Loader == nil {
		return zero, ErrNoLoader
	}

	loadCtx := context.WithoutCancel(ctx)
	v, shared, err := c.sf.Do(ctx, k, func() (V, error) {
		// double-check after winning the flight
		if v, ok := s.peek(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(loadCtx, k)
		if err == nil {
			s.set(k, v)
		}
		return v, err
	})
	if err != nil {
		c.log.Debug("load failed", zap.Any("key", k), zap.Bool("shared", shared), zap.Error(err))
		return zero, err
	}
	return v, nil
}

// Close marks the cache as closed. Future writes are ignored.
func (c *cache[K, V]) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	st := c.Stats()
	c.log.Info("cache closed",
		zap.Uint64("hits", st.Hits),
		zap.Uint64("misses", st.Misses),
		zap.Uint64("evictions", st.Evictions),
		zap.Uint64("rejections", st.Rejections),
		zap.Int("entries", st.Entries),
		zap.Float64("cost", st.Cost))
	return nil
}

// ---- helpers ----

// shardFor picks a shard by hashing the key; len(c.shards) is a power of two.
func (c *cache[K, V]) shardFor(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}
