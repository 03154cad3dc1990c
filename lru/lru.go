package lru

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument is returned for a negative or NaN budget.
	ErrInvalidArgument = errors.New("lru: invalid argument")
	// ErrKeyNotFound is returned by Get and Delete when the key is absent.
	ErrKeyNotFound = errors.New("lru: key not found")
)

// Cache is a cost-bounded LRU cache.
//
// Every entry carries a cost computed by the cost function; the cache keeps
// the sum of costs at or below its budget by evicting least recently used
// entries. Get and Set count as use. An entry whose cost alone exceeds the
// budget is never stored.
//
// Cache is not safe for concurrent use. Guard it with a mutex or confine it
// to one goroutine; package cache does the former.
type Cache[K comparable, V any] struct {
	index map[K]handle
	list  arena[K, V]

	budget float64
	cost   float64
	costFn CostFunc[K, V]

	onEvict func(K, V, EvictReason)
	metrics Metrics
	log     *zap.Logger

	// construction only
	seed []Pair[K, V]
	hint int
}

// New builds a cache. Without options it is unbounded with a cost of 1 per entry.
func New[K comparable, V any](opts ...Option[K, V]) (*Cache[K, V], error) {
	c := &Cache[K, V]{
		budget:  Unbounded,
		costFn:  unitCost[K, V],
		metrics: NoopMetrics{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := checkBudget(c.budget); err != nil {
		return nil, err
	}
	c.index = make(map[K]handle, c.hint)
	c.list = newArena[K, V](c.hint)

	seed := c.seed
	c.seed = nil
	for _, p := range seed {
		c.Set(p.Key, p.Value)
	}
	return c, nil
}

// Set inserts or updates k and marks it most recently used, then evicts
// until the total cost fits the budget. If the entry alone costs more than
// the budget, or its cost is infinite, Set does nothing and an existing
// entry for k is left as is.
func (c *Cache[K, V]) Set(k K, v V) {
	cost := c.costOf(k, v)
	// +Inf fits an Unbounded budget but would poison the running total.
	if cost > c.budget || math.IsInf(cost, 1) {
		c.metrics.Reject()
		c.log.Debug("entry exceeds budget, not stored",
			zap.Any("key", k), zap.Float64("cost", cost), zap.Float64("budget", c.budget))
		return
	}

	if h, ok := c.index[k]; ok {
		n := &c.list.nodes[h]
		c.cost += cost - n.cost
		n.val = v
		n.cost = cost
		c.list.touch(h)
	} else {
		h = c.list.alloc(k, v, cost)
		c.list.pushBack(h)
		c.index[k] = h
		c.cost += cost
	}

	c.evict(EvictBudget)
	c.metrics.Size(len(c.index), c.cost)
}

// Get returns the value for k and marks it most recently used.
// It fails with ErrKeyNotFound if k is absent.
func (c *Cache[K, V]) Get(k K) (V, error) {
	h, ok := c.index[k]
	if !ok {
		c.metrics.Miss()
		var zero V
		return zero, ErrKeyNotFound
	}
	c.metrics.Hit()
	c.list.touch(h)
	return c.list.nodes[h].val, nil
}

// GetOr is the lenient Get: it returns def when k is absent.
func (c *Cache[K, V]) GetOr(k K, def V) V {
	h, ok := c.index[k]
	if !ok {
		c.metrics.Miss()
		return def
	}
	c.metrics.Hit()
	c.list.touch(h)
	return c.list.nodes[h].val
}

// Peek returns the value for k without changing its recency.
func (c *Cache[K, V]) Peek(k K) (V, bool) {
	h, ok := c.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return c.list.nodes[h].val, true
}

// Delete removes k. It fails with ErrKeyNotFound if k is absent.
func (c *Cache[K, V]) Delete(k K) error {
	h, ok := c.index[k]
	if !ok {
		return ErrKeyNotFound
	}
	c.remove(h)
	c.metrics.Size(len(c.index), c.cost)
	return nil
}

// Contains reports whether k is present. Recency is not affected.
func (c *Cache[K, V]) Contains(k K) bool {
	_, ok := c.index[k]
	return ok
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int { return len(c.index) }

// Cost returns the total cost of all entries.
func (c *Cache[K, V]) Cost() float64 { return c.cost }

// Budget returns the maximum total cost.
func (c *Cache[K, V]) Budget() float64 { return c.budget }

// SetBudget changes the maximum total cost and evicts least recently used
// entries until the cache fits. A negative or NaN budget is rejected with
// ErrInvalidArgument and leaves the cache unchanged.
func (c *Cache[K, V]) SetBudget(budget float64) error {
	if err := checkBudget(budget); err != nil {
		return err
	}
	old, before := c.budget, len(c.index)
	c.budget = budget
	c.evict(EvictShrink)
	c.metrics.Size(len(c.index), c.cost)

	c.log.Debug("budget changed",
		zap.Float64("old", old),
		zap.Float64("new", budget),
		zap.Int("evicted", before-len(c.index)))
	return nil
}

// All iterates entries from least to most recently used without touching them.
//
// The cache may be modified during iteration. The walk then stays safe but
// may skip entries or end early; it never yields more entries than were
// present when it started.
func (c *Cache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		h := c.list.front()
		for left := len(c.index); left > 0 && h != sentinel; left-- {
			if int(h) >= len(c.list.nodes) {
				return
			}
			n := c.list.nodes[h]
			if !n.live {
				return
			}
			if !yield(n.key, n.val) {
				return
			}
			h = n.next
		}
	}
}

// Keys returns all keys from least to most recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.index))
	for h := c.list.front(); h != sentinel; h = c.list.nodes[h].next {
		keys = append(keys, c.list.nodes[h].key)
	}
	return keys
}

// Oldest returns the next eviction candidate without touching it.
func (c *Cache[K, V]) Oldest() (k K, v V, ok bool) {
	h := c.list.front()
	if h == sentinel {
		return k, v, false
	}
	n := &c.list.nodes[h]
	return n.key, n.val, true
}

// Purge drops every entry. OnEvict is not called.
func (c *Cache[K, V]) Purge() {
	clear(c.index)
	c.list.reset()
	c.cost = 0
	c.metrics.Size(0, 0)
}

// ---- internals ----

// evict drops LRU entries until the total cost fits the budget.
func (c *Cache[K, V]) evict(reason EvictReason) {
	for c.cost > c.budget && len(c.index) > 0 {
		k, v := c.remove(c.list.front())
		c.metrics.Evict(reason)
		if c.onEvict != nil {
			c.onEvict(k, v, reason)
		}
	}
}

// remove unlinks h, drops it from the index and releases its slot.
func (c *Cache[K, V]) remove(h handle) (K, V) {
	n := c.list.nodes[h]
	c.list.unlink(h)
	delete(c.index, n.key)
	c.list.release(h)
	c.cost -= n.cost

	// Resync instead of trusting repeated float subtraction.
	switch len(c.index) {
	case 0:
		c.cost = 0
	case 1:
		c.cost = c.list.nodes[c.list.front()].cost
	}
	return n.key, n.val
}

// costOf calls the cost function; negative and NaN costs count as zero.
func (c *Cache[K, V]) costOf(k K, v V) float64 {
	cost := c.costFn(k, v)
	if cost < 0 || math.IsNaN(cost) {
		return 0
	}
	return cost
}

func checkBudget(b float64) error {
	if b < 0 || math.IsNaN(b) {
		return fmt.Errorf("%w: budget %v", ErrInvalidArgument, b)
	}
	return nil
}
