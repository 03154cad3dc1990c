package lru

import (
	"math"

	"go.uber.org/zap"
)

// Unbounded is the default budget: nothing is ever evicted.
var Unbounded = math.Inf(1)

// CostFunc assigns a non-negative weight to an entry, e.g. its size in bytes.
// It must not panic for any pair the cache passes it.
type CostFunc[K comparable, V any] func(k K, v V) float64

// Pair is a key/value pair used to seed a cache.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// Option configures a Cache in New.
type Option[K comparable, V any] func(*Cache[K, V])

// WithBudget sets the maximum total cost. Negative or NaN budgets make New fail.
func WithBudget[K comparable, V any](budget float64) Option[K, V] {
	return func(c *Cache[K, V]) { c.budget = budget }
}

// WithCost sets the cost function. nil keeps the default of 1 per entry.
func WithCost[K comparable, V any](fn func(k K, v V) float64) Option[K, V] {
	return func(c *Cache[K, V]) {
		if fn != nil {
			c.costFn = fn
		}
	}
}

// WithItems seeds the cache. Pairs are inserted in order with Set once every
// other option has been applied, so budget and cost rules hold for them too.
func WithItems[K comparable, V any](items ...Pair[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) { c.seed = append(c.seed, items...) }
}

// WithOnEvict registers a callback for entries removed by the eviction loop.
// Delete and Purge do not invoke it. fn must not call back into the cache.
func WithOnEvict[K comparable, V any](fn func(k K, v V, reason EvictReason)) Option[K, V] {
	return func(c *Cache[K, V]) { c.onEvict = fn }
}

// WithMetrics wires an observability sink. nil keeps NoopMetrics.
func WithMetrics[K comparable, V any](m Metrics) Option[K, V] {
	return func(c *Cache[K, V]) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger. nil keeps a no-op logger.
func WithLogger[K comparable, V any](l *zap.Logger) Option[K, V] {
	return func(c *Cache[K, V]) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSizeHint pre-allocates room for n entries.
func WithSizeHint[K comparable, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) { c.hint = n }
}

func unitCost[K comparable, V any](K, V) float64 { return 1 }
