// Package lru implements a cost-bounded least-recently-used cache.
//
// Each entry has a cost given by a user function (1 per entry by default).
// The cache holds entries while the sum of their costs stays within a
// budget; Set and SetBudget evict from the least recently used end until it
// does. Entries that alone cost more than the budget are rejected on Set.
//
// Storage
//
// Entries live in an arena of nodes linked by integer handles into a circular
// list around a sentinel at handle 0. The sentinel's next node is the least
// recently used entry, its previous node the most recently used one. A map
// from key to handle gives O(1) lookup; touch, insert and evict are O(1)
// splices. Released slots are zeroed and reused.
//
// Usage
//
//	c, err := lru.New[string, []byte](
//	    lru.WithBudget[string, []byte](1<<20),
//	    lru.WithCost(func(_ string, v []byte) float64 { return float64(len(v)) }),
//	)
//	if err != nil {
//	    return err
//	}
//	c.Set("a", payload)
//	v, err := c.Get("a") // errors.Is(err, lru.ErrKeyNotFound) on miss
//
// A Cache is not safe for concurrent use; see package cache for a sharded,
// mutex-guarded front end.
package lru
