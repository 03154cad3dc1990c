// Package singleflight coalesces concurrent loads of the same key.
package singleflight

import (
	"context"
	"fmt"
	"sync"
)

// Group runs at most one fn per key at a time; callers arriving while a
// call is in flight wait for its result instead of starting their own.
//
// fn runs on its own goroutine. Every caller, the one that started it
// included, waits on its own ctx: a caller whose ctx ends returns ctx.Err()
// while the call keeps running for the others.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed once val/err are set
	val  V
	err  error
	dups int
}

// Do runs fn for key unless a call is already in flight, in which case it
// waits for that call. shared reports whether the result went to more than
// one caller. A panic in fn is turned into an error for every caller.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, shared bool, err error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()
		return g.wait(ctx, c, true)
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	go g.run(key, c, fn)
	return g.wait(ctx, c, false)
}

func (g *Group[K, V]) wait(ctx context.Context, c *call[V], follower bool) (V, bool, error) {
	select {
	case <-c.done:
		shared := follower
		if !follower {
			g.mu.Lock()
			shared = c.dups > 0
			g.mu.Unlock()
		}
		return c.val, shared, c.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("singleflight: load panicked: %v", r)
		}
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn()
}

// Forget drops the in-flight marker for key, so the next Do starts a new
// call even if the current one has not finished.
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}
