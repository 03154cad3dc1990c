package main

import (
	"context"
	"testing"
	"time"

	"github.com/IvanBrykalov/costcache/cache"
	"github.com/IvanBrykalov/costcache/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.GetConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Budget = 64 << 10
	cfg.Shards = 4
	cfg.Workers = 4
	cfg.Keys = 10_000
	cfg.Seed = 42
	cfg.ValueMin, cfg.ValueMax = 8, 512
	return cfg
}

func TestWorkload_GetSet(t *testing.T) {
	cfg := testConfig(t)
	c, err := cache.New[string, []byte](cache.Options[string, []byte]{
		Budget: cfg.Budget,
		Shards: cfg.Shards,
		Cost:   byteCost,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := newWorkload(cfg, false).run(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if res.Ops() == 0 || res.Hits+res.Misses != res.Reads {
		t.Fatalf("bad counters: %+v", res)
	}
	if c.Cost() > c.Budget() {
		t.Fatalf("cost %v over budget %v", c.Cost(), c.Budget())
	}
}

func TestWorkload_ReadThrough(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reads = 100
	w := newWorkload(cfg, true)
	c, err := cache.New[string, []byte](cache.Options[string, []byte]{
		Budget: cfg.Budget,
		Shards: cfg.Shards,
		Cost:   byteCost,
		Loader: w.load,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := w.run(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if res.Writes != 0 || res.Reads == 0 {
		t.Fatalf("read-only workload: %+v", res)
	}
	if c.Len() == 0 {
		t.Fatal("loaded values must be cached")
	}
}

func TestWorkload_LoadIsDeterministic(t *testing.T) {
	w := newWorkload(testConfig(t), true)
	a, err := w.load(context.Background(), "k:17")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := w.load(context.Background(), "k:17")
	if len(a) != len(b) || len(a) < 8 || len(a) > 512 {
		t.Fatalf("sizes %d and %d", len(a), len(b))
	}
}
