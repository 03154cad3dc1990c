package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IvanBrykalov/costcache/lru"
	"golang.org/x/sync/errgroup"
)

func mustNew[K comparable, V any](t *testing.T, opt Options[K, V]) Cache[K, V] {
	t.Helper()
	c, err := New[K, V](opt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	for _, b := range []float64{-1, math.NaN()} {
		if _, err := New[string, int](Options[string, int]{Budget: b}); !errors.Is(err, lru.ErrInvalidArgument) {
			t.Fatalf("budget %v: want ErrInvalidArgument, got %v", b, err)
		}
	}
}

type point struct{ x, y int }

// Keys of any comparable type are sharded, including structs behind `any`.
func TestCache_AnyKey(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[any, int]{Budget: 10, Shards: 1})
	keys := []any{point{1, 2}, point{2, 1}, "s", 7, int64(7), 1.5, true, nil}
	for i, k := range keys {
		c.Set(k, i)
	}
	for i, k := range keys {
		if v, err := c.Get(k); err != nil || v != i {
			t.Fatalf("Get(%#v) = %v, %v; want %d", k, v, err, i)
		}
	}
	if err := c.Delete(point{1, 2}); err != nil {
		t.Fatal(err)
	}
	if c.Contains(point{1, 2}) || !c.Contains(point{2, 1}) {
		t.Fatal("Delete removed the wrong struct key")
	}

	ps := mustNew(t, Options[point, string]{Budget: 4, Shards: 2})
	ps.Set(point{0, 0}, "origin")
	if v := ps.GetOr(point{0, 0}, ""); v != "origin" {
		t.Fatalf("struct key: got %q", v)
	}
}

// Basic Set/Get/GetOr/Delete semantics.
func TestCache_BasicSetGetDelete(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[string, int]{Budget: 8, Shards: 2})

	c.Set("a", 1)
	c.Set("a", 11)
	if v, err := c.Get("a"); err != nil || v != 11 {
		t.Fatalf("Get a want 11, got %v err=%v", v, err)
	}
	if v := c.GetOr("zzz", -1); v != -1 {
		t.Fatalf("GetOr miss want -1, got %v", v)
	}
	if _, err := c.Get("zzz"); !errors.Is(err, lru.ErrKeyNotFound) {
		t.Fatalf("Get miss want ErrKeyNotFound, got %v", err)
	}

	if err := c.Delete("a"); err != nil {
		t.Fatalf("Delete a: %v", err)
	}
	if c.Contains("a") {
		t.Fatal("a must be absent after Delete")
	}
	if err := c.Delete("a"); !errors.Is(err, lru.ErrKeyNotFound) {
		t.Fatalf("second Delete want ErrKeyNotFound, got %v", err)
	}
	if c.Cost() != 0 {
		t.Fatalf("empty cache cost = %v", c.Cost())
	}
}

// Deterministic LRU eviction: single shard, budget 2, unit cost.
// Accessing "a" promotes it; inserting "c" evicts LRU ("b").
func TestCache_EvictionLRU(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[string, int]{
		Budget: 2,
		Shards: 1, // force a single shard so LRU is global
	})

	c.Set("a", 1) // LRU = a
	c.Set("b", 2) // MRU = b

	if _, err := c.Get("a"); err != nil { // promote a -> MRU
		t.Fatal("expect hit for a")
	}
	c.Set("c", 3) // overflow -> evict LRU (b)

	if c.Contains("b") {
		t.Fatal("b must be evicted")
	}
	if !c.Contains("a") {
		t.Fatal("a must survive (promoted)")
	}
	if got := fmt.Sprint(c.Keys()); got != "[a c]" {
		t.Fatalf("Keys = %s, want [a c]", got)
	}
}

// Costs are weighed per entry and the per-shard share of the budget holds.
func TestCache_WeightedBudget(t *testing.T) {
	t.Parallel()

	var evicted atomic.Int32
	c := mustNew(t, Options[int, []byte]{
		Budget:  400,
		Shards:  4,
		Cost:    func(_ int, v []byte) float64 { return float64(len(v)) },
		OnEvict: func(int, []byte, lru.EvictReason) { evicted.Add(1) },
	})

	for i := 0; i < 1000; i++ {
		c.Set(i, make([]byte, 1+i%20))
	}
	if c.Cost() > c.Budget() {
		t.Fatalf("cost %v over budget %v", c.Cost(), c.Budget())
	}
	impl := c.(*cache[int, []byte])
	for i, s := range impl.shards {
		if _, cost := s.size(); cost > 100 {
			t.Fatalf("shard %d cost %v over its share 100", i, cost)
		}
	}
	st := c.Stats()
	if st.Evictions == 0 || uint64(evicted.Load()) != st.Evictions {
		t.Fatalf("evictions: stats=%d callback=%d", st.Evictions, evicted.Load())
	}
	if st.Entries != c.Len() {
		t.Fatalf("Stats.Entries=%d Len=%d", st.Entries, c.Len())
	}
}

func TestCache_RejectsOversized(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[string, string]{
		Budget: 10,
		Shards: 2, // 5 per shard
		Cost:   func(_ string, v string) float64 { return float64(len(v)) },
	})
	c.Set("x", "123456")
	if c.Contains("x") || c.Len() != 0 || c.Cost() != 0 {
		t.Fatal("entry larger than the shard budget must be dropped")
	}
	if st := c.Stats(); st.Rejections != 1 {
		t.Fatalf("Rejections = %d, want 1", st.Rejections)
	}
}

func TestCache_SetBudget(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[int, int]{Budget: lru.Unbounded, Shards: 4})
	for i := 0; i < 100; i++ {
		c.Set(i, i)
	}
	if c.Len() != 100 {
		t.Fatalf("Len = %d", c.Len())
	}

	if err := c.SetBudget(-1); !errors.Is(err, lru.ErrInvalidArgument) {
		t.Fatalf("negative budget: %v", err)
	}
	if c.Budget() != lru.Unbounded {
		t.Fatal("failed SetBudget must not change the budget")
	}

	if err := c.SetBudget(8); err != nil {
		t.Fatal(err)
	}
	if c.Len() > 8 || c.Cost() > 8 {
		t.Fatalf("after shrink: len=%d cost=%v", c.Len(), c.Cost())
	}
	if err := c.SetBudget(0); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Fatalf("zero budget keeps %d entries", c.Len())
	}
}

func TestCache_Closed(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[string, int]{Budget: 4})
	c.Set("a", 1)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal("second Close must be a no-op")
	}

	c.Set("b", 2)
	if _, err := c.Get("a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get after Close: %v", err)
	}
	if err := c.Delete("a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Delete after Close: %v", err)
	}
	if _, err := c.GetOrLoad(context.Background(), "a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("GetOrLoad after Close: %v", err)
	}
	if err := c.SetBudget(1); !errors.Is(err, ErrClosed) {
		t.Fatalf("SetBudget after Close: %v", err)
	}
	if v := c.GetOr("a", -1); v != -1 {
		t.Fatalf("GetOr after Close = %d, want default", v)
	}
	if _, ok := c.Peek("a"); ok || c.Contains("a") {
		t.Fatal("Peek/Contains after Close must report absence")
	}
	if c.Len() != 1 || c.Cost() != 1 || len(c.Keys()) != 1 || c.Stats().Entries != 1 {
		t.Fatalf("size queries after Close: len=%d cost=%v", c.Len(), c.Cost())
	}
}

func TestCache_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Options[string, int]{Budget: 4})
	if _, err := c.GetOrLoad(context.Background(), "k"); !errors.Is(err, ErrNoLoader) {
		t.Fatalf("want ErrNoLoader, got %v", err)
	}
}

func TestCache_GetOrLoad_ErrorNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int32
	c := mustNew(t, Options[string, int]{
		Budget: 4,
		Loader: func(context.Context, string) (int, error) {
			calls.Add(1)
			return 0, boom
		},
	})
	for i := 0; i < 2; i++ {
		if _, err := c.GetOrLoad(context.Background(), "k"); !errors.Is(err, boom) {
			t.Fatalf("want loader error, got %v", err)
		}
	}
	if c.Contains("k") {
		t.Fatal("failed load must not be cached")
	}
	if calls.Load() != 2 {
		t.Fatalf("loader calls = %d, want 2", calls.Load())
	}
}

// Concurrent GetOrLoad calls for the same key should trigger the Loader at
// most once; subsequent calls are cache hits.
func TestCache_GetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c := mustNew(t, Options[string, string]{
		Budget: 64,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
	})

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}

	if v, err := c.GetOrLoad(context.Background(), "k"); err != nil || v != "v:k" {
		t.Fatalf("second GetOrLoad failed: v=%q err=%v", v, err)
	}
}

// A caller giving up must not fail the others waiting on the same load.
func TestCache_GetOrLoad_LeaderCancel(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	inFlight := make(chan struct{})
	var calls atomic.Int32
	c := mustNew(t, Options[string, string]{
		Budget: 8,
		Shards: 1,
		Loader: func(ctx context.Context, k string) (string, error) {
			if calls.Add(1) == 1 {
				close(inFlight)
			}
			<-release
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return "v:" + k, nil
		},
	})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(leaderCtx, "k")
		leaderErr <- err
	}()
	<-inFlight

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(context.Background(), "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	// leader plus four followers have missed the fast path; a straggler
	// still joins the running load, which outlives the leader.
	deadline := time.Now().Add(5 * time.Second)
	for c.Stats().Misses < 5 {
		if time.Now().After(deadline) {
			t.Fatal("followers never reached the load")
		}
		time.Sleep(time.Millisecond)
	}

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("leader: want context.Canceled, got %v", err)
	}
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("followers: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("loader calls = %d, want 1", calls.Load())
	}
	if !c.Contains("k") {
		t.Fatal("completed load must be cached")
	}
}

type recordingMetrics struct {
	hits, misses, rejects, evicts atomic.Int64
	entries                       atomic.Int64
}

func (m *recordingMetrics) Hit()                  { m.hits.Add(1) }
func (m *recordingMetrics) Miss()                 { m.misses.Add(1) }
func (m *recordingMetrics) Reject()               { m.rejects.Add(1) }
func (m *recordingMetrics) Evict(lru.EvictReason) { m.evicts.Add(1) }
func (m *recordingMetrics) Size(n int, _ float64) { m.entries.Store(int64(n)) }

// Size must report cache-wide totals, not the size of the shard that changed.
func TestCache_MetricsReportGlobalSize(t *testing.T) {
	t.Parallel()

	m := &recordingMetrics{}
	c := mustNew(t, Options[int, int]{Budget: lru.Unbounded, Shards: 8, Metrics: m})
	for i := 0; i < 50; i++ {
		c.Set(i, i)
	}
	if got := m.entries.Load(); got != 50 {
		t.Fatalf("reported entries = %d, want 50", got)
	}
	c.GetOr(1, 0)
	c.GetOr(1000, 0)
	if m.hits.Load() != 1 || m.misses.Load() != 1 {
		t.Fatalf("hits=%d misses=%d", m.hits.Load(), m.misses.Load())
	}
}
