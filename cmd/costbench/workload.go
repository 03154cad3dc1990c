package main

import (
	"context"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/costcache/cache"
	"github.com/IvanBrykalov/costcache/internal/config"
	"golang.org/x/sync/errgroup"
)

// byteCost weighs an entry by its value size.
func byteCost(_ string, v []byte) float64 { return float64(len(v)) }

type workload struct {
	cfg *config.Config
	// readThrough sends reads through GetOrLoad; the cache needs w.load as Loader.
	readThrough bool
}

func newWorkload(cfg *config.Config, readThrough bool) *workload {
	return &workload{cfg: cfg, readThrough: readThrough}
}

type result struct {
	Reads, Writes, Hits, Misses uint64
	Elapsed                     time.Duration
}

func (r result) Ops() uint64 { return r.Reads + r.Writes }

func (r result) HitRate() float64 {
	if r.Reads == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Reads) * 100
}

// valueSize picks a size in [ValueMin, ValueMax].
func (w *workload) valueSize(r *rand.Rand) int {
	span := w.cfg.ValueMax - w.cfg.ValueMin
	if span <= 0 {
		return w.cfg.ValueMin
	}
	return w.cfg.ValueMin + r.Intn(span+1)
}

// load is the Loader used in read-through mode. The value size is derived
// from the key so repeated loads of one key agree.
func (w *workload) load(ctx context.Context, k string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, _ := strconv.ParseInt(k[2:], 10, 64)
	r := rand.New(rand.NewSource(w.cfg.Seed ^ n))
	return make([]byte, w.valueSize(r)), nil
}

// run drives cfg.Workers goroutines until ctx is done.
func (w *workload) run(ctx context.Context, c cache.Cache[string, []byte]) (result, error) {
	var reads, writes, hits, misses atomic.Uint64
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for id := 0; id < w.cfg.Workers; id++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewSource(w.cfg.Seed + int64(id)*9973))
			zipf := rand.NewZipf(r, w.cfg.ZipfS, w.cfg.ZipfV, w.cfg.Keys-1)

			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				k := "k:" + strconv.FormatUint(zipf.Uint64(), 10)
				if r.Intn(100) >= w.cfg.Reads {
					writes.Add(1)
					c.Set(k, make([]byte, w.valueSize(r)))
					continue
				}

				reads.Add(1)
				var err error
				if w.readThrough {
					// a hit on the fast path never touches the loader
					hit := c.Contains(k)
					_, err = c.GetOrLoad(ctx, k)
					if hit {
						hits.Add(1)
					} else {
						misses.Add(1)
					}
				} else if _, err = c.Get(k); err == nil {
					hits.Add(1)
				} else {
					misses.Add(1)
					err = nil
				}
				if err != nil && ctx.Err() == nil {
					return err
				}
			}
		})
	}
	err := g.Wait()

	return result{
		Reads:   reads.Load(),
		Writes:  writes.Load(),
		Hits:    hits.Load(),
		Misses:  misses.Load(),
		Elapsed: time.Since(start),
	}, err
}
