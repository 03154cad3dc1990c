// Command costbench runs a synthetic byte-weighted workload against the cache
// and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/IvanBrykalov/costcache/cache"
	"github.com/IvanBrykalov/costcache/internal/config"
	"github.com/IvanBrykalov/costcache/internal/logger"
	pmet "github.com/IvanBrykalov/costcache/metrics/prom"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "costbench",
		Usage: "load-test the cost-bounded cache",
		Commands: []*cli.Command{
			runCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "costbench:", err)
		os.Exit(1)
	}
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run a workload; flags override " + config.Prefix + "_* environment variables",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "budget", Usage: "total cache budget in bytes"},
		&cli.IntFlag{Name: "shards", Usage: "number of shards (0 = auto)"},
		&cli.IntFlag{Name: "workers", Usage: "worker goroutines (0 = 2*GOMAXPROCS)"},
		&cli.DurationFlag{Name: "duration", Usage: "benchmark duration"},
		&cli.IntFlag{Name: "reads", Usage: "read percentage [0..100]"},
		&cli.Uint64Flag{Name: "keys", Usage: "keyspace size"},
		&cli.Float64Flag{Name: "zipf-s", Usage: "Zipf s > 1 (skew)"},
		&cli.Float64Flag{Name: "zipf-v", Usage: "Zipf v >= 1"},
		&cli.Int64Flag{Name: "seed", Usage: "random seed (0 = time based)"},
		&cli.IntFlag{Name: "value-min", Usage: "smallest value size in bytes"},
		&cli.IntFlag{Name: "value-max", Usage: "largest value size in bytes"},
		&cli.BoolFlag{Name: "loader", Usage: "read through GetOrLoad instead of Get/Set"},
		&cli.StringFlag{Name: "http", Usage: "serve Prometheus metrics at addr; empty = disabled"},
		&cli.StringFlag{Name: "pprof", Usage: "serve pprof at addr (e.g. :6060); empty = disabled"},
		&cli.StringFlag{Name: "log-level", Usage: "debug | info | warn | error"},
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := config.GetConfig()
		if err != nil {
			return err
		}
		applyFlags(ctx, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(ctx.Context, cfg, ctx.Bool("loader"))
	},
}

// applyFlags copies explicitly set flags over the environment values.
func applyFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet("budget") {
		cfg.Budget = ctx.Float64("budget")
	}
	if ctx.IsSet("shards") {
		cfg.Shards = ctx.Int("shards")
	}
	if ctx.IsSet("workers") {
		cfg.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("duration") {
		cfg.Duration = ctx.Duration("duration")
	}
	if ctx.IsSet("reads") {
		cfg.Reads = ctx.Int("reads")
	}
	if ctx.IsSet("keys") {
		cfg.Keys = ctx.Uint64("keys")
	}
	if ctx.IsSet("zipf-s") {
		cfg.ZipfS = ctx.Float64("zipf-s")
	}
	if ctx.IsSet("zipf-v") {
		cfg.ZipfV = ctx.Float64("zipf-v")
	}
	if ctx.IsSet("seed") {
		cfg.Seed = ctx.Int64("seed")
	}
	if ctx.IsSet("value-min") {
		cfg.ValueMin = ctx.Int("value-min")
	}
	if ctx.IsSet("value-max") {
		cfg.ValueMax = ctx.Int("value-max")
	}
	if ctx.IsSet("http") {
		cfg.HTTP = ctx.String("http")
	}
	if ctx.IsSet("pprof") {
		cfg.Pprof = ctx.String("pprof")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
}

func run(parent context.Context, cfg *config.Config, useLoader bool) error {
	runID := uuid.New()
	log, err := logger.New("costbench", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.Stringer("run", runID))

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2 * runtime.GOMAXPROCS(0)
	}

	// ---- pprof server (on DefaultServeMux) ----
	if cfg.Pprof != "" {
		go serve(log, "pprof", cfg.Pprof, http.DefaultServeMux)
	}

	// ---- Prometheus metrics (own registry and mux) ----
	reg := prometheus.NewRegistry()
	metrics := pmet.New(reg, "costcache", "bench", prometheus.Labels{"run": runID.String()})
	if cfg.HTTP != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go serve(log, "metrics", cfg.HTTP, mux)
	}

	// ---- Build cache ----
	w := newWorkload(cfg, useLoader)
	opt := cache.Options[string, []byte]{
		Budget:  cfg.Budget,
		Shards:  cfg.Shards,
		Cost:    byteCost,
		Metrics: metrics,
		Logger:  log,
	}
	if useLoader {
		opt.Loader = w.load
	}
	c, err := cache.New[string, []byte](opt)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	log.Info("workload started",
		zap.Int("workers", cfg.Workers),
		zap.Duration("duration", cfg.Duration),
		zap.Int("reads_pct", cfg.Reads),
		zap.Bool("loader", useLoader),
		zap.Int64("seed", cfg.Seed))

	res, err := w.run(ctx, c)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}

	// ---- Report ----
	st := c.Stats()
	fmt.Printf("run=%s budget=%.0f shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		runID, cfg.Budget, cfg.Shards, cfg.Workers, cfg.Keys, res.Elapsed, cfg.Seed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		res.Ops(), float64(res.Ops())/res.Elapsed.Seconds(), res.Reads, res.Writes)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", res.Hits, res.Misses, res.HitRate())
	fmt.Printf("entries=%d  cost=%.0f/%.0f bytes  evictions=%d  rejections=%d\n",
		st.Entries, st.Cost, c.Budget(), st.Evictions, st.Rejections)
	return nil
}

func serve(log *zap.Logger, what, addr string, h http.Handler) {
	log.Info("serving", zap.String("what", what), zap.String("addr", addr))
	if err := http.ListenAndServe(addr, h); err != nil {
		log.Warn("server stopped", zap.String("what", what), zap.Error(err))
	}
}
