package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goEMS/session"
	"github.com/MrEthical07/goEMS/storage"
)

const benchTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type benchConfig struct {
	prefix      string
	origins     int
	concurrency int
	ops         int
	ttl         time.Duration
}

// failureObserver counts write-through failures; setters never return them.
type failureObserver struct {
	failures atomic.Int64
}

func (o *failureObserver) HydrateCompleted(bool, error) {}

func (o *failureObserver) MirrorFailed(string, error) { o.failures.Add(1) }

func (o *failureObserver) MirrorLatency(time.Duration) {}

func bench(ctx context.Context, client redis.UniversalClient, cfg benchConfig, out io.Writer) error {
	backends := make([]storage.Backend, cfg.origins)
	for i := range backends {
		backends[i] = storage.NewRedisBackend(client, cfg.prefix, "origin-"+strconv.Itoa(i), cfg.ttl)
	}

	fmt.Fprintf(out, "seeding %d origins...\n", cfg.origins)
	seedObs := &failureObserver{}
	startSeed := time.Now()
	for i, backend := range backends {
		store := session.NewStore(backend, session.Options{Logger: quietLogger(), Observer: seedObs})
		store.SetUser(ctx, &session.User{ID: session.ID("u" + strconv.Itoa(i)), Role: "employee", Name: "Bench"})
		store.SetLoggedIn(ctx, true)
		store.SetLoginTime(ctx, startSeed.UTC().Format(benchTimeLayout))
	}
	if n := seedObs.failures.Load(); n > 0 {
		return fmt.Errorf("seed failed: %d writes not persisted", n)
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	hydrateStats := runHydratePhase(ctx, backends, cfg.ops, cfg.concurrency)
	writeStats := runWritePhase(ctx, backends, cfg.ops, cfg.concurrency)

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "hydrate", hydrateStats)
	printStats(out, "write", writeStats)
	return nil
}

func runHydratePhase(ctx context.Context, backends []storage.Backend, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand, _ int) bool {
		store := session.NewStore(backends[r.Intn(len(backends))], session.Options{Logger: quietLogger()})
		return store.Hydrate(ctx).LoggedIn()
	})
}

func runWritePhase(ctx context.Context, backends []storage.Backend, ops, concurrency int) phaseStats {
	stores := make([]*session.Store, len(backends))
	obs := &failureObserver{}
	for i, backend := range backends {
		stores[i] = session.NewStore(backend, session.Options{Logger: quietLogger(), Observer: obs})
	}
	return runPhase(ops, concurrency, 6151, func(r *rand.Rand, i int) bool {
		before := obs.failures.Load()
		at := time.Unix(int64(i), 0).UTC().Format(benchTimeLayout)
		stores[r.Intn(len(stores))].SetLogoutTime(ctx, at)
		return obs.failures.Load() == before
	})
}

// runPhase executes ops calls of op across concurrency workers and records
// the latency of each call. op reports success.
func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op(r, i)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
