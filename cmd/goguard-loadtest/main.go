package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mathrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type seededSession struct {
	subjectID string
	sessionID string
	token     string
	role      goGuard.Role
}

var routes = []goGuard.Route{
	{Path: "/"},
	{Path: "/dashboard"},
	goGuard.RouteFor("/bookings", goGuard.RoleTraveler),
	goGuard.RouteFor("/listings", goGuard.RoleOwner),
	goGuard.RouteFor("/messages", goGuard.RoleOwner, goGuard.RoleTraveler),
}

func main() {
	var (
		subjects    = flag.Int("subjects", 10000, "number of signed-in subjects to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "request-scoped evaluations to run")
		guards      = flag.Int("guards", 2000, "guards to mount and resolve")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 || *guards < 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		fmt.Fprintf(os.Stderr, "secret: %v\n", err)
		os.Exit(1)
	}
	cfg := goGuard.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = secret
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goGuard.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d subjects...\n", *subjects)
	startSeed := time.Now()
	seeded := make([]seededSession, *subjects)
	for i := range seeded {
		role := goGuard.RoleTraveler
		if i%5 == 0 {
			role = goGuard.RoleOwner
		}
		subjectID := fmt.Sprintf("subject-%d", i)
		if _, err := engine.Onboard(ctx, subjectID, role, subjectID); err != nil {
			fmt.Fprintf(os.Stderr, "onboard failed: %v\n", err)
			os.Exit(1)
		}
		res, err := engine.SignIn(ctx, subjectID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sign-in failed: %v\n", err)
			os.Exit(1)
		}
		seeded[i] = seededSession{subjectID: subjectID, sessionID: res.SessionID, token: res.Token, role: role}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	evaluateStats := runEvaluatePhase(ctx, engine, seeded, *ops, *concurrency)
	guardStats := runGuardPhase(ctx, engine, seeded, *guards, *concurrency)

	fmt.Println("---- results ----")
	printStats("evaluate", evaluateStats)
	printStats("guard", guardStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("permits=%d landing=%d role=%d store_errors=%d stale=%d\n",
		snap.Counters[goGuard.MetricAccessPermit],
		snap.Counters[goGuard.MetricRedirectLanding],
		snap.Counters[goGuard.MetricRedirectRoleNotPermitted],
		snap.Counters[goGuard.MetricRedirectProfileStore],
		snap.Counters[goGuard.MetricStaleResolution],
	)
}

// unexpected reports decisions that only happen when the backend misbehaves
// for a seeded subject.
func unexpected(d goGuard.Decision) bool {
	switch d.Reason {
	case goGuard.ErrUnauthenticated, goGuard.ErrProfileMissing, goGuard.ErrProfileStore:
		return true
	default:
		return false
	}
}

func runEvaluatePhase(ctx context.Context, engine *goGuard.Engine, seeded []seededSession, ops, concurrency int) phaseStats {
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
			r := mathrand.New(mathrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				s := seeded[r.Intn(len(seeded))]
				route := routes[r.Intn(len(routes))]

				t0 := time.Now()
				d, _ := engine.Evaluate(ctx, s.token, route)
				elapsed := time.Since(t0)
				if unexpected(d) {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runGuardPhase mounts a guard per operation and measures the time to its
// first applied decision.
func runGuardPhase(ctx context.Context, engine *goGuard.Engine, seeded []seededSession, ops, concurrency int) phaseStats {
	if ops == 0 {
		return phaseStats{}
	}
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	noop := goGuard.RouterFunc(func(string) {})
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mathrand.New(mathrand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			decided := make(chan goGuard.Decision, 1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				s := seeded[r.Intn(len(seeded))]
				route := routes[r.Intn(len(routes))]

				t0 := time.Now()
				g := engine.NewGuard(s.sessionID, route, noop, nil, goGuard.WithDecisionHook(func(d goGuard.Decision) {
					select {
					case decided <- d:
					default:
					}
				}))
				if err := g.Mount(ctx); err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				select {
				case d := <-decided:
					if unexpected(d) {
						atomic.AddInt64(&failures, 1)
					}
				case <-time.After(5 * time.Second):
					atomic.AddInt64(&failures, 1)
				}
				elapsed := time.Since(t0)
				g.Unmount()
				select {
				case <-decided:
				default:
				}

				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
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
		return phaseStats{total: total, failures: failures}
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
