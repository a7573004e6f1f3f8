// Command authflow-loadtest drives the login coordinator and the session
// guard lookup concurrently and prints latency percentiles per phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/memauth"
	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/session"
	"github.com/MrEthical07/authflow/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const seedPassword = "Loadtest123"

func main() {
	var (
		users       = flag.Int("users", 500, "number of users to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "operations per phase (login + lookup)")
		failRatio   = flag.Float64("fail-ratio", 0.1, "fraction of logins sent with a wrong password")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "aflt", "session key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	svc, err := newService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "service: %v\n", err)
		os.Exit(1)
	}

	emails := make([]string, *users)
	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	for i := range emails {
		emails[i] = fmt.Sprintf("user%d@loadtest.local", i)
		if _, err := svc.AddUser(memauth.NewUser{
			Name:            fmt.Sprintf("user %d", i),
			Email:           emails[i],
			Password:        seedPassword,
			ProfileComplete: i%2 == 0,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cfg := authflow.DefaultConfig()
	cfg.Session.RedisPrefix = *prefix
	// Wrong-password samples would otherwise lock seeded users out mid-run.
	cfg.Login.EnableThrottle = false
	cfg.Metrics.Enabled = true

	c, err := authflow.New().
		WithConfig(cfg).
		WithAuthService(svc).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "coordinator: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	clients := make([]string, *ops)
	for i := range clients {
		clients[i] = uuid.NewString()
	}

	loginStats := runLoginPhase(ctx, c, emails, clients, *failRatio, *concurrency)
	store := session.NewStore(client, cfg.Session.RedisPrefix, cfg.Session.TTL)
	lookupStats := runLookupPhase(ctx, store, clients, *ops, *concurrency)

	snap := c.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("lookup", lookupStats)
	fmt.Printf("metrics: login_success=%d login_failure=%d session_saved=%d\n",
		snap.Counters[authflow.MetricLoginSuccess],
		snap.Counters[authflow.MetricLoginFailure],
		snap.Counters[authflow.MetricSessionSaved])
}

func newService() (*memauth.Service, error) {
	// Minimum argon2 cost keeps the phase bound by the coordinator rather
	// than the hasher.
	hasher, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewManager(token.Config{
		TTL:           time.Hour,
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte("loadtest-secret"),
		Issuer:        "authflow-loadtest",
	})
	if err != nil {
		return nil, err
	}
	return memauth.New(hasher, tokens)
}

func runLoginPhase(ctx context.Context, c *authflow.Coordinator, emails, clients []string, failRatio float64, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(clients))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(clients) {
					return
				}
				pw := seedPassword
				if r.Float64() < failRatio {
					pw = "Wrong" + seedPassword
				}
				cred := authflow.Credential{
					Identifier: emails[r.Intn(len(emails))],
					Password:   pw,
				}
				reqCtx := authflow.WithClientID(ctx, clients[i])
				t0 := time.Now()
				d, err := c.Login(reqCtx, cred, authflow.LoginOptions{})
				elapsed := time.Since(t0)
				if err != nil || d.Route == authflow.RouteStayOnForm {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runLookupPhase(ctx context.Context, store *session.Store, clients []string, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				id := clients[r.Intn(len(clients))]
				t0 := time.Now()
				_, err := store.Get(ctx, id)
				elapsed := time.Since(t0)
				// Clients whose login failed have no record.
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-6s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
