package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/contentshare/authcore"
	"github.com/contentshare/authcore/refresh"
)

type accountState struct {
	id      string
	refresh string
	mu      sync.Mutex
}

// seededVerifier accepts every seeded account with a fixed secret so the
// phases measure token work rather than password hashing.
type seededVerifier struct {
	secret string
}

func (v seededVerifier) Verify(_ context.Context, identifier, secret string) (authcore.Principal, error) {
	if identifier == "" || secret != v.secret {
		return authcore.Principal{}, authcore.ErrCredentialInvalid
	}
	return authcore.Principal{AccountID: identifier, Authorities: []string{"ROLE_USER"}}, nil
}

func (v seededVerifier) Authorities(context.Context, string) ([]string, error) {
	return []string{"ROLE_USER"}, nil
}

func main() {
	var (
		accounts    = flag.Int("accounts", 10000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (login + reissue)")
		replays     = flag.Int("replays", 1000, "stale refresh tokens to replay after the reissue phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", refresh.DefaultKeyPrefix, "refresh key prefix")
		serialize   = flag.Bool("serialize", false, "hide Swap and use the lock-serialized rotation path")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *replays < 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency and ops must be > 0, replays >= 0")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := authcore.DefaultConfig()
	cfg.JWT.Secret = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("l"), 32))

	var store refresh.Store = refresh.NewRedisStore(client, *prefix, cfg.JWT.RefreshTTL)
	if *serialize {
		store = storeOnly{store}
	}

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRefreshStore(store).
		WithCredentialVerifier(seededVerifier{secret: "load-secret"}).
		WithLogger(zerolog.Nop()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]accountState, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range states {
		states[i].id = fmt.Sprintf("member-%d", i)
		pair, err := engine.Login(ctx, states[i].id, "load-secret")
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].refresh = pair.RefreshToken
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runLoginPhase(ctx, engine, states, *ops, *concurrency)
	reissueStats := runReissuePhase(ctx, engine, states, *ops, *concurrency)
	rejected, accepted := runReplayPhase(ctx, engine, states, *replays)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("reissue", reissueStats)
	fmt.Printf("replay: attempts=%d rejected=%d accepted=%d\n", rejected+accepted, rejected, accepted)
	if accepted > 0 {
		os.Exit(1)
	}
}

// storeOnly hides refresh.Swapper.
type storeOnly struct {
	refresh.Store
}

// runLoginPhase logs in random accounts and keeps the newest refresh token
// for the reissue phase.
func runLoginPhase(ctx context.Context, engine *authcore.Engine, states []accountState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		pair, err := engine.Login(ctx, state.id, "load-secret")
		if err != nil {
			return err
		}
		state.refresh = pair.RefreshToken
		return nil
	})
}

func runReissuePhase(ctx context.Context, engine *authcore.Engine, states []accountState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 6151, func(r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		pair, err := engine.Reissue(ctx, state.refresh)
		if err != nil {
			return err
		}
		state.refresh = pair.RefreshToken
		return nil
	})
}

// runReplayPhase rotates an account once and presents the stale token. Every
// replay must be refused.
func runReplayPhase(ctx context.Context, engine *authcore.Engine, states []accountState, replays int) (rejected, accepted int) {
	for i := 0; i < replays && i < len(states); i++ {
		state := &states[i]
		stale := state.refresh
		pair, err := engine.Reissue(ctx, stale)
		if err != nil {
			continue
		}
		state.refresh = pair.RefreshToken

		if _, err := engine.Reissue(ctx, stale); errors.Is(err, authcore.ErrTokenMismatch) {
			rejected++
		} else if err == nil {
			accepted++
		}
	}
	return rejected, accepted
}

func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand) error) phaseStats {
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
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
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
