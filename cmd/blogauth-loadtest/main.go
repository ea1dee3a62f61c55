// Command blogauth-loadtest drives many concurrent requests per session
// through the client refresh coordinator against an in-process server, and
// reports how many refresh calls reached the server.
//
// With short-lived access tokens every expiry triggers a burst of 401s; the
// coordinator should turn each burst into exactly one refresh call.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/client"
	"github.com/MrEthical07/blogauth/credentials"
	"github.com/MrEthical07/blogauth/middleware"
	"github.com/MrEthical07/blogauth/password"
	"github.com/MrEthical07/blogauth/transport"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	loadUser     = "loadtest"
	loadPassword = "loadtest-password"
)

func main() {
	var (
		sessions  = flag.Int("sessions", 4, "number of independent client sessions")
		workers   = flag.Int("workers", 32, "concurrent request loops per session")
		duration  = flag.Duration("duration", 10*time.Second, "how long to generate load")
		accessTTL = flag.Duration("access-ttl", 2*time.Second, "access token lifetime")
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *workers <= 0 || *duration <= 0 || *accessTTL <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, workers, duration and access-ttl must be > 0")
		os.Exit(2)
	}

	if err := run(*sessions, *workers, *duration, *accessTTL, *redisAddr); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest failed: %v\n", err)
		os.Exit(1)
	}
}

func run(sessions, workers int, duration, accessTTL time.Duration, redisAddr string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	addr := redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	srv, refreshCalls, err := startServer(rdb, accessTTL, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx := context.Background()
	clients := make([]*client.Client, sessions)
	for i := range clients {
		c, err := client.New(client.Options{BaseURL: srv.URL, Logger: logger})
		if err != nil {
			return err
		}
		if _, err := c.Login(ctx, loadUser, loadPassword, true); err != nil {
			return fmt.Errorf("login session %d: %w", i, err)
		}
		clients[i] = c
	}

	fmt.Printf("running %d sessions x %d workers for %s (access ttl %s)\n", sessions, workers, duration, accessTTL)

	stats := runLoad(ctx, clients, srv.URL, workers, duration)

	var cycles int64
	for _, c := range clients {
		cycles += c.Coordinator().Cycles()
	}

	fmt.Println("---- results ----")
	printStats("protected", stats)
	fmt.Printf("refresh: server_calls=%d coordinator_cycles=%d duplicate=%d\n",
		refreshCalls.Load(), cycles, refreshCalls.Load()-cycles)
	return nil
}

// startServer serves the auth endpoints and one guarded route, counting
// refresh calls as they arrive.
func startServer(rdb *redis.Client, accessTTL time.Duration, logger *slog.Logger) (*httptest.Server, *atomic.Int64, error) {
	// cheap parameters; hashing is not what is being measured
	argon, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		return nil, nil, err
	}
	source := credentials.NewMemorySource(password.NewVerifier(argon))
	if _, err := source.Add(loadUser, "", loadPassword); err != nil {
		return nil, nil, err
	}
	verifier, err := credentials.NewVerifier(source, credentials.VerifierOptions{Argon2: argon, Logger: logger})
	if err != nil {
		return nil, nil, err
	}

	cfg := blogauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-signing-key-0123456789abcdef")
	cfg.JWT.AccessTTL = accessTTL

	engine, err := blogauth.New().
		WithConfig(cfg).
		WithCredentialVerifier(verifier).
		WithRedis(rdb).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, nil, err
	}

	auth := transport.NewHandler(engine, transport.Options{
		ExposeTokensInBody: true,
		Logger:             logger,
	})

	var refreshCalls atomic.Int64
	mux := http.NewServeMux()
	auth.Register(mux)
	mux.Handle("GET /api/protected", middleware.Guard(engine, blogauth.ModeInherit, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == transport.DefaultPrefix+"/refresh" {
			refreshCalls.Add(1)
		}
		mux.ServeHTTP(w, r)
	})

	srv := httptest.NewServer(handler)
	srv.Config.RegisterOnShutdown(engine.Close)
	return srv, &refreshCalls, nil
}

func runLoad(ctx context.Context, clients []*client.Client, baseURL string, workers int, duration time.Duration) phaseStats {
	var (
		failures  atomic.Int64
		mu        sync.Mutex
		latencies []time.Duration
	)

	deadline := time.Now().Add(duration)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range clients {
		hc := c.HTTPClient()
		for w := 0; w < workers; w++ {
			g.Go(func() error {
				local := make([]time.Duration, 0, 256)
				for time.Now().Before(deadline) {
					req, err := http.NewRequestWithContext(gctx, http.MethodGet, baseURL+"/api/protected", nil)
					if err != nil {
						return err
					}
					t0 := time.Now()
					resp, err := hc.Do(req)
					d := time.Since(t0)
					if err != nil {
						failures.Add(1)
						continue
					}
					_, _ = io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
					if resp.StatusCode != http.StatusNoContent {
						failures.Add(1)
					}
					local = append(local, d)
				}
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	return computeStats(time.Since(start), latencies, failures.Load())
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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
