// Command golink-loadtest drives concurrent initiate and confirm calls
// through an Engine backed by the Redis identity store and reports latency
// percentiles per phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/messages"
	"github.com/MrEthical07/goLink/stores/redisstore"
)

type linkState struct {
	account    string
	externalID string
}

// codeBook records the code delivered for each external id.
type codeBook struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *codeBook) Send(_ context.Context, payload goLink.Payload) error {
	fields := strings.Fields(payload.Content)
	if len(fields) != 3 || fields[0] != "code" {
		return nil
	}
	c.mu.Lock()
	c.codes[fields[1]] = fields[2]
	c.mu.Unlock()
	return nil
}

func (c *codeBook) code(externalID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[externalID]
}

func main() {
	var (
		links       = flag.Int("links", 20000, "number of accounts to link")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		key         = flag.String("key", "golink:loadtest", "redis hash holding linked accounts")
		digits      = flag.Int("digits", 8, "verification code digits")
	)
	flag.Parse()

	if *links <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "links and concurrency must be > 0")
		os.Exit(2)
	}

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

	cfg := goLink.DefaultConfig()
	cfg.Code.Digits = *digits
	cfg.Code.SweepInterval = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	book := &codeBook{codes: make(map[string]string, *links)}
	engine, err := goLink.New().
		WithConfig(cfg).
		WithIdentityStore(redisstore.New(client, *key)).
		WithNotifier(book).
		WithMessages(messages.New(map[string]string{
			messages.KeyDiscordVerificationMessage: "code {discord_id} {verification_code}",
		})).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]linkState, *links)
	for i := range states {
		states[i] = linkState{
			account:    fmt.Sprintf("player-%d", i),
			externalID: fmt.Sprintf("%d", 100000000000000000+int64(i)),
		}
	}

	ctx := context.Background()
	initiateStats := runPhase(states, *concurrency, func(s linkState) error {
		_, err := engine.InitiateLinking(ctx, s.account, s.externalID)
		return err
	})
	fmt.Printf("pending after initiate: %d\n", engine.PendingCount())

	confirmStats := runPhase(states, *concurrency, func(s linkState) error {
		_, err := engine.ConfirmLinking(ctx, s.account, book.code(s.externalID))
		return err
	})

	fmt.Println("---- results ----")
	printStats("initiate", initiateStats)
	printStats("confirm", confirmStats)

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("collisions=%d persistence_failures=%d\n",
		snapshot.Counters[goLink.MetricCodeCollision],
		snapshot.Counters[goLink.MetricPersistenceFailure],
	)
}

func runPhase(states []linkState, concurrency int, op func(linkState) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(states))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(states) {
					return
				}
				t0 := time.Now()
				err := op(states[i])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
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
