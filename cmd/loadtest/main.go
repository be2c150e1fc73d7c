package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fastjson"
	"golang.org/x/sync/errgroup"
)

// sample is one criteria sent to one endpoint, with the status the service
// is expected to answer.
type sample struct {
	path     string
	criteria string
	want     int
}

var samples = []sample{
	{"/api/v1/compile", "dano moral", http.StatusOK},
	{"/api/v1/compile", "dano adj2 moral", http.StatusOK},
	{"/api/v1/compile", "dano com moral", http.StatusOK},
	{"/api/v1/compile", "(dano ou prejuizo) e moral", http.StatusOK},
	{"/api/v1/compile", `"responsabilidade civil" nao estado`, http.StatusOK},
	{"/api/v1/compile", "indeniza$ prox5 consumidor", http.StatusOK},
	{"/api/v1/compile", "habeas corpus preventivo liminar", http.StatusOK},
	{"/api/v1/compile", "(dano adj2 moral", http.StatusBadRequest},
	{"/api/v1/compile", "dano adj2 moral)", http.StatusBadRequest},
	{"/api/v1/compile/grouped", ".ementa.(dano moral) e .tipo.(acordao)", http.StatusOK},
	{"/api/v1/compile/grouped", "consumidor .ementa.(banco)", http.StatusOK},
	{"/api/v1/compile/grouped", ".data.(>= 2020-01-01)", http.StatusOK},
	{"/api/v1/compile/grouped", ".titulo.(dano)", http.StatusBadRequest},
	{"/api/v1/compile/grouped", ".ementa.(banco) ou consumidor", http.StatusBadRequest},
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Highlight   bool
}

type Stats struct {
	totalRequests atomic.Int64
	compiled      atomic.Int64
	rejected      atomic.Int64
	mismatched    atomic.Int64
	errorCount    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, want int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	switch {
	case statusCode != want:
		s.mismatched.Add(1)
	case statusCode == http.StatusOK:
		s.compiled.Add(1)
	default:
		s.rejected.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the compile service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	highlight := flag.Bool("highlight", false, "request highlight sections")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Highlight:   *highlight,
	}

	fmt.Println("=== BRS Compile Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Criteria:    %d unique\n", len(samples))
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg.Duration)
}

// requestBodies encodes every sample once so workers only send bytes.
func requestBodies(highlight bool) [][]byte {
	var a fastjson.Arena
	bodies := make([][]byte, len(samples))
	for i, s := range samples {
		a.Reset()
		obj := a.NewObject()
		obj.Set("q", a.NewString(s.criteria))
		if highlight {
			obj.Set("highlight", a.NewTrue())
		}
		bodies[i] = obj.MarshalTo(nil)
	}
	return bodies
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	bodies := requestBodies(cfg.Highlight)
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		workerID := w
		g.Go(func() error {
			idx := workerID
			for gctx.Err() == nil {
				i := idx % len(samples)
				idx++

				req, err := http.NewRequestWithContext(gctx, http.MethodPost,
					cfg.BaseURL+samples[i].path, bytes.NewReader(bodies[i]))
				if err != nil {
					return fmt.Errorf("creating request: %w", err)
				}
				req.Header.Set("Content-Type", "application/json")

				start := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(start)

				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					stats.RecordRequest(duration, 0, samples[i].want, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.RecordRequest(duration, resp.StatusCode, samples[i].want, nil)
			}
			return nil
		})
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "\nload test aborted: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	compiled := stats.compiled.Load()
	rejected := stats.rejected.Load()
	mismatched := stats.mismatched.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Compiled:        %d\n", compiled)
	fmt.Printf("Rejected:        %d (expected)\n", rejected)
	fmt.Printf("Unexpected:      %d\n", mismatched)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		failRate := float64(mismatched+errors) / float64(total) * 100
		fmt.Printf("Failure Rate:    %.2f%%\n", failRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
	if mismatched > 0 {
		os.Exit(2)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
