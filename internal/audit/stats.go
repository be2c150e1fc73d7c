package audit

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const maxLatencies = 10000

type Stats struct {
	TotalCompiles     int64            `json:"total_compiles"`
	Cached            int64            `json:"cached"`
	Rejected          int64            `json:"rejected"`
	ByMode            map[string]int64 `json:"by_mode"`
	ByErrorKind       map[string]int64 `json:"by_error_kind"`
	AvgLatencyUs      float64          `json:"avg_latency_us"`
	P50LatencyUs      int64            `json:"p50_latency_us"`
	P95LatencyUs      int64            `json:"p95_latency_us"`
	P99LatencyUs      int64            `json:"p99_latency_us"`
	TopCriteria       []CriteriaCount  `json:"top_criteria"`
	TopRejected       []CriteriaCount  `json:"top_rejected"`
	CompilesPerMinute float64          `json:"compiles_per_minute"`
}

type CriteriaCount struct {
	Criteria string `json:"criteria"`
	Count    int64  `json:"count"`
}

// Aggregator keeps in-process compile statistics. Latencies are kept for the
// most recent compiles only.
type Aggregator struct {
	total    atomic.Int64
	cached   atomic.Int64
	rejected atomic.Int64

	mu          sync.RWMutex
	latencies   []int64
	next        int
	byMode      map[string]int64
	byErrorKind map[string]int64
	criteria    map[string]int64
	rejects     map[string]int64
	startTime   time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:   make([]int64, 0, 1024),
		byMode:      make(map[string]int64),
		byErrorKind: make(map[string]int64),
		criteria:    make(map[string]int64),
		rejects:     make(map[string]int64),
		startTime:   time.Now(),
	}
}

func (a *Aggregator) Track(event CompileEvent) {
	a.total.Add(1)
	switch event.Result {
	case ResultCached:
		a.cached.Add(1)
	case ResultError:
		a.rejected.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.latencies) < maxLatencies {
		a.latencies = append(a.latencies, event.LatencyUs)
	} else {
		a.latencies[a.next] = event.LatencyUs
		a.next = (a.next + 1) % maxLatencies
	}
	if event.Mode != "" {
		a.byMode[event.Mode]++
	}
	if event.Result == ResultError {
		a.byErrorKind[event.ErrorKind]++
		a.rejects[event.Criteria]++
		return
	}
	a.criteria[event.Criteria]++
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalCompiles: a.total.Load(),
		Cached:        a.cached.Load(),
		Rejected:      a.rejected.Load(),
		ByMode:        copyCounts(a.byMode),
		ByErrorKind:   copyCounts(a.byErrorKind),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopCriteria = topN(a.criteria, 10)
	stats.TopRejected = topN(a.rejects, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.CompilesPerMinute = float64(stats.TotalCompiles) / elapsed
	}
	return stats
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent criteria, ties broken alphabetically.
func topN(counts map[string]int64, n int) []CriteriaCount {
	out := make([]CriteriaCount, 0, len(counts))
	for c, cnt := range counts {
		out = append(out, CriteriaCount{Criteria: c, Count: cnt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Criteria < out[j].Criteria
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
