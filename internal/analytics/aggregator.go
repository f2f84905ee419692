package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalQueries     int64            `json:"total_queries"`
	QueriesByOutcome map[string]int64 `json:"queries_by_outcome"`
	CacheHits        int64            `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
	DocumentsIndexed int64            `json:"documents_indexed"`
	ChunksIndexed    int64            `json:"chunks_indexed"`
	IngestFailures   map[string]int64 `json:"ingest_failures"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	P99LatencyMs     int64            `json:"p99_latency_ms"`
	TopTerms         []TermCount      `json:"top_terms"`
	UnansweredTerms  []TermCount      `json:"unanswered_terms"`
	QueriesPerMinute float64          `json:"queries_per_minute"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Runner is the consume loop feeding an Aggregator.
type Runner interface {
	Start(ctx context.Context) error
}

// Aggregator folds analytics events into running totals.
type Aggregator struct {
	mu               sync.RWMutex
	totalQueries     int64
	byOutcome        map[string]int64
	cacheHits        int64
	cacheMisses      int64
	documentsIndexed int64
	chunksIndexed    int64
	ingestFailures   map[string]int64
	latencies        []int64
	termCounts       map[string]int64
	unansweredTerms  map[string]int64
	startTime        time.Time

	consumer Runner
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. consumer may be nil when events are
// fed through Record directly.
func NewAggregator(consumer Runner) *Aggregator {
	return &Aggregator{
		byOutcome:       make(map[string]int64),
		ingestFailures:  make(map[string]int64),
		latencies:       make([]int64, 0, 1024),
		termCounts:      make(map[string]int64),
		unansweredTerms: make(map[string]int64),
		startTime:       time.Now(),
		consumer:        consumer,
		logger:          slog.Default().With("component", "analytics-aggregator"),
	}
}

func (a *Aggregator) SetConsumer(consumer Runner) {
	a.consumer = consumer
}

func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes Kafka messages and records them on agg. Undecodable
// messages are logged and skipped so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event Event) {
	switch event.Type {
	case EventQuery:
		a.recordQuery(event)
	case EventIngest:
		a.recordIngest(event)
	default:
		a.logger.Warn("unknown analytics event type", "type", event.Type)
	}
}

func (a *Aggregator) recordQuery(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalQueries++
	a.byOutcome[event.Outcome]++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.totalQueries%maxLatencySamples] = event.LatencyMs
	}
	for _, term := range event.Terms {
		a.termCounts[term]++
		if event.Outcome == "no_relevant_content" {
			a.unansweredTerms[term]++
		}
	}
}

func (a *Aggregator) recordIngest(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if event.ErrorCode != "" {
		a.ingestFailures[event.ErrorCode]++
		return
	}
	a.documentsIndexed++
	a.chunksIndexed += int64(event.Chunks)
}

// Restore seeds the running totals from a saved snapshot. Latency samples
// and term counts start fresh.
func (a *Aggregator) Restore(snapshot AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalQueries = snapshot.TotalQueries
	a.cacheHits = snapshot.CacheHits
	a.cacheMisses = snapshot.CacheMisses
	a.documentsIndexed = snapshot.DocumentsIndexed
	a.chunksIndexed = snapshot.ChunksIndexed
	a.byOutcome = copyCounts(snapshot.QueriesByOutcome)
	a.ingestFailures = copyCounts(snapshot.IngestFailures)
	a.logger.Info("analytics restored from snapshot", "total_queries", a.totalQueries)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQueries:     a.totalQueries,
		QueriesByOutcome: copyCounts(a.byOutcome),
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		DocumentsIndexed: a.documentsIndexed,
		ChunksIndexed:    a.chunksIndexed,
		IngestFailures:   copyCounts(a.ingestFailures),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopTerms = topN(a.termCounts, 10)
	stats.UnansweredTerms = topN(a.unansweredTerms, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
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

// topN returns the n largest counts, ties broken by term.
func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Term < result[j].Term
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
