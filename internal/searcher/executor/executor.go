// Package executor answers chat queries: it loads a snapshot of the index,
// tokenizes the message, ranks chunks through the optional query cache and
// formats the cited passages into an answer.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// Outcome distinguishes a real answer from the non-error sentinels.
type Outcome string

const (
	OutcomeAnswered          Outcome = "answered"
	OutcomeInsufficientQuery Outcome = "insufficient_query"
	OutcomeNoRelevantContent Outcome = "no_relevant_content"
)

const (
	MessageInsufficientQuery = "Please ask using more keywords."
	MessageNoRelevantContent = "No relevant content found in uploaded materials."
)

// Request is one chat query. TopK <= 0 selects the configured default and an
// empty Docs list searches every document.
type Request struct {
	Message string   `json:"message"`
	TopK    int      `json:"topK"`
	Docs    []string `json:"docs"`
}

// Source is one cited passage in an answer.
type Source struct {
	Score float64 `json:"score"`
	Text  string  `json:"text"`
	DocID string  `json:"docId"`
}

// Result is the outcome of a query. Sources is empty unless Outcome is
// OutcomeAnswered; Terms and CacheHit feed analytics only.
type Result struct {
	Outcome  Outcome  `json:"outcome"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Terms    []string `json:"-"`
	CacheHit bool     `json:"-"`
}

// Executor runs queries against a store. It is safe for concurrent use.
type Executor struct {
	store   store.Store
	cache   *cache.QueryCache
	metrics *metrics.Metrics
	cfg     config.SearchConfig
	logger  *slog.Logger
}

// New builds an Executor. The cache and metrics are optional.
func New(st store.Store, cfg config.SearchConfig, queryCache *cache.QueryCache, m *metrics.Metrics) *Executor {
	if cfg.DefaultTopK < 1 {
		cfg.DefaultTopK = ranker.DefaultTopK
	}
	return &Executor{
		store:   st,
		cache:   queryCache,
		metrics: m,
		cfg:     cfg,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Execute answers one query against a freshly loaded snapshot of the index.
// An empty index is reported before a missing message.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "query-executor")
	ctx, span := tracing.Start(ctx, "query")
	defer span.End()

	_, loadSpan := tracing.Start(ctx, "load-index")
	idx, err := e.store.Load(ctx)
	loadSpan.End()
	if err != nil {
		e.countOutcome("error")
		return nil, apperrors.Wrap(apperrors.ErrInternal, err, "loading index")
	}
	if idx.TotalChunks == 0 {
		e.countOutcome("error")
		return nil, apperrors.EmptyIndex()
	}
	if req == nil || req.Message == "" {
		e.countOutcome("error")
		return nil, apperrors.MissingMessage()
	}

	tokens := tokenizer.Tokenize(req.Message)
	if len(tokens) == 0 {
		e.countOutcome(string(OutcomeInsufficientQuery))
		return &Result{
			Outcome: OutcomeInsufficientQuery,
			Answer:  MessageInsufficientQuery,
			Sources: []Source{},
			Terms:   tokens,
		}, nil
	}

	topK := e.topK(req.TopK)
	filter := docFilter(req.Docs)
	compute := func() ([]ranker.ScoredChunk, error) {
		_, rankSpan := tracing.Start(ctx, "rank")
		defer rankSpan.End()
		rankSpan.SetAttr("chunks", idx.TotalChunks)
		return ranker.Rank(idx, tokens, topK, filter), nil
	}

	var (
		ranked   []ranker.ScoredChunk
		cacheHit bool
	)
	if e.cache != nil {
		key := cache.Key{Tokens: tokens, TopK: topK, Docs: req.Docs, Generation: idx.Generation()}
		ranked, cacheHit, err = e.cache.GetOrCompute(ctx, key, compute)
		if err != nil {
			e.countOutcome("error")
			return nil, apperrors.Wrap(apperrors.ErrInternal, err, "ranking chunks")
		}
		e.countCache(cacheHit)
	} else {
		ranked, _ = compute()
	}

	result := &Result{Terms: tokens, CacheHit: cacheHit, Sources: make([]Source, 0, len(ranked))}
	if len(ranked) == 0 {
		result.Outcome = OutcomeNoRelevantContent
		result.Answer = MessageNoRelevantContent
	} else {
		for _, r := range ranked {
			result.Sources = append(result.Sources, Source{Score: r.Score, Text: r.Text, DocID: r.DocID})
		}
		result.Outcome = OutcomeAnswered
		result.Answer = FormatAnswer(result.Sources)
	}

	span.SetAttr("outcome", string(result.Outcome))
	span.SetAttr("cache_hit", cacheHit)
	e.countOutcome(string(result.Outcome))
	e.observe(start, cacheHit, len(result.Sources))
	log.Info("query executed",
		"terms", tokens,
		"top_k", topK,
		"doc_filter", len(filter),
		"chunks", idx.TotalChunks,
		"returned", len(result.Sources),
		"outcome", result.Outcome,
		"cache_hit", cacheHit,
	)
	return result, nil
}

// FormatAnswer joins the cited passages into one readable block, each under
// a "[Source i] (doc: <id>)" header.
func FormatAnswer(sources []Source) string {
	blocks := make([]string, 0, len(sources))
	for i, s := range sources {
		blocks = append(blocks, fmt.Sprintf("[Source %d] (doc: %s)\n\n%s", i+1, s.DocID, s.Text))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func (e *Executor) topK(requested int) int {
	switch {
	case requested < 1:
		return e.cfg.DefaultTopK
	case e.cfg.MaxTopK > 0 && requested > e.cfg.MaxTopK:
		return e.cfg.MaxTopK
	default:
		return requested
	}
}

func docFilter(docs []string) map[string]struct{} {
	if len(docs) == 0 {
		return nil
	}
	filter := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		filter[d] = struct{}{}
	}
	return filter
}

func (e *Executor) countOutcome(outcome string) {
	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (e *Executor) countCache(hit bool) {
	if e.metrics == nil {
		return
	}
	if hit {
		e.metrics.CacheHitsTotal.Inc()
	} else {
		e.metrics.CacheMissesTotal.Inc()
	}
}

func (e *Executor) observe(start time.Time, cacheHit bool, returned int) {
	if e.metrics == nil {
		return
	}
	status := "miss"
	switch {
	case e.cache == nil:
		status = "disabled"
	case cacheHit:
		status = "hit"
	}
	e.metrics.QueryLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	e.metrics.QueryResultsCount.Observe(float64(returned))
}
