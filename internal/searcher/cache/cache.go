// Package cache memoises ranked passages for repeated queries. Entries are
// keyed by everything that determines a ranking, including the index
// generation, so a stale entry can only be hit while the index is unchanged. Storage is
// pluggable: Redis for shared deployments, an in-process LRU otherwise.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
)

const keyPrefix = "docsearch:query:"

// Backend stores encoded rankings.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Flush(ctx context.Context) (int64, error)
}

// Key identifies one ranking. Generation is index.Index.Generation of the
// record the ranking was computed from.
type Key struct {
	Tokens     []string
	TopK       int
	Docs       []string
	Generation string
}

// String renders a stable cache key. Token and document order do not
// matter; repeated tokens do.
func (k Key) String() string {
	tokens := append([]string(nil), k.Tokens...)
	sort.Strings(tokens)
	docs := append([]string(nil), k.Docs...)
	sort.Strings(docs)
	raw := fmt.Sprintf("t=%s|k=%d|d=%s|g=%s",
		strings.Join(tokens, ","), k.TopK, strings.Join(docs, ","), k.Generation)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

type Stats struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

type QueryCache struct {
	backend Backend
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend) *QueryCache {
	return &QueryCache{
		backend: backend,
		logger:  slog.Default().With("component", "query-cache", "backend", backend.Name()),
	}
}

// Get returns a cached ranking. Backend failures count as misses.
func (c *QueryCache) Get(ctx context.Context, key Key) ([]ranker.ScoredChunk, bool) {
	k := key.String()
	data, ok, err := c.backend.Get(ctx, k)
	if err != nil {
		c.logger.Warn("cache get failed", "key", k, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	var ranked []ranker.ScoredChunk
	if err := json.Unmarshal(data, &ranked); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", k)
	return ranked, true
}

func (c *QueryCache) Set(ctx context.Context, key Key, ranked []ranker.ScoredChunk) {
	k := key.String()
	data, err := json.Marshal(ranked)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.backend.Set(ctx, k, data); err != nil {
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached ranking for key, or runs compute once per
// key across concurrent callers and stores its result. The bool reports a
// cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	compute func() ([]ranker.ScoredChunk, error),
) ([]ranker.ScoredChunk, bool, error) {
	if ranked, ok := c.Get(ctx, key); ok {
		return ranked, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		ranked, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, ranked)
		return ranked, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ranker.ScoredChunk), false, nil
}

// Invalidate drops every cached ranking.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.Flush(ctx)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		Backend: c.backend.Name(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
