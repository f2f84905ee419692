package cache

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Open builds the configured query cache. It returns a nil cache when
// caching is off, or when Redis is selected but unreachable. The returned
// redis client, when non-nil, must be closed by the caller.
func Open(cfg *config.Config, m *metrics.Metrics) (*QueryCache, *pkgredis.Client, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendNone:
		slog.Info("query cache disabled")
		return nil, nil, nil
	case config.CacheBackendMemory:
		backend, err := NewMemoryBackend(cfg.Cache.Size)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("query cache enabled", "backend", "memory", "size", cfg.Cache.Size)
		return New(backend), nil, nil
	case config.CacheBackendRedis:
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "addr", cfg.Redis.Addr, "error", err)
			return nil, nil, nil
		}
		var observe func(name string, from, to resilience.State)
		if m != nil {
			observe = m.BreakerObserver()
		}
		slog.Info("query cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		return New(NewRedisBackend(client, cfg.Redis.CacheTTL, observe)), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
