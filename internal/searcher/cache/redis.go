package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// RedisBackend stores rankings in Redis with a TTL. Calls go through a
// circuit breaker; while it is open every lookup is a miss.
type RedisBackend struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
}

// NewRedisBackend wraps client. onStateChange, if non-nil, observes breaker
// transitions.
func NewRedisBackend(client *redis.Client, ttl time.Duration, onStateChange func(name string, from, to resilience.State)) *RedisBackend {
	return &RedisBackend{
		client: client,
		ttl:    ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
			OnStateChange:    onStateChange,
		}),
	}
}

func (r *RedisBackend) Name() string { return "redis" }

// Breaker exposes the circuit breaker for state reporting.
func (r *RedisBackend) Breaker() *resilience.CircuitBreaker { return r.breaker }

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value string
		found bool
	)
	err := r.breaker.Execute(func() error {
		v, err := r.client.Get(ctx, key)
		if redis.IsNilError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return []byte(value), found, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return r.breaker.Execute(func() error {
		return r.client.Set(ctx, key, value, r.ttl)
	})
}

func (r *RedisBackend) Flush(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.breaker.Execute(func() error {
		n, err := r.client.FlushByPattern(ctx, keyPrefix+"*")
		deleted = n
		return err
	})
	return deleted, err
}
