package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/resilience"
)

// RedisOptions configures the shared analytics cache
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisStore keeps analytics responses in Redis so several server processes
// (or a restart) can reuse them. Every call goes through a circuit breaker.
type RedisStore struct {
	client  *redis.Client
	breaker *resilience.CircuitBreaker
	prefix  string
	ttl     time.Duration
	addr    string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address not configured")
	}

	slog.Info("Initializing Redis client", "addr", opts.Addr, "db", opts.DB)

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
		PoolTimeout:  2 * time.Second,
	})

	// Redis often starts alongside the server; give it a few seconds
	err := resilience.RetryWithConfig(ctx, resilience.DefaultRetryConfig(), func() error {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		client.Close()
		return nil, apperrors.NewUnavailableError("redis", fmt.Errorf("ping %s: %w", opts.Addr, err))
	}

	slog.Info("Redis client connected successfully", "addr", opts.Addr)
	return newRedisStore(client, opts), nil
}

func newRedisStore(client *redis.Client, opts RedisOptions) *RedisStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "dialin:analytics:"
	}
	return &RedisStore{
		client: client,
		breaker: resilience.GetCircuitBreaker("redis:"+opts.Addr, resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			RecoveryTimeout:  30 * time.Second,
		}),
		prefix: prefix,
		ttl:    opts.TTL,
		addr:   opts.Addr,
	}
}

// Get returns the cached bytes for key. A miss is (nil, false, nil).
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := r.breaker.Call(func() error {
		var err error
		data, err = r.client.Get(ctx, r.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return data, data != nil, nil
}

// Set stores data under key with the store TTL
func (r *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	return r.breaker.Call(func() error {
		return r.client.Set(ctx, r.prefix+key, data, r.ttl).Err()
	})
}

// Delete removes one key
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.breaker.Call(func() error {
		return r.client.Del(ctx, r.prefix+key).Err()
	})
}

// Flush deletes every key under the store prefix
func (r *RedisStore) Flush(ctx context.Context) error {
	return r.breaker.Call(func() error {
		iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		return r.client.Del(ctx, keys...).Err()
	})
}

// Stats reports connection and breaker state
func (r *RedisStore) Stats() map[string]interface{} {
	pool := r.client.PoolStats()
	return map[string]interface{}{
		"addr":        r.addr,
		"breaker":     r.breaker.Stats(),
		"total_conns": pool.TotalConns,
		"idle_conns":  pool.IdleConns,
		"ttl_seconds": r.ttl.Seconds(),
	}
}

// Close closes the Redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
