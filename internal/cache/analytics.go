package cache

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// HitRecorder receives cache hit and miss counts
type HitRecorder interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// AnalyticsCache caches derived analytics in process and, when configured,
// in Redis. Local entries are checked first; Redis failures degrade to local only.
type AnalyticsCache struct {
	local  *Cache
	remote *RedisStore

	// bumped by every Invalidate; a response computed under an older
	// generation is never stored
	generation atomic.Uint64
}

// NewAnalyticsCache wires the cache tiers. remote may be nil.
func NewAnalyticsCache(local *Cache, remote *RedisStore) *AnalyticsCache {
	return &AnalyticsCache{local: local, remote: remote}
}

// Key creates a consistent key from the request identity
func Key(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// Get looks key up in the local tier, then in Redis
func (a *AnalyticsCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if data, ok := a.local.Get(key); ok {
		return data, true
	}
	if a.remote == nil {
		return nil, false
	}

	data, ok, err := a.remote.Get(ctx, key)
	if err != nil {
		slog.Warn("Redis cache read failed", "error", err)
		return nil, false
	}
	if ok {
		a.local.Set(key, data)
	}
	return data, ok
}

// Set stores data in every tier
func (a *AnalyticsCache) Set(ctx context.Context, key string, data []byte) {
	a.local.Set(key, data)
	if a.remote == nil {
		return
	}
	if err := a.remote.Set(ctx, key, data); err != nil {
		slog.Warn("Redis cache write failed", "error", err)
	}
}

// Generation counts invalidations so far
func (a *AnalyticsCache) Generation() uint64 {
	return a.generation.Load()
}

// SetIfCurrent stores data only while no Invalidate has happened since
// generation gen was read. It reports whether the entry was kept.
func (a *AnalyticsCache) SetIfCurrent(ctx context.Context, key string, data []byte, gen uint64) bool {
	if a.Generation() != gen {
		return false
	}
	a.Set(ctx, key, data)
	if a.Generation() == gen {
		return true
	}

	// an Invalidate raced the write and may have cleared before it landed
	a.local.Delete(key)
	if a.remote != nil {
		if err := a.remote.Delete(ctx, key); err != nil {
			slog.Warn("Redis cache delete failed", "error", err)
		}
	}
	return false
}

// Invalidate drops every cached analytics response. Redis errors are
// returned after the local tier has been cleared.
func (a *AnalyticsCache) Invalidate(ctx context.Context) error {
	a.generation.Add(1)
	a.local.Clear()
	if a.remote == nil {
		return nil
	}
	if err := a.remote.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush redis analytics cache: %w", err)
	}
	return nil
}

// Stats returns statistics for each tier
func (a *AnalyticsCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"local":         a.local.Stats(),
		"redis_enabled": a.remote != nil,
	}
	if a.remote != nil {
		stats["redis"] = a.remote.Stats()
	}
	return stats
}

// Close releases the Redis connection and stops the local sweeper
func (a *AnalyticsCache) Close() error {
	a.local.Close()
	if a.remote != nil {
		return a.remote.Close()
	}
	return nil
}

// Middleware caches successful GET responses keyed by request URI
func (a *AnalyticsCache) Middleware(metrics HitRecorder) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet {
			ctx.Next()
			return
		}

		cacheKey := Key(ctx.Request.URL.RequestURI())

		if cachedData, found := a.Get(ctx.Request.Context(), cacheKey); found {
			slog.Debug("Cache hit", "key", cacheKey[:8]+"...", "path", ctx.Request.URL.Path)
			if metrics != nil {
				metrics.IncrementCacheHit()
			}
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cachedData)
			ctx.Abort()
			return
		}

		slog.Debug("Cache miss", "key", cacheKey[:8]+"...", "path", ctx.Request.URL.Path)
		if metrics != nil {
			metrics.IncrementCacheMiss()
		}

		gen := a.Generation()
		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Header("X-Cache", "MISS")
		ctx.Next()

		if ctx.Writer.Status() == http.StatusOK {
			a.SetIfCurrent(ctx.Request.Context(), cacheKey, wrapper.body.Bytes(), gen)
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
