package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c := NewCache(ttl)
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetGetExpire(t *testing.T) {
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	c := newTestCache(t, time.Minute)
	c.now = func() time.Time { return clock }

	c.Set("summary", []byte(`{"count":3}`))
	data, ok := c.Get("summary")
	require.True(t, ok)
	assert.Equal(t, `{"count":3}`, string(data))

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("summary")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats["hits"])
	assert.Equal(t, uint64(1), stats["misses"])
	assert.Equal(t, 1, stats["expired_items"])

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 0, c.Size())
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := newTestCache(t, time.Minute)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	c.Delete("a")
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestKey_Stable(t *testing.T) {
	assert.Equal(t, Key("/api/analytics/summary?bean_id=1"), Key("/api/analytics/summary?bean_id=1"))
	assert.NotEqual(t, Key("/api/analytics/summary"), Key("/api/analytics/trend"))
	assert.Len(t, Key("x"), 32)
}

type hitCounter struct{ hits, misses int }

func (h *hitCounter) IncrementCacheHit()  { h.hits++ }
func (h *hitCounter) IncrementCacheMiss() { h.misses++ }

func TestAnalyticsCache_Middleware(t *testing.T) {
	ac := NewAnalyticsCache(newTestCache(t, time.Minute), nil)
	counter := &hitCounter{}
	computed := 0

	router := gin.New()
	router.Use(ac.Middleware(counter))
	router.GET("/api/analytics/summary", func(c *gin.Context) {
		computed++
		c.JSON(http.StatusOK, gin.H{"count": computed})
	})
	router.POST("/api/analytics/summary", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics/summary", nil))
		return w
	}

	first := get()
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := get()
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, computed)

	require.NoError(t, ac.Invalidate(context.Background()))
	get()
	assert.Equal(t, 2, computed)
	assert.Equal(t, 1, counter.hits)
	assert.Equal(t, 2, counter.misses)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/analytics/summary", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 2, counter.misses, "non-GET requests bypass the cache")
}

func TestAnalyticsCache_InvalidateDuringMissDropsResult(t *testing.T) {
	ac := NewAnalyticsCache(newTestCache(t, time.Minute), nil)
	computed := 0

	router := gin.New()
	router.Use(ac.Middleware(nil))
	router.GET("/api/analytics/summary", func(c *gin.Context) {
		computed++
		if computed == 1 {
			// a shot is recorded while the first summary is still being built
			require.NoError(t, ac.Invalidate(c.Request.Context()))
		}
		c.JSON(http.StatusOK, gin.H{"count": computed})
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics/summary", nil))
		return w
	}

	assert.Equal(t, "MISS", get().Header().Get("X-Cache"))
	second := get()
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"), "result from before the invalidation was not stored")
	assert.JSONEq(t, `{"count":2}`, second.Body.String())
	assert.Equal(t, "HIT", get().Header().Get("X-Cache"))
	assert.Equal(t, 2, computed)
}

func TestAnalyticsCache_SetIfCurrent(t *testing.T) {
	ac := NewAnalyticsCache(newTestCache(t, time.Minute), nil)
	ctx := context.Background()

	gen := ac.Generation()
	assert.True(t, ac.SetIfCurrent(ctx, "a", []byte("1"), gen))
	_, ok := ac.Get(ctx, "a")
	assert.True(t, ok)

	require.NoError(t, ac.Invalidate(ctx))
	assert.Equal(t, gen+1, ac.Generation())
	assert.False(t, ac.SetIfCurrent(ctx, "b", []byte("2"), gen))
	_, ok = ac.Get(ctx, "b")
	assert.False(t, ok)
}

func TestNewRedisStore_RequiresAddr(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{})
	assert.Error(t, err)
}

func TestNewRedisStore_UnreachableIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CategoryUnavailable, appErr.Category)
	assert.Equal(t, "[UNAVAILABLE] redis unavailable", appErr.Error())
}

func TestAnalyticsCache_RedisDownDegradesToLocal(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	remote := newRedisStore(client, RedisOptions{Addr: "127.0.0.1:1", TTL: time.Minute})
	ac := NewAnalyticsCache(newTestCache(t, time.Minute), remote)
	ctx := context.Background()

	_, ok := ac.Get(ctx, "missing")
	assert.False(t, ok)

	ac.Set(ctx, "k", []byte("v"))
	data, ok := ac.Get(ctx, "k")
	require.True(t, ok, "local tier still serves")
	assert.Equal(t, "v", string(data))

	assert.Error(t, ac.Invalidate(ctx))
	_, ok = ac.Get(ctx, "k")
	assert.False(t, ok, "local tier cleared despite redis failure")

	assert.Equal(t, resilience.StateOpen, remote.breaker.State())
	assert.Equal(t, true, ac.Stats()["redis_enabled"])
}
