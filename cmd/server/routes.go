package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/monitoring"
	"github.com/ZanzyTHEbar/dialin/internal/resilience"
)

var version = "dev" // set via ldflags at build time

// setupRouter builds the gin engine with the middleware chain and every route
func setupRouter(a *app) *gin.Engine {
	r := gin.New()

	// Order matters: request IDs first so every later log line carries one
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.TracingMiddleware(a.tracer))
	r.Use(monitoring.MonitoringMiddleware(a.metrics, a.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	r.Use(a.security.CORS())
	r.Use(a.security.SecurityHeaders)
	r.Use(a.security.RequestTimeout)
	r.Use(a.security.LimitBody)
	r.Use(a.security.ValidateContentType)
	r.Use(a.security.RateLimitByIP)
	r.Use(a.compress.Handler())

	r.GET("/health", a.health)

	r.GET("/health/services", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"circuit_breakers": resilience.GetCircuitBreakerStats(),
			"database":         a.db.GetPoolStats(),
			"rate_limiter":     gin.H{"tracked_clients": a.security.TrackedClients()},
			"compression":      a.compress.GetStats(),
			"memory":           a.memory.GetStats(),
			"tracing":          a.tracer.Stats(),
		})
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.metrics.GetStats())
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.cache.Stats())
	})

	// Performance profiling endpoints (development only)
	if os.Getenv("ENABLE_PROFILING") == "true" {
		a.logger.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	api := r.Group("/api")

	beans := api.Group("/beans")
	beans.POST("", a.createBean)
	beans.GET("", a.listBeans)
	beans.GET("/:id", a.getBean)
	beans.PUT("/:id", a.updateBean)
	beans.DELETE("/:id", a.archiveBean)
	beans.POST("/:id/restore", a.restoreBean)

	shots := api.Group("/shots")
	shots.POST("", a.recordShot)
	shots.GET("", a.listShots)
	shots.GET("/:id", a.getShot)
	shots.PATCH("/:id", a.updateShot)
	shots.DELETE("/:id", a.deleteShot)
	shots.GET("/:id/analysis", a.analyzeShot)

	analytics := api.Group("/analytics")
	analytics.Use(a.cache.Middleware(a.metrics))
	analytics.GET("/summary", a.summary)
	analytics.GET("/trend", a.trend)

	api.POST("/recommendations", a.recommend)

	settings := api.Group("/settings")
	settings.GET("/grinder", a.getGrinder)
	settings.PUT("/grinder", a.putGrinder)
	settings.GET("/basket", a.getBasket)
	settings.PUT("/basket", a.putBasket)

	return r
}

// health reports liveness plus the state of the store and cache.
// A failing database ping turns the response into 503.
func (a *app) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	dbStatus := "ok"
	if err := a.db.PingContext(ctx); err != nil {
		a.logger.Error("Health check database ping failed", "error", err)
		status = "degraded"
		code = http.StatusServiceUnavailable
		dbStatus = "unavailable"
	}

	cacheStats := a.cache.Stats()
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version,
		"uptime":    time.Since(a.startedAt).Round(time.Second).String(),
		"services": gin.H{
			"database": dbStatus,
			"redis":    cacheStats["redis_enabled"],
		},
	})
}
