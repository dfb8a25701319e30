package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/cache"
	"github.com/ZanzyTHEbar/dialin/internal/config"
	"github.com/ZanzyTHEbar/dialin/internal/database"
	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/middleware"
	"github.com/ZanzyTHEbar/dialin/internal/monitoring"
	"github.com/ZanzyTHEbar/dialin/internal/scheduler"
	"github.com/ZanzyTHEbar/dialin/internal/security"
)

// app holds the long-lived components shared by the router and the shutdown path
type app struct {
	cfg       *config.Config
	db        *database.DB
	settings  *database.SettingsService
	beans     *database.BeanService
	shots     *database.ShotService
	analytics *database.AnalyticsService
	local     *cache.Cache
	cache     *cache.AnalyticsCache
	metrics   *monitoring.Metrics
	logger    *monitoring.Logger
	tracer    *monitoring.Tracer
	memory    *monitoring.MemoryMonitor
	security  *security.SecurityMiddleware
	compress  *middleware.CompressionMiddleware
	scheduler *scheduler.Scheduler
	startedAt time.Time
}

// newApp opens the store and builds every service. Redis is optional: a failed
// connection is logged and the cache keeps working in process.
func newApp(ctx context.Context, cfg *config.Config, logger *monitoring.Logger) (*app, error) {
	db, err := database.NewDB(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	analyzer, err := analysis.NewAnalyzerFromDir(cfg.Storage.DataDir)
	if err != nil {
		logger.Warn("Using default scoring calibration", "error", err)
	}

	repo := database.NewRepository(db)
	settings := database.NewSettingsService(repo)

	eq, err := config.ReadEquipment(cfg.Storage.SettingsFile)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := settings.SeedDefaults(ctx, eq.Grinder, eq.Basket); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding equipment settings: %w", err)
	}

	local := cache.NewCache(cfg.Cache.TTL)
	var remote *cache.RedisStore
	if cfg.Cache.RedisAddr != "" {
		remote, err = cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			logger.Warn("Redis unavailable, caching in process only", "error", err)
			remote = nil
		}
	}
	analyticsCache := cache.NewAnalyticsCache(local, remote)

	metrics := monitoring.NewMetrics()

	secConfig := security.DefaultSecurityConfig()
	secConfig.MaxRequestsPerMin = cfg.Security.RateLimitPerMin
	if len(cfg.Security.AllowedOrigins) > 0 {
		secConfig.AllowedOrigins = cfg.Security.AllowedOrigins
	}
	secConfig.EnableHSTS = cfg.Security.EnableHSTS

	beans := database.NewBeanService(repo, analyticsCache)

	a := &app{
		cfg:       cfg,
		db:        db,
		settings:  settings,
		beans:     beans,
		shots:     database.NewShotService(repo, settings, analyzer, analyticsCache),
		analytics: database.NewAnalyticsService(repo, settings, analyzer),
		local:     local,
		cache:     analyticsCache,
		metrics:   metrics,
		logger:    logger,
		tracer:    monitoring.NewTracer("dialin", logger),
		memory:    monitoring.NewMemoryMonitor(30*time.Second, 256<<20, logger),
		security:  security.NewSecurityMiddleware(secConfig, metrics),
		compress:  middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		startedAt: time.Now(),
	}
	a.scheduler = scheduler.NewScheduler(scheduler.Config{
		SweepSchedule: cfg.Scheduler.SweepSchedule,
	}, beans, local, metrics, logger)

	return a, nil
}

// close stops background sampling and releases the cache and the database
func (a *app) close() {
	a.memory.Stop()
	apperrors.SafeClose(a.cache, "analytics cache")
	apperrors.SafeClose(a.db, "database")
}
