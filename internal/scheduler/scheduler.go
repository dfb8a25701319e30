package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ZanzyTHEbar/dialin/internal/monitoring"
	"github.com/ZanzyTHEbar/dialin/internal/types"
)

const (
	jobFreshnessSweep = "freshness_sweep"
	jobCacheSweep     = "cache_sweep"

	jobTimeout = 2 * time.Minute
)

// BeanLister is the slice of the bean service the sweep needs
type BeanLister interface {
	List(ctx context.Context, includeInactive bool) ([]types.Bean, error)
}

// CacheSweeper drops expired analytics entries
type CacheSweeper interface {
	Sweep() int
}

// StaleBean is an active bean past its useful freshness window
type StaleBean struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DaysSinceRoast int    `json:"days_since_roast"`
}

// FreshnessReport summarizes one freshness sweep
type FreshnessReport struct {
	Checked  int         `json:"checked"`
	TooFresh int         `json:"too_fresh"`
	Stale    []StaleBean `json:"stale"`
}

// Config holds the cron expressions for each job
type Config struct {
	SweepSchedule string
	CacheSchedule string
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	beans   BeanLister
	cache   CacheSweeper
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
	now     func() time.Time
}

// NewScheduler creates a new scheduler instance. cache may be nil.
func NewScheduler(cfg Config, beans BeanLister, cache CacheSweeper, metrics *monitoring.Metrics, logger *monitoring.Logger) *Scheduler {
	if cfg.CacheSchedule == "" {
		cfg.CacheSchedule = "@every 5m"
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		beans:   beans,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.runFreshnessSweep); err != nil {
		return fmt.Errorf("scheduling %s: %w", jobFreshnessSweep, err)
	}

	if s.cache != nil {
		if _, err := s.cron.AddFunc(s.cfg.CacheSchedule, s.runCacheSweep); err != nil {
			return fmt.Errorf("scheduling %s: %w", jobCacheSweep, err)
		}
	}

	s.logger.SystemLogger("scheduler_start", fmt.Sprintf("%d jobs", len(s.cron.Entries())))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.SystemLogger("scheduler_stop", "")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// SweepFreshness checks every active bean against its roast date
func (s *Scheduler) SweepFreshness(ctx context.Context) (*FreshnessReport, error) {
	beans, err := s.beans.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("listing beans: %w", err)
	}

	now := s.now()
	report := &FreshnessReport{Checked: len(beans), Stale: []StaleBean{}}
	for _, bean := range beans {
		switch bean.Freshness(now) {
		case types.FreshnessStale:
			report.Stale = append(report.Stale, StaleBean{
				ID:             bean.ID,
				Name:           bean.Name,
				DaysSinceRoast: bean.DaysSinceRoast(now),
			})
		case types.FreshnessTooFresh:
			report.TooFresh++
		}
	}

	return report, nil
}

func (s *Scheduler) runFreshnessSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.SweepFreshness(ctx)
	s.metrics.RecordJobRun(err)
	if err != nil {
		s.logger.JobLogger(jobFreshnessSweep, time.Since(start), err)
		return
	}

	for _, bean := range report.Stale {
		s.logger.Warn("Stale bean",
			"bean_id", bean.ID,
			"name", bean.Name,
			"days_since_roast", bean.DaysSinceRoast,
		)
	}

	s.logger.JobLogger(jobFreshnessSweep, time.Since(start), nil,
		"checked", report.Checked,
		"stale", len(report.Stale),
		"too_fresh", report.TooFresh,
	)
}

func (s *Scheduler) runCacheSweep() {
	start := time.Now()
	removed := s.cache.Sweep()
	s.metrics.RecordJobRun(nil)
	s.logger.JobLogger(jobCacheSweep, time.Since(start), nil, "removed", removed)
}
