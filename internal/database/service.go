package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/types"
	"github.com/ZanzyTHEbar/dialin/internal/validation"
)

// Invalidator drops cached analytics after the journal changes
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) error { return nil }

// SettingsService reads and writes grinder and basket configuration
type SettingsService struct {
	repo *Repository
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo *Repository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Grinder returns the stored grinder configuration or the default
func (s *SettingsService) Grinder(ctx context.Context) (types.GrinderConfiguration, error) {
	g := types.DefaultGrinderConfiguration()
	err := s.repo.GetSetting(ctx, SettingGrinder, &g)
	if errors.Is(err, ErrNotFound) {
		return types.DefaultGrinderConfiguration(), nil
	}
	return g, err
}

// Basket returns the stored basket configuration or the default
func (s *SettingsService) Basket(ctx context.Context) (types.BasketConfiguration, error) {
	b := types.DefaultBasketConfiguration()
	err := s.repo.GetSetting(ctx, SettingBasket, &b)
	if errors.Is(err, ErrNotFound) {
		return types.DefaultBasketConfiguration(), nil
	}
	return b, err
}

// SetGrinder validates and stores a grinder configuration
func (s *SettingsService) SetGrinder(ctx context.Context, g types.GrinderConfiguration) error {
	if err := validation.ValidateGrinder(g); err != nil {
		return err
	}
	return s.repo.PutSetting(ctx, SettingGrinder, g)
}

// SetBasket validates and stores a basket configuration
func (s *SettingsService) SetBasket(ctx context.Context, b types.BasketConfiguration) error {
	if err := validation.ValidateBasket(b); err != nil {
		return err
	}
	return s.repo.PutSetting(ctx, SettingBasket, b)
}

// SeedDefaults stores the given configuration only for keys that are still unset
func (s *SettingsService) SeedDefaults(ctx context.Context, g *types.GrinderConfiguration, b *types.BasketConfiguration) error {
	if g != nil {
		var existing types.GrinderConfiguration
		if err := s.repo.GetSetting(ctx, SettingGrinder, &existing); errors.Is(err, ErrNotFound) {
			if err := s.SetGrinder(ctx, *g); err != nil {
				return fmt.Errorf("grinder: %w", err)
			}
		}
	}
	if b != nil {
		var existing types.BasketConfiguration
		if err := s.repo.GetSetting(ctx, SettingBasket, &existing); errors.Is(err, ErrNotFound) {
			if err := s.SetBasket(ctx, *b); err != nil {
				return fmt.Errorf("basket: %w", err)
			}
		}
	}
	return nil
}

// BeanService provides business logic for the bean library
type BeanService struct {
	repo  *Repository
	cache Invalidator
	now   func() time.Time
}

// NewBeanService creates a new bean service. cache may be nil.
func NewBeanService(repo *Repository, cache Invalidator) *BeanService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &BeanService{repo: repo, cache: cache, now: time.Now}
}

// Create validates the form and stores a new active bean
func (s *BeanService) Create(ctx context.Context, req types.CreateBeanRequest) (*types.Bean, error) {
	roast, err := validation.ValidateBean(req, s.now())
	if err != nil {
		return nil, err
	}

	bean := NewBean(strings.TrimSpace(req.Name), roast, req.Notes)
	if err := s.repo.CreateBean(ctx, bean); err != nil {
		return nil, err
	}

	slog.Info("Bean created", "bean_id", bean.ID, "name", bean.Name)
	return bean, nil
}

// Get loads one bean
func (s *BeanService) Get(ctx context.Context, id string) (*types.Bean, error) {
	return s.repo.GetBean(ctx, id)
}

// List returns active beans, or all of them when includeInactive is set
func (s *BeanService) List(ctx context.Context, includeInactive bool) ([]types.Bean, error) {
	return s.repo.ListBeans(ctx, includeInactive)
}

// Update replaces the name, roast date and notes of a bean
func (s *BeanService) Update(ctx context.Context, id string, req types.CreateBeanRequest) (*types.Bean, error) {
	bean, err := s.repo.GetBean(ctx, id)
	if err != nil {
		return nil, err
	}

	roast, err := validation.ValidateBean(req, s.now())
	if err != nil {
		return nil, err
	}

	bean.Name = strings.TrimSpace(req.Name)
	bean.RoastDate = roast
	bean.Notes = req.Notes
	if err := s.repo.UpdateBean(ctx, bean); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Warn("Failed to invalidate analytics cache", "error", err)
	}
	return bean, nil
}

// Archive hides a bean from the shot form while keeping its history
func (s *BeanService) Archive(ctx context.Context, id string) error {
	if err := s.repo.SetBeanActive(ctx, id, false); err != nil {
		return err
	}
	slog.Info("Bean archived", "bean_id", id)
	return s.cache.Invalidate(ctx)
}

// Restore makes an archived bean selectable again
func (s *BeanService) Restore(ctx context.Context, id string) error {
	if err := s.repo.SetBeanActive(ctx, id, true); err != nil {
		return err
	}
	slog.Info("Bean restored", "bean_id", id)
	return s.cache.Invalidate(ctx)
}

// ShotService records, edits and analyzes shots
type ShotService struct {
	repo     *Repository
	settings *SettingsService
	analyzer *analysis.Analyzer
	cache    Invalidator
	now      func() time.Time
}

// NewShotService creates a new shot service. cache may be nil.
func NewShotService(repo *Repository, settings *SettingsService, analyzer *analysis.Analyzer, cache Invalidator) *ShotService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &ShotService{
		repo:     repo,
		settings: settings,
		analyzer: analyzer,
		cache:    cache,
		now:      time.Now,
	}
}

// Record validates and stores a shot, remembers the grinder setting on its
// bean and drops cached analytics
func (s *ShotService) Record(ctx context.Context, req types.RecordShotRequest) (*types.Shot, error) {
	var bean *types.Bean
	if strings.TrimSpace(req.BeanID) != "" {
		b, err := s.repo.GetBean(ctx, req.BeanID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		bean = b
	}

	grinder, err := s.settings.Grinder(ctx)
	if err != nil {
		return nil, err
	}
	basket, err := s.settings.Basket(ctx)
	if err != nil {
		return nil, err
	}

	req.GrinderSetting = strings.TrimSpace(req.GrinderSetting)
	if err := validation.ValidateShot(req, bean, grinder, basket); err != nil {
		return nil, err
	}

	shot := NewShot(req)
	if err := s.repo.CreateShot(ctx, shot); err != nil {
		return nil, err
	}

	if err := s.repo.TouchBeanSetting(ctx, shot.BeanID, shot.GrinderSetting); err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Warn("Failed to invalidate analytics cache", "error", err)
	}

	slog.Info("Shot recorded",
		"shot_id", shot.ID,
		"bean_id", shot.BeanID,
		"ratio", shot.RoundedBrewRatio(),
		"extraction_time", shot.ExtractionTimeSeconds,
		"grinder_setting", shot.GrinderSetting)

	return shot, nil
}

// Get loads one shot
func (s *ShotService) Get(ctx context.Context, id string) (*types.Shot, error) {
	return s.repo.GetShot(ctx, id)
}

// List returns shots matching q
func (s *ShotService) List(ctx context.Context, q ShotQuery) ([]types.Shot, error) {
	return s.repo.ListShots(ctx, q)
}

// Update edits notes and taste feedback of a saved shot
func (s *ShotService) Update(ctx context.Context, id string, req types.UpdateShotRequest) (*types.Shot, error) {
	if err := validation.ValidateShotUpdate(req); err != nil {
		return nil, err
	}

	shot, err := s.repo.GetShot(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Notes != nil {
		shot.Notes = *req.Notes
	}
	if req.ClearTaste {
		shot.TastePrimary = nil
		shot.TasteSecondary = nil
	}
	if req.TastePrimary != nil {
		shot.TastePrimary = req.TastePrimary
	}
	if req.TasteSecondary != nil {
		shot.TasteSecondary = req.TasteSecondary
	}

	if err := s.repo.UpdateShot(ctx, shot); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Warn("Failed to invalidate analytics cache", "error", err)
	}
	return shot, nil
}

// Count returns how many shots the journal holds
func (s *ShotService) Count(ctx context.Context) (int, error) {
	return s.repo.CountShots(ctx)
}

// Delete removes a shot
func (s *ShotService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteShot(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Warn("Failed to invalidate analytics cache", "error", err)
	}
	return nil
}

// Analyze scores a saved shot against its bean history and recommends the
// next grind adjustment
func (s *ShotService) Analyze(ctx context.Context, id string) (*analysis.ShotAnalysis, error) {
	shot, err := s.repo.GetShot(ctx, id)
	if err != nil {
		return nil, err
	}

	var bean *types.Bean
	if b, err := s.repo.GetBean(ctx, shot.BeanID); err == nil {
		bean = b
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	history, err := s.repo.ListShots(ctx, ShotQuery{BeanID: shot.BeanID, To: shot.Timestamp})
	if err != nil {
		return nil, err
	}

	grinder, err := s.settings.Grinder(ctx)
	if err != nil {
		return nil, err
	}

	result := s.analyzer.AnalyzeShot(*shot, history, bean, grinder, s.now())
	return &result, nil
}

// AnalyticsService runs the aggregate analyzer and the recommender over the journal
type AnalyticsService struct {
	repo     *Repository
	settings *SettingsService
	analyzer *analysis.Analyzer
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(repo *Repository, settings *SettingsService, analyzer *analysis.Analyzer) *AnalyticsService {
	return &AnalyticsService{repo: repo, settings: settings, analyzer: analyzer}
}

func (s *AnalyticsService) shots(ctx context.Context, f analysis.Filter) ([]types.Shot, error) {
	return s.repo.ListShots(ctx, ShotQuery{BeanID: f.BeanID, From: f.From, To: f.To})
}

// Summary aggregates the shots matching f
func (s *AnalyticsService) Summary(ctx context.Context, f analysis.Filter) (*analysis.Summary, error) {
	shots, err := s.shots(ctx, f)
	if err != nil {
		return nil, err
	}
	summary := s.analyzer.Summarize(shots, f)
	return &summary, nil
}

// Trend compares the older and newer halves of the shots matching f
func (s *AnalyticsService) Trend(ctx context.Context, f analysis.Filter) (*analysis.Trend, error) {
	shots, err := s.shots(ctx, f)
	if err != nil {
		return nil, err
	}
	trend := s.analyzer.Trend(shots, f)
	return &trend, nil
}

// Recommend suggests a grind change for a shot that was not saved
func (s *AnalyticsService) Recommend(ctx context.Context, req types.RecommendRequest) (*analysis.Recommendation, error) {
	grinder, err := s.settings.Grinder(ctx)
	if err != nil {
		return nil, err
	}

	req.GrinderSetting = strings.TrimSpace(req.GrinderSetting)
	if err := validation.ValidateRecommendRequest(req, grinder); err != nil {
		return nil, err
	}

	rec := s.analyzer.Recommend(req.GrinderSetting, s.analyzer.TimeDeviation(req.ExtractionTimeSeconds), req.TastePrimary, grinder)
	return &rec, nil
}
