package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/civic"
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

type statsClient interface {
	ClientDistrictStats(ctx context.Context, token string) (models.ClientDistrictStats, error)
	AdminStats(ctx context.Context, token string) (models.AdminStats, error)
	WorkerStats(ctx context.Context, token string) (models.WorkerSelfStats, error)
}

type scopeLoader interface {
	All(ctx context.Context, session models.Session) ([]models.Issue, bool, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes role-scoped dashboards.
type DashboardService struct {
	stats  statsClient
	issues scopeLoader
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs the service.
func NewDashboardService(stats statsClient, issues scopeLoader, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &DashboardService{stats: stats, issues: issues, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Dashboard returns the caller's dashboard; the boolean reports a cache hit.
func (s *DashboardService) Dashboard(ctx context.Context, session models.Session) (*models.Dashboard, bool, error) {
	key := dashboardCacheKey(ScopeFor(session.Profile))
	var cached models.Dashboard
	if s.cache.Lookup(ctx, key, &cached) {
		return &cached, true, nil
	}

	issues, stale, err := s.issues.All(ctx, session)
	if err != nil {
		return nil, false, err
	}

	dashboard := &models.Dashboard{
		Role:        session.Profile.Role,
		Breakdown:   issueview.Breakdown(issues),
		GeneratedAt: s.now().UTC(),
	}

	degraded, err := s.attachStats(ctx, session, dashboard)
	if err != nil {
		return nil, false, err
	}
	if !stale && !degraded {
		_ = s.cache.Set(ctx, key, dashboard, s.cfg.CacheTTL)
	}
	return dashboard, false, nil
}

// attachStats fills the role's upstream statistics. An unreachable backend
// leaves the section empty and reports degraded.
func (s *DashboardService) attachStats(ctx context.Context, session models.Session, dashboard *models.Dashboard) (bool, error) {
	token := session.AccessToken
	var err error
	switch session.Profile.Role {
	case models.RoleClient:
		var stats models.ClientDistrictStats
		if stats, err = s.stats.ClientDistrictStats(ctx, token); err == nil {
			dashboard.Client = &stats
		}
	case models.RoleWorker:
		var stats models.WorkerSelfStats
		if stats, err = s.stats.WorkerStats(ctx, token); err == nil {
			dashboard.Worker = &stats
		}
	case models.RoleAdmin, models.RoleSuperAdmin:
		var stats models.AdminStats
		if stats, err = s.stats.AdminStats(ctx, token); err == nil {
			dashboard.Admin = &stats
		}
	}
	if err == nil {
		return false, nil
	}
	if isUnavailable(err) {
		s.logger.Warn("dashboard stats unavailable", zap.String("role", string(session.Profile.Role)), zap.Error(err))
		return true, nil
	}
	return false, civic.ToAppError(err)
}
