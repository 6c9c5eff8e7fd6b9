package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
	"github.com/noah-isme/smart-haryana-gateway/pkg/jobs"
)

const jobTypeRefreshScope = "refresh_scope"

type scopeRefresher interface {
	Refresh(ctx context.Context, session models.Session) (int, error)
}

type sessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, bool, error)
}

// SyncConfig controls background snapshot refreshes.
type SyncConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration
	// Cron schedules an admin-scope refresh with ServiceToken. Both must be
	// set for the schedule to run.
	Cron         string
	ServiceToken string
	Location     *time.Location
}

// SyncService refreshes scope snapshots in the background.
type SyncService struct {
	refresher scopeRefresher
	resolver  sessionResolver
	metrics   *MetricsService
	logger    *zap.Logger
	config    SyncConfig
	queue     *jobs.Queue
	cron      *cron.Cron
}

// NewSyncService constructs the service and its worker queue.
func NewSyncService(refresher scopeRefresher, resolver sessionResolver, metrics *MetricsService, logger *zap.Logger, config SyncConfig) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 2 * time.Second
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	s := &SyncService{refresher: refresher, resolver: resolver, metrics: metrics, logger: logger, config: config}
	s.queue = jobs.NewQueue("snapshot-sync", s.handle, jobs.QueueConfig{
		Workers:    config.Workers,
		MaxRetries: config.Retries,
		RetryDelay: config.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers and, when configured, the cron schedule.
func (s *SyncService) Start(ctx context.Context) error {
	s.queue.Start(ctx)
	if s.config.Cron == "" || s.config.ServiceToken == "" {
		s.logger.Info("scheduled snapshot refresh disabled")
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithLocation(s.config.Location), cron.WithParser(parser))
	if _, err := c.AddFunc(s.config.Cron, s.scheduled); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.config.Cron, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("scheduled snapshot refresh enabled", zap.String("cron", s.config.Cron))
	return nil
}

// Stop halts the schedule and drains the workers.
func (s *SyncService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.queue.Stop()
}

// ScheduleRefresh queues a refresh of the session's scope. Requests for a
// scope that is already queued are dropped.
func (s *SyncService) ScheduleRefresh(session models.Session) {
	scope := ScopeFor(session.Profile)
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeRefreshScope,
		Key:     scope,
		Payload: session,
	})
	switch {
	case err == nil:
	case errors.Is(err, jobs.ErrDuplicate):
		s.logger.Debug("refresh already queued", zap.String("scope", scope))
	default:
		s.logger.Warn("failed to queue refresh", zap.String("scope", scope), zap.Error(err))
	}
}

// RefreshNow resolves token and refreshes its scope synchronously.
func (s *SyncService) RefreshNow(ctx context.Context, token string) (int, error) {
	session, _, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		return 0, err
	}
	count, err := s.refresher.Refresh(ctx, *session)
	s.metrics.RecordSyncJob(err == nil)
	return count, err
}

func (s *SyncService) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()
	session, _, err := s.resolver.Resolve(ctx, s.config.ServiceToken)
	if err != nil {
		s.logger.Error("cron: service token rejected", zap.Error(err))
		return
	}
	s.logger.Info("cron: refreshing snapshots", zap.String("scope", ScopeFor(session.Profile)))
	s.ScheduleRefresh(*session)
}

func (s *SyncService) handle(ctx context.Context, job jobs.Job) error {
	session, ok := job.Payload.(models.Session)
	if !ok {
		s.logger.Error("unexpected sync payload", zap.String("job_id", job.ID))
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	count, err := s.refresher.Refresh(ctx, session)
	s.metrics.RecordSyncJob(err == nil)
	if err == nil {
		s.logger.Debug("scope refreshed", zap.String("scope", job.Key), zap.Int("issues", count))
		return nil
	}
	if appErrors.FromError(err).Status < 500 {
		// the token likely expired
		return jobs.Permanent(err)
	}
	return err
}
