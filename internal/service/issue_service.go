package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/civic"
	"github.com/noah-isme/smart-haryana-gateway/internal/dto"
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

type issueClient interface {
	MyIssues(ctx context.Context, token string) ([]models.Issue, error)
	WorkerTasks(ctx context.Context, token string) ([]models.Issue, error)
	AllIssues(ctx context.Context, token string) ([]models.Issue, error)
	Issue(ctx context.Context, token string, id int64) (models.Issue, error)
	CreateIssue(ctx context.Context, token string, input models.NewIssueInput) (models.Issue, error)
	SubmitFeedback(ctx context.Context, token string, id int64, input models.FeedbackInput) (models.Feedback, error)
	VerifyCompletion(ctx context.Context, token string, id int64) (models.Issue, error)
	CompleteTask(ctx context.Context, token string, id int64, input models.CompletionInput) (models.Issue, error)
}

type snapshotStore interface {
	ReplaceScope(ctx context.Context, scope string, snapshots []models.IssueSnapshot) error
	ListScope(ctx context.Context, scope string, statuses []string) ([]models.IssueSnapshot, error)
	LastFetched(ctx context.Context, scope string) (*time.Time, error)
	RemoveIssue(ctx context.Context, issueID int64) error
}

// RefreshScheduler queues a background refresh of a caller's scope.
type RefreshScheduler interface {
	ScheduleRefresh(session models.Session)
}

// IssueListQuery carries list parameters from the query string.
type IssueListQuery struct {
	Status   string `form:"status"`
	Sort     string `form:"sort"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// CreateIssueRequest is a citizen's new issue report.
type CreateIssueRequest struct {
	Title       string  `validate:"required,min=5,max=200,safetext"`
	Description string  `validate:"max=2000,safetext"`
	ProblemType string  `validate:"required,min=2,max=50,safetext"`
	District    string  `validate:"required,district"`
	Latitude    float64 `validate:"min=-90,max=90"`
	Longitude   float64 `validate:"min=-180,max=180"`
	Photo       models.Upload
}

// FeedbackRequest rates a resolved issue.
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=5,max=1000,safetext"`
}

// CompleteTaskRequest is a worker's proof of resolution.
type CompleteTaskRequest struct {
	Latitude  float64 `validate:"min=-90,max=90"`
	Longitude float64 `validate:"min=-180,max=180"`
	Proof     models.Upload
}

// IssueServiceConfig tunes listing behaviour.
type IssueServiceConfig struct {
	CacheTTL time.Duration
}

// IssueService serves role-scoped issue views and forwards citizen and worker mutations.
type IssueService struct {
	client    issueClient
	snapshots snapshotStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    IssueServiceConfig
	scheduler RefreshScheduler
	now       func() time.Time
}

// NewIssueService constructs the service.
func NewIssueService(client issueClient, snapshots snapshotStore, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config IssueServiceConfig) *IssueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Minute
	}
	return &IssueService{
		client:    client,
		snapshots: snapshots,
		cache:     cache,
		metrics:   metrics,
		validator: newValidator(validate),
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// SetRefreshScheduler wires the background refresher after construction.
func (s *IssueService) SetRefreshScheduler(scheduler RefreshScheduler) {
	s.scheduler = scheduler
}

// ScopeFor names the listing scope of a caller. District admins only see
// their district, so each district gets its own scope; an admin without a
// district falls back to a per-user scope. Super admins share one global scope.
func ScopeFor(profile models.UserProfile) string {
	switch profile.Role {
	case models.RoleWorker:
		return fmt.Sprintf("worker:%d", profile.ID)
	case models.RoleSuperAdmin:
		return "admin:all"
	case models.RoleAdmin:
		if district := strings.ToLower(strings.TrimSpace(profile.District)); district != "" {
			return "admin:" + district
		}
		return fmt.Sprintf("admin:user:%d", profile.ID)
	default:
		return fmt.Sprintf("user:%d", profile.ID)
	}
}

// List returns a filtered, sorted page of the caller's issues.
func (s *IssueService) List(ctx context.Context, session models.Session, query IssueListQuery) (*dto.IssueList, error) {
	selector, err := issueview.ParseSelector(query.Status)
	if err != nil {
		return nil, err
	}
	sortKey, err := issueview.ParseSortKey(query.Sort)
	if err != nil {
		return nil, err
	}

	result, err := s.scopeIssues(ctx, session, selector)
	if err != nil {
		return nil, err
	}

	applied := issueview.Apply(result.issues, issueview.Query{Status: selector, Sort: sortKey})
	page, size := normalisePage(query.Page, query.PageSize)
	start, end := pageBounds(page, size, len(applied))

	return &dto.IssueList{
		Items:      issueview.DecorateAll(applied[start:end]),
		Pagination: &models.Pagination{Page: page, PageSize: size, TotalCount: len(applied)},
		Status:     selector,
		Sort:       sortKey,
		Stale:      result.stale,
		FetchedAt:  result.fetchedAt,
		CacheHit:   result.cacheHit,
	}, nil
}

// Get returns one decorated issue visible to the caller.
func (s *IssueService) Get(ctx context.Context, session models.Session, id int64) (*issueview.View, error) {
	issue, err := s.Current(ctx, session, id)
	if err != nil {
		return nil, err
	}
	view := issueview.Decorate(issue)
	return &view, nil
}

// All returns the caller's whole scope, unfiltered. The boolean reports
// whether it was served from snapshots.
func (s *IssueService) All(ctx context.Context, session models.Session) ([]models.Issue, bool, error) {
	result, err := s.scopeIssues(ctx, session, issueview.SelectorAll)
	if err != nil {
		return nil, false, err
	}
	return result.issues, result.stale, nil
}

// Current returns the caller's latest projection of an issue. Citizens read
// it directly; other roles find it in their scope.
func (s *IssueService) Current(ctx context.Context, session models.Session, id int64) (models.Issue, error) {
	if session.Profile.Role == models.RoleClient {
		issue, err := s.client.Issue(ctx, session.AccessToken, id)
		if err != nil {
			return models.Issue{}, civic.ToAppError(err)
		}
		return issue, nil
	}

	result, err := s.scopeIssues(ctx, session, issueview.SelectorAll)
	if err != nil {
		return models.Issue{}, err
	}
	for _, issue := range result.issues {
		if issue.ID == id {
			return issue, nil
		}
	}
	return models.Issue{}, appErrors.Clone(appErrors.ErrNotFound, "issue not found")
}

// Create files a new issue for a citizen.
func (s *IssueService) Create(ctx context.Context, session models.Session, req CreateIssueRequest) (*issueview.View, error) {
	if session.Profile.Role != models.RoleClient {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only citizens can report issues")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.ProblemType = strings.TrimSpace(req.ProblemType)
	if district, ok := models.CanonicalDistrict(req.District); ok {
		req.District = district
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid issue payload")
	}
	if err := checkImage(req.Photo, "file"); err != nil {
		return nil, err
	}

	issue, err := s.client.CreateIssue(ctx, session.AccessToken, models.NewIssueInput{
		Title:       req.Title,
		Description: req.Description,
		ProblemType: req.ProblemType,
		District:    req.District,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Photo:       req.Photo,
	})
	if err != nil {
		return nil, civic.ToAppError(err)
	}

	s.logger.Info("issue created", zap.Int64("issue_id", issue.ID), zap.Int64("user_id", session.Profile.ID), zap.String("district", issue.District))
	s.AfterMutation(ctx, session)
	view := issueview.Decorate(issue)
	return &view, nil
}

// Feedback rates a completed or verified issue.
func (s *IssueService) Feedback(ctx context.Context, session models.Session, id int64, req FeedbackRequest) (*models.Feedback, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid feedback payload")
	}
	if _, err := s.guard(ctx, session, id, ActionFeedback); err != nil {
		return nil, err
	}

	feedback, err := s.client.SubmitFeedback(ctx, session.AccessToken, id, models.FeedbackInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		return nil, civic.ToAppError(err)
	}
	s.AfterMutation(ctx, session)
	return &feedback, nil
}

// Verify confirms a completed issue was resolved.
func (s *IssueService) Verify(ctx context.Context, session models.Session, id int64) (*issueview.View, error) {
	if _, err := s.guard(ctx, session, id, ActionVerify); err != nil {
		return nil, err
	}
	issue, err := s.client.VerifyCompletion(ctx, session.AccessToken, id)
	if err != nil {
		return nil, civic.ToAppError(err)
	}
	s.logger.Info("issue verified", zap.Int64("issue_id", id), zap.Int64("user_id", session.Profile.ID))
	s.AfterMutation(ctx, session)
	view := issueview.Decorate(issue)
	return &view, nil
}

// Complete marks a worker's assigned task done with proof.
func (s *IssueService) Complete(ctx context.Context, session models.Session, id int64, req CompleteTaskRequest) (*issueview.View, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid completion payload")
	}
	if err := checkImage(req.Proof, "proof_file"); err != nil {
		return nil, err
	}
	if _, err := s.guard(ctx, session, id, ActionComplete); err != nil {
		return nil, err
	}

	issue, err := s.client.CompleteTask(ctx, session.AccessToken, id, models.CompletionInput{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Proof:     req.Proof,
	})
	if err != nil {
		return nil, civic.ToAppError(err)
	}
	s.logger.Info("task completed", zap.Int64("issue_id", id), zap.Int64("worker_id", session.Profile.ID))
	s.AfterMutation(ctx, session)
	view := issueview.Decorate(issue)
	return &view, nil
}

// Refresh fetches the caller's scope from the backend and stores it.
func (s *IssueService) Refresh(ctx context.Context, session models.Session) (int, error) {
	issues, err := s.fetch(ctx, session)
	if err != nil {
		return 0, civic.ToAppError(err)
	}
	s.store(ctx, ScopeFor(session.Profile), issues)
	return len(issues), nil
}

// AfterMutation drops cached views and schedules a refresh of the caller's scope.
func (s *IssueService) AfterMutation(ctx context.Context, session models.Session) {
	if err := s.cache.Invalidate(ctx, issuesCachePattern, dashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate issue caches", zap.Error(err))
	}
	if s.scheduler != nil {
		s.scheduler.ScheduleRefresh(session)
	}
}

func (s *IssueService) guard(ctx context.Context, session models.Session, id int64, action IssueAction) (models.Issue, error) {
	issue, err := s.Current(ctx, session, id)
	if err != nil {
		return models.Issue{}, err
	}
	if err := CheckTransition(action, issue.Status); err != nil {
		return models.Issue{}, err
	}
	return issue, nil
}

type scopeResult struct {
	issues    []models.Issue
	stale     bool
	cacheHit  bool
	fetchedAt *time.Time
}

func (s *IssueService) scopeIssues(ctx context.Context, session models.Session, selector string) (scopeResult, error) {
	scope := ScopeFor(session.Profile)
	key := issuesCacheKey(scope)

	var cached []models.Issue
	if s.cache.Lookup(ctx, key, &cached) {
		return scopeResult{issues: cached, cacheHit: true}, nil
	}

	issues, err := s.fetch(ctx, session)
	if err == nil {
		s.store(ctx, scope, issues)
		now := s.now().UTC()
		return scopeResult{issues: issues, fetchedAt: &now}, nil
	}
	if !isUnavailable(err) || s.snapshots == nil {
		return scopeResult{}, civic.ToAppError(err)
	}

	stale, fetchedAt, snapErr := s.fromSnapshots(ctx, scope, selector)
	if snapErr != nil || fetchedAt == nil {
		if snapErr != nil {
			s.logger.Warn("snapshot fallback failed", zap.String("scope", scope), zap.Error(snapErr))
		}
		return scopeResult{}, civic.ToAppError(err)
	}
	s.logger.Warn("serving stale issues", zap.String("scope", scope), zap.Time("fetched_at", *fetchedAt), zap.Error(err))
	s.metrics.RecordStaleResponse(string(session.Profile.Role))
	return scopeResult{issues: stale, stale: true, fetchedAt: fetchedAt}, nil
}

func (s *IssueService) fetch(ctx context.Context, session models.Session) ([]models.Issue, error) {
	switch session.Profile.Role {
	case models.RoleWorker:
		return s.client.WorkerTasks(ctx, session.AccessToken)
	case models.RoleAdmin, models.RoleSuperAdmin:
		return s.client.AllIssues(ctx, session.AccessToken)
	default:
		return s.client.MyIssues(ctx, session.AccessToken)
	}
}

func (s *IssueService) store(ctx context.Context, scope string, issues []models.Issue) {
	_ = s.cache.Set(ctx, issuesCacheKey(scope), issues, s.config.CacheTTL)
	if s.snapshots == nil {
		return
	}

	fetchedAt := s.now().UTC()
	rows := make([]models.IssueSnapshot, 0, len(issues))
	for _, issue := range issues {
		row, err := models.NewIssueSnapshot(scope, issue, fetchedAt)
		if err != nil {
			s.logger.Warn("failed to encode snapshot", zap.Int64("issue_id", issue.ID), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	start := time.Now()
	err := s.snapshots.ReplaceScope(ctx, scope, rows)
	s.metrics.ObserveDBQuery("replace_scope", time.Since(start))
	if err != nil {
		s.logger.Warn("failed to persist snapshots", zap.String("scope", scope), zap.Error(err))
	}
}

func (s *IssueService) fromSnapshots(ctx context.Context, scope, selector string) ([]models.Issue, *time.Time, error) {
	fetchedAt, err := s.snapshots.LastFetched(ctx, scope)
	if err != nil || fetchedAt == nil {
		return nil, nil, err
	}

	var statuses []string
	if selector != issueview.SelectorAll {
		statuses = []string{strings.ToLower(selector)}
	}
	start := time.Now()
	rows, err := s.snapshots.ListScope(ctx, scope, statuses)
	s.metrics.ObserveDBQuery("list_scope", time.Since(start))
	if err != nil {
		return nil, nil, err
	}

	issues := make([]models.Issue, 0, len(rows))
	for _, row := range rows {
		issue, err := row.Issue()
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", zap.Int64("issue_id", row.IssueID), zap.Error(err))
			continue
		}
		issues = append(issues, issue)
	}
	return issues, fetchedAt, nil
}

// isUnavailable reports whether err means the backend could not serve the request.
func isUnavailable(err error) bool {
	if errors.Is(err, civic.ErrUnavailable) {
		return true
	}
	var apiErr *civic.APIError
	return errors.As(err, &apiErr) && apiErr.Status >= http.StatusInternalServerError
}

// pageBounds returns the slice bounds of page within total items. Pages past
// the end yield an empty range without overflowing.
func pageBounds(page, size, total int) (int, int) {
	if page-1 >= (total+size-1)/size {
		return total, total
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
