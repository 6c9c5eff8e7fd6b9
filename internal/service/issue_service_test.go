package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-haryana-gateway/internal/civic"
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type civicStub struct {
	mu sync.Mutex

	issues    []models.Issue
	byToken   map[string][]models.Issue
	listErr   error
	listCalls int
	single    map[int64]models.Issue

	created     models.NewIssueInput
	feedback    models.FeedbackInput
	completed   models.CompletionInput
	mutationErr error
	mutations   []string

	workers    []models.WorkerProfile
	reassignTo int64
	deleted    string

	clientStats models.ClientDistrictStats
	adminStats  models.AdminStats
	workerStats models.WorkerSelfStats
	statsErr    error
}

func (s *civicStub) list() ([]models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.Issue(nil), s.issues...), nil
}

func (s *civicStub) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations = append(s.mutations, op)
	return s.mutationErr
}

func (s *civicStub) MyIssues(context.Context, string) ([]models.Issue, error) { return s.list() }

func (s *civicStub) WorkerTasks(context.Context, string) ([]models.Issue, error) { return s.list() }

func (s *civicStub) AllIssues(_ context.Context, token string) ([]models.Issue, error) {
	s.mu.Lock()
	scoped, ok := s.byToken[token]
	s.mu.Unlock()
	if ok {
		return append([]models.Issue(nil), scoped...), nil
	}
	return s.list()
}

func (s *civicStub) Issue(_ context.Context, _ string, id int64) (models.Issue, error) {
	if issue, ok := s.single[id]; ok {
		return issue, nil
	}
	return models.Issue{}, &civic.APIError{Operation: "issue", Status: 404, Detail: "Problem not found"}
}

func (s *civicStub) CreateIssue(_ context.Context, _ string, input models.NewIssueInput) (models.Issue, error) {
	s.created = input
	if err := s.record("create"); err != nil {
		return models.Issue{}, err
	}
	return models.Issue{ID: 99, Title: input.Title, Status: models.IssueStatusPending, District: input.District, CreatedAt: time.Now()}, nil
}

func (s *civicStub) SubmitFeedback(_ context.Context, _ string, _ int64, input models.FeedbackInput) (models.Feedback, error) {
	s.feedback = input
	if err := s.record("feedback"); err != nil {
		return models.Feedback{}, err
	}
	return models.Feedback{ID: 1, Rating: input.Rating, Comment: input.Comment}, nil
}

func (s *civicStub) VerifyCompletion(_ context.Context, _ string, id int64) (models.Issue, error) {
	if err := s.record("verify"); err != nil {
		return models.Issue{}, err
	}
	return models.Issue{ID: id, Title: "Verified", Status: models.IssueStatusVerified}, nil
}

func (s *civicStub) CompleteTask(_ context.Context, _ string, id int64, input models.CompletionInput) (models.Issue, error) {
	s.completed = input
	if err := s.record("complete"); err != nil {
		return models.Issue{}, err
	}
	return models.Issue{ID: id, Title: "Done", Status: models.IssueStatusCompleted}, nil
}

func (s *civicStub) ReassignIssue(_ context.Context, _ string, id, workerID int64) (models.Issue, error) {
	s.reassignTo = workerID
	if err := s.record("reassign"); err != nil {
		return models.Issue{}, err
	}
	return models.Issue{ID: id, Title: "Reassigned", Status: models.IssueStatusAssigned}, nil
}

func (s *civicStub) DeleteIssue(_ context.Context, _ string, _ int64, reason string) error {
	s.deleted = reason
	return s.record("delete")
}

func (s *civicStub) Workers(context.Context, string) ([]models.WorkerProfile, error) {
	return s.workers, nil
}

func (s *civicStub) ClientDistrictStats(context.Context, string) (models.ClientDistrictStats, error) {
	return s.clientStats, s.statsErr
}

func (s *civicStub) AdminStats(context.Context, string) (models.AdminStats, error) {
	return s.adminStats, s.statsErr
}

func (s *civicStub) WorkerStats(context.Context, string) (models.WorkerSelfStats, error) {
	return s.workerStats, s.statsErr
}

type snapshotStub struct {
	mu         sync.Mutex
	scopes     map[string][]models.IssueSnapshot
	fetched    map[string]time.Time
	removed    []int64
	statuses   []string
	replaceErr error
}

func newSnapshotStub() *snapshotStub {
	return &snapshotStub{scopes: map[string][]models.IssueSnapshot{}, fetched: map[string]time.Time{}}
}

func (s *snapshotStub) ReplaceScope(_ context.Context, scope string, rows []models.IssueSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.scopes[scope] = rows
	if len(rows) > 0 {
		s.fetched[scope] = rows[0].FetchedAt
	}
	return nil
}

func (s *snapshotStub) ListScope(_ context.Context, scope string, statuses []string) ([]models.IssueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = statuses
	return s.scopes[scope], nil
}

func (s *snapshotStub) LastFetched(_ context.Context, scope string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.fetched[scope]; ok {
		return &ts, nil
	}
	return nil, nil
}

func (s *snapshotStub) RemoveIssue(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, id)
	return nil
}

type schedulerStub struct {
	scopes []string
}

func (s *schedulerStub) ScheduleRefresh(session models.Session) {
	s.scopes = append(s.scopes, ScopeFor(session.Profile))
}

func clientSession() models.Session {
	return models.Session{AccessToken: "tok", Profile: models.UserProfile{ID: 7, Email: "asha@example.com", Role: models.RoleClient, District: "Hisar", IsActive: true}}
}

func adminSession() models.Session {
	return models.Session{AccessToken: "admin-tok", Profile: models.UserProfile{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin, District: "Rohtak", IsActive: true}}
}

func workerSession() models.Session {
	return models.Session{AccessToken: "worker-tok", Profile: models.UserProfile{ID: 3, Email: "worker@example.com", Role: models.RoleWorker, IsActive: true}}
}

func sampleIssues() []models.Issue {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []models.Issue{
		{ID: 1, Title: "Pothole on NH-9", Status: models.IssueStatusPending, Priority: 0.9, CreatedAt: base},
		{ID: 2, Title: "Broken streetlight", Status: models.IssueStatusAssigned, Priority: 0.6, CreatedAt: base.Add(time.Hour)},
		{ID: 3, Title: "Garbage pile", Status: models.IssueStatusCompleted, Priority: 0.2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 4, Title: "Water leak", Status: models.IssueStatusVerified, Priority: 0.4, CreatedAt: base.Add(3 * time.Hour)},
	}
}

type issueFixture struct {
	svc       *IssueService
	client    *civicStub
	snapshots *snapshotStub
	cache     *memoryCache
	metrics   *MetricsService
	scheduler *schedulerStub
}

func newIssueFixture() issueFixture {
	client := &civicStub{issues: sampleIssues(), single: map[int64]models.Issue{}}
	for _, issue := range client.issues {
		client.single[issue.ID] = issue
	}
	snapshots := newSnapshotStub()
	repo := newMemoryCache()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)
	svc := NewIssueService(client, snapshots, cache, metrics, nil, nil, IssueServiceConfig{CacheTTL: time.Minute})
	scheduler := &schedulerStub{}
	svc.SetRefreshScheduler(scheduler)
	return issueFixture{svc: svc, client: client, snapshots: snapshots, cache: repo, metrics: metrics, scheduler: scheduler}
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, "user:7", ScopeFor(clientSession().Profile))
	assert.Equal(t, "worker:3", ScopeFor(workerSession().Profile))
	assert.Equal(t, "admin:rohtak", ScopeFor(adminSession().Profile))
	assert.Equal(t, "admin:user:5", ScopeFor(models.UserProfile{ID: 5, Role: models.RoleAdmin}))
	assert.Equal(t, "admin:all", ScopeFor(models.UserProfile{ID: 2, Role: models.RoleSuperAdmin, District: "Hisar"}))
}

func TestIssueServiceListFiltersSortsAndPaginates(t *testing.T) {
	f := newIssueFixture()

	list, err := f.svc.List(context.Background(), clientSession(), IssueListQuery{Sort: "priority", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, int64(1), list.Items[0].ID)
	assert.Equal(t, int64(2), list.Items[1].ID)
	assert.Equal(t, issueview.PriorityHigh, list.Items[0].PriorityTier)
	assert.Equal(t, 4, list.Pagination.TotalCount)
	assert.Equal(t, issueview.SelectorAll, list.Status)
	assert.False(t, list.CacheHit)

	list, err = f.svc.List(context.Background(), clientSession(), IssueListQuery{Status: "Completed"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(3), list.Items[0].ID)
	assert.True(t, list.CacheHit)
	assert.Equal(t, 1, f.client.listCalls)
	assert.Len(t, f.snapshots.scopes["user:7"], 4)
}

func TestIssueServiceListPageBeyondEndIsEmpty(t *testing.T) {
	f := newIssueFixture()

	for _, page := range []int{3, math.MaxInt64 / 10, math.MaxInt64} {
		list, err := f.svc.List(context.Background(), clientSession(), IssueListQuery{Page: page, PageSize: 2})
		require.NoError(t, err)
		assert.Empty(t, list.Items)
		assert.Equal(t, page, list.Pagination.Page)
		assert.Equal(t, 4, list.Pagination.TotalCount)
	}

	list, err := f.svc.List(context.Background(), clientSession(), IssueListQuery{Page: 2, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
}

func TestIssueServiceAdminScopesArePerDistrict(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	hisar := models.Session{AccessToken: "tok-hisar", Profile: models.UserProfile{ID: 10, Role: models.RoleAdmin, District: "Hisar"}}
	rohtak := models.Session{AccessToken: "tok-rohtak", Profile: models.UserProfile{ID: 11, Role: models.RoleAdmin, District: "Rohtak"}}
	f.client.byToken = map[string][]models.Issue{
		"tok-hisar":  {{ID: 100, Title: "Hisar drain", Status: models.IssueStatusPending, District: "Hisar"}},
		"tok-rohtak": {{ID: 200, Title: "Rohtak road", Status: models.IssueStatusPending, District: "Rohtak"}},
	}

	list, err := f.svc.List(ctx, hisar, IssueListQuery{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(100), list.Items[0].ID)

	list, err = f.svc.List(ctx, rohtak, IssueListQuery{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(200), list.Items[0].ID)
	assert.False(t, list.CacheHit)

	assert.Len(t, f.snapshots.scopes["admin:hisar"], 1)
	assert.Len(t, f.snapshots.scopes["admin:rohtak"], 1)

	_, err = f.svc.Get(ctx, rohtak, 100)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestIssueServiceListRejectsUnknownSelectorAndSort(t *testing.T) {
	f := newIssueFixture()

	_, err := f.svc.List(context.Background(), clientSession(), IssueListQuery{Status: "archived"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.List(context.Background(), clientSession(), IssueListQuery{Sort: "alphabetical"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, f.client.listCalls)
}

func TestIssueServiceListServesStaleSnapshots(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx, adminSession())
	require.NoError(t, err)
	require.NoError(t, f.cache.DeleteByPattern(ctx, issuesCachePattern))

	f.client.listErr = civic.ErrUnavailable
	list, err := f.svc.List(ctx, adminSession(), IssueListQuery{Status: "pending"})
	require.NoError(t, err)
	assert.True(t, list.Stale)
	require.NotNil(t, list.FetchedAt)
	require.Len(t, list.Items, 1)
	assert.Equal(t, []string{"pending"}, f.snapshots.statuses)
	assert.EqualValues(t, 1, f.metrics.Snapshot().StaleResponses)
}

func TestIssueServiceListWithoutSnapshotReturnsUnavailable(t *testing.T) {
	f := newIssueFixture()
	f.client.listErr = civic.ErrUnavailable

	_, err := f.svc.List(context.Background(), workerSession(), IssueListQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamUnavailable))
}

func TestIssueServiceListDoesNotMaskClientErrors(t *testing.T) {
	f := newIssueFixture()
	f.client.listErr = &civic.APIError{Operation: "my_issues", Status: 401, Detail: "Could not validate credentials"}

	_, err := f.svc.List(context.Background(), clientSession(), IssueListQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestIssueServiceGetFromScopeForStaff(t *testing.T) {
	f := newIssueFixture()

	view, err := f.svc.Get(context.Background(), workerSession(), 2)
	require.NoError(t, err)
	assert.Equal(t, issueview.TierInfo, view.Display.ColorTier)

	_, err = f.svc.Get(context.Background(), workerSession(), 42)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.Get(context.Background(), clientSession(), 42)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestIssueServiceCreate(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	_, err := f.svc.List(ctx, clientSession(), IssueListQuery{})
	require.NoError(t, err)

	view, err := f.svc.Create(ctx, clientSession(), CreateIssueRequest{
		Title:       "  Overflowing drain  ",
		Description: "Drain near the bus stand overflows after rain",
		ProblemType: "Drainage",
		District:    "gurugram",
		Latitude:    28.45,
		Longitude:   77.02,
		Photo:       models.Upload{Filename: "drain.png", Data: pngHeader},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), view.ID)
	assert.Equal(t, "Overflowing drain", f.client.created.Title)
	assert.Equal(t, "Gurugram", f.client.created.District)
	assert.False(t, f.cache.has(issuesCacheKey("user:7")))
	assert.Equal(t, []string{"user:7"}, f.scheduler.scopes)
}

func TestIssueServiceCreateValidation(t *testing.T) {
	f := newIssueFixture()
	valid := CreateIssueRequest{
		Title:       "Overflowing drain",
		ProblemType: "Drainage",
		District:    "Hisar",
		Photo:       models.Upload{Data: pngHeader},
	}

	cases := map[string]func(r *CreateIssueRequest){
		"short title":      func(r *CreateIssueRequest) { r.Title = "abc" },
		"script in title":  func(r *CreateIssueRequest) { r.Title = "<script>alert(1)</script>" },
		"unknown district": func(r *CreateIssueRequest) { r.District = "Atlantis" },
		"latitude range":   func(r *CreateIssueRequest) { r.Latitude = 91 },
		"missing photo":    func(r *CreateIssueRequest) { r.Photo = models.Upload{} },
		"not an image":     func(r *CreateIssueRequest) { r.Photo = models.Upload{Data: []byte("plain text")} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, err := f.svc.Create(context.Background(), clientSession(), req)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
	assert.Empty(t, f.client.mutations)

	_, err := f.svc.Create(context.Background(), workerSession(), valid)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestIssueServiceFeedbackGuardsStatus(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	req := FeedbackRequest{Rating: 4, Comment: "Fixed quickly, thanks"}

	_, err := f.svc.Feedback(ctx, clientSession(), 1, req)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	feedback, err := f.svc.Feedback(ctx, clientSession(), 3, req)
	require.NoError(t, err)
	assert.Equal(t, 4, feedback.Rating)
	assert.Equal(t, []string{"feedback"}, f.client.mutations)

	_, err = f.svc.Feedback(ctx, clientSession(), 4, FeedbackRequest{Rating: 6, Comment: "Fixed quickly"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestIssueServiceVerify(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()

	_, err := f.svc.Verify(ctx, clientSession(), 2)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	view, err := f.svc.Verify(ctx, clientSession(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusVerified, view.Status)
	assert.Equal(t, issueview.TierAccent, view.Display.ColorTier)
}

func TestIssueServiceCompleteForwardsProof(t *testing.T) {
	f := newIssueFixture()
	ctx := context.Background()
	req := CompleteTaskRequest{Latitude: 29.1, Longitude: 75.7, Proof: models.Upload{Filename: "proof.png", Data: pngHeader}}

	_, err := f.svc.Complete(ctx, workerSession(), 1, req)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	view, err := f.svc.Complete(ctx, workerSession(), 2, req)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusCompleted, view.Status)
	assert.Equal(t, 29.1, f.client.completed.Latitude)
	assert.Equal(t, []string{"worker:3"}, f.scheduler.scopes)
}

func TestIssueServiceMapsUpstreamMutationErrors(t *testing.T) {
	f := newIssueFixture()
	f.client.mutationErr = &civic.APIError{Operation: "verify", Status: 403, Detail: "Not your problem"}

	_, err := f.svc.Verify(context.Background(), clientSession(), 3)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, f.scheduler.scopes)
}

func TestIssueServiceRefreshToleratesSnapshotFailure(t *testing.T) {
	f := newIssueFixture()
	f.snapshots.replaceErr = errors.New("db down")

	count, err := f.svc.Refresh(context.Background(), adminSession())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.True(t, f.cache.has(issuesCacheKey("admin:rohtak")))
}
