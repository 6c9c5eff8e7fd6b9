package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-haryana-gateway/internal/civic"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

func newDashboardFixture() (*DashboardService, issueFixture) {
	f := newIssueFixture()
	cache := NewCacheService(f.cache, nil, time.Minute, nil, true)
	svc := NewDashboardService(f.client, f.svc, cache, nil, DashboardServiceConfig{CacheTTL: time.Minute})
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) }
	return svc, f
}

func TestDashboardServiceAdmin(t *testing.T) {
	svc, f := newDashboardFixture()
	hours := 36.5
	f.client.adminStats = models.AdminStats{TotalProblems: 4, PendingProblems: 1, AverageResolutionTimeHours: &hours}

	dashboard, hit, err := svc.Dashboard(context.Background(), adminSession())
	require.NoError(t, err)
	assert.False(t, hit)
	require.NotNil(t, dashboard.Admin)
	assert.Nil(t, dashboard.Client)
	assert.Equal(t, 4, dashboard.Admin.TotalProblems)
	assert.Equal(t, 4, dashboard.Breakdown.Total)
	assert.Equal(t, 1, dashboard.Breakdown.ByStatus["pending"])
	assert.Equal(t, 1, dashboard.Breakdown.ByPriority["high"])
	assert.Equal(t, 2, dashboard.Breakdown.ByPriority["low"])

	_, hit, err = svc.Dashboard(context.Background(), adminSession())
	require.NoError(t, err)
	assert.True(t, hit)

	hisar := models.Session{AccessToken: "tok-hisar", Profile: models.UserProfile{ID: 10, Role: models.RoleAdmin, District: "Hisar"}}
	_, hit, err = svc.Dashboard(context.Background(), hisar)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDashboardServiceClientAndWorker(t *testing.T) {
	svc, f := newDashboardFixture()
	f.client.clientStats = models.ClientDistrictStats{DistrictName: "Hisar", TotalProblems: 12}
	f.client.workerStats = models.WorkerSelfStats{WorkerName: "Ravi", TasksCompleted: 8}

	dashboard, _, err := svc.Dashboard(context.Background(), clientSession())
	require.NoError(t, err)
	require.NotNil(t, dashboard.Client)
	assert.Equal(t, "Hisar", dashboard.Client.DistrictName)

	dashboard, _, err = svc.Dashboard(context.Background(), workerSession())
	require.NoError(t, err)
	require.NotNil(t, dashboard.Worker)
	assert.Equal(t, 8, dashboard.Worker.TasksCompleted)
}

func TestDashboardServiceDegradesWhenStatsUnavailable(t *testing.T) {
	svc, f := newDashboardFixture()
	f.client.statsErr = civic.ErrUnavailable

	dashboard, _, err := svc.Dashboard(context.Background(), adminSession())
	require.NoError(t, err)
	assert.Nil(t, dashboard.Admin)
	assert.Equal(t, 4, dashboard.Breakdown.Total)
	assert.False(t, f.cache.has(dashboardCacheKey("admin:rohtak")))
}

func TestDashboardServicePropagatesStatsErrors(t *testing.T) {
	svc, f := newDashboardFixture()
	f.client.statsErr = &civic.APIError{Operation: "admin_stats", Status: 403, Detail: "Not enough permissions"}

	_, _, err := svc.Dashboard(context.Background(), adminSession())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
