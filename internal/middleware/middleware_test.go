package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	"github.com/noah-isme/smart-haryana-gateway/internal/service"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
	"github.com/noah-isme/smart-haryana-gateway/pkg/response"
)

type resolverStub struct {
	sessions map[string]models.Session
}

func (r resolverStub) Resolve(_ context.Context, token string) (*models.Session, bool, error) {
	session, ok := r.sessions[token]
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return &session, false, nil
}

type limiterStub struct {
	counts map[string]int64
	err    error
}

func (l *limiterStub) Hit(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	if l.err != nil {
		return 0, 0, l.err
	}
	l.counts[key]++
	return l.counts[key], 90 * time.Minute, nil
}

func newRouter(resolver SessionResolver, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{WithResponseMeta(), JWT(resolver)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		session, _ := SessionFrom(c)
		SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, gin.H{"role": session.Profile.Role}, nil, ExtractMeta(c))
	})
	r.GET("/protected/:id", chain...)
	return r
}

func testResolver() resolverStub {
	return resolverStub{sessions: map[string]models.Session{
		"client-token": {AccessToken: "client-token", Profile: models.UserProfile{ID: 7, Email: "asha@example.com", Role: models.RoleClient}},
		"admin-token":  {AccessToken: "admin-token", Profile: models.UserProfile{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin}},
	}}
}

func perform(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected/5", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRequiresBearerToken(t *testing.T) {
	r := newRouter(testResolver())

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Token client-token").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, "Bearer unknown").Code)

	w := perform(r, "Bearer client-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"client"`)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
}

func TestRequireRoles(t *testing.T) {
	r := newRouter(testResolver(), RequireStaff())

	assert.Equal(t, http.StatusForbidden, perform(r, "Bearer client-token").Code)
	assert.Equal(t, http.StatusOK, perform(r, "Bearer admin-token").Code)
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	limiter := &limiterStub{counts: map[string]int64{}}
	r := newRouter(testResolver(), RateLimit(limiter, "issues", 2, 24*time.Hour, nil, nil))

	first := perform(r, "Bearer client-token")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, perform(r, "Bearer client-token").Code)

	w := perform(r, "Bearer client-token")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "5400", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, perform(r, "Bearer admin-token").Code)
	assert.EqualValues(t, 3, limiter.counts["issues:7"])
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &limiterStub{err: errors.New("redis down")}
	r := newRouter(testResolver(), RateLimit(limiter, "issues", 1, time.Hour, nil, nil))

	assert.Equal(t, http.StatusOK, perform(r, "Bearer client-token").Code)
	assert.Equal(t, http.StatusOK, perform(r, "Bearer client-token").Code)
}

func TestSetStaleMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fetched := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800))

	SetStale(c, true, &fetched)
	meta := ExtractMeta(c)
	assert.Equal(t, true, meta["stale"])
	assert.Equal(t, "2024-03-01T04:00:00Z", meta["fetched_at"])
	assert.Equal(t, `110 - "Response is Stale"`, w.Header().Get("Warning"))

	fresh, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetStale(fresh, false, &fetched)
	assert.NotContains(t, ExtractMeta(fresh), "fetched_at")
}

func TestCacheHitHeader(t *testing.T) {
	r := newRouter(testResolver())
	w := perform(r, "Bearer client-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), `"processing_time_ms"`)
}

func TestMetricsLabelsRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/issues/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/issues/1", "/issues/2", "/metrics", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, uint64(3), metrics.Snapshot().RequestsTotal)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/issues/:id",status="200"} 2`)
	assert.Contains(t, body, `path="unmatched",status="404"`)
}
