package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

type refresherStub struct {
	calls   int32
	errs    []error
	release chan struct{}
}

func (s *refresherStub) Refresh(context.Context, models.Session) (int, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if s.release != nil {
		<-s.release
	}
	if int(n) <= len(s.errs) {
		return 0, s.errs[n-1]
	}
	return 3, nil
}

type resolverStub struct {
	session models.Session
	err     error
}

func (s resolverStub) Resolve(context.Context, string) (*models.Session, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	session := s.session
	return &session, false, nil
}

func TestSyncServiceRetriesUnavailable(t *testing.T) {
	refresher := &refresherStub{errs: []error{appErrors.Clone(appErrors.ErrUpstreamUnavailable, "")}}
	metrics := NewMetricsService()
	svc := NewSyncService(refresher, resolverStub{}, metrics, nil, SyncConfig{Workers: 1, Retries: 2, RetryDelay: 10 * time.Millisecond})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	svc.ScheduleRefresh(adminSession())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&refresher.calls) == 2 }, time.Second, 5*time.Millisecond)
}

func TestSyncServiceDoesNotRetryRejectedTokens(t *testing.T) {
	refresher := &refresherStub{errs: []error{appErrors.Clone(appErrors.ErrUnauthorized, "")}}
	svc := NewSyncService(refresher, resolverStub{}, nil, nil, SyncConfig{Workers: 1, Retries: 3, RetryDelay: 5 * time.Millisecond})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	svc.ScheduleRefresh(clientSession())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&refresher.calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&refresher.calls))
}

func TestSyncServiceCoalescesScope(t *testing.T) {
	refresher := &refresherStub{release: make(chan struct{})}
	svc := NewSyncService(refresher, resolverStub{}, nil, nil, SyncConfig{Workers: 2})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	svc.ScheduleRefresh(clientSession())
	svc.ScheduleRefresh(clientSession())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&refresher.calls) == 1 }, time.Second, 5*time.Millisecond)
	close(refresher.release)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&refresher.calls))
}

func TestSyncServiceRejectsBadSchedule(t *testing.T) {
	svc := NewSyncService(&refresherStub{}, resolverStub{}, nil, nil, SyncConfig{Cron: "every minute", ServiceToken: "svc"})
	err := svc.Start(context.Background())
	require.Error(t, err)
	svc.Stop()
}

func TestSyncServiceRefreshNow(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewSyncService(&refresherStub{}, resolverStub{session: adminSession()}, metrics, nil, SyncConfig{})
	count, err := svc.RefreshNow(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	svc = NewSyncService(&refresherStub{}, resolverStub{err: errors.New("expired")}, metrics, nil, SyncConfig{})
	_, err = svc.RefreshNow(context.Background(), "svc")
	assert.Error(t, err)
}
