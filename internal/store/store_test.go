package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

func sampleSession() models.Session {
	return models.Session{
		AccessToken: "token-1",
		TokenType:   "bearer",
		Profile:     models.UserProfile{ID: 7, Email: "citizen@example.com", Role: models.RoleClient, IsActive: true},
	}
}

func sampleIssues() []models.Issue {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return []models.Issue{
		{ID: 1, Title: "Pothole", Status: models.IssueStatusPending, Priority: 0.9, CreatedAt: base},
		{ID: 2, Title: "Water", Status: models.IssueStatusCompleted, Priority: 0.3, CreatedAt: base.Add(time.Hour)},
		{ID: 3, Title: "Lights", Status: models.IssueStatusPending, Priority: 0.5, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func TestReduceSessionLifecycle(t *testing.T) {
	state := Initial()
	state = Reduce(state, IssuesLoaded{Issues: sampleIssues()})

	signedIn := Reduce(state, SessionStarted{Session: sampleSession()})
	require.True(t, signedIn.SignedIn())
	assert.Empty(t, signedIn.Issues)
	assert.Equal(t, state.Version+1, signedIn.Version)

	signedOut := Reduce(signedIn, SessionEnded{})
	assert.False(t, signedOut.SignedIn())
	assert.True(t, signedIn.SignedIn(), "previous state must stay untouched")
}

func TestReduceIgnoresUnsupportedLanguage(t *testing.T) {
	state := Initial()
	next := Reduce(state, LanguageChanged{Language: "fr"})
	assert.Equal(t, state, next)

	next = Reduce(state, LanguageChanged{Language: "hi"})
	assert.Equal(t, "hi", next.Language)
	assert.Equal(t, DefaultLanguage, state.Language)
}

func TestReduceQueryKeepsEmptyFields(t *testing.T) {
	state := Reduce(Initial(), IssuesLoaded{Issues: sampleIssues()})
	state = Reduce(state, QueryChanged{Query: issueview.Query{Sort: issueview.SortPriority}})
	assert.Equal(t, issueview.SelectorAll, state.Query.Status)
	assert.Equal(t, issueview.SortPriority, state.Query.Sort)

	state = Reduce(state, QueryChanged{Query: issueview.Query{Status: "pending"}})
	assert.Equal(t, "pending", state.Query.Status)
	assert.Equal(t, issueview.SortPriority, state.Query.Sort)

	visible := state.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, int64(1), visible[0].ID)
	assert.Empty(t, Initial().Visible())
}

func TestReduceDoesNotShareIssueSlices(t *testing.T) {
	issues := sampleIssues()
	state := Reduce(Initial(), IssuesLoaded{Issues: issues})
	issues[0].Title = "changed"
	assert.Equal(t, "Pothole", state.Issues[0].Title)

	updated := state.Issues[1]
	updated.Status = models.IssueStatusVerified
	next := Reduce(state, IssueUpdated{Issue: updated})
	assert.Equal(t, models.IssueStatusVerified, next.Issues[1].Status)
	assert.Equal(t, models.IssueStatusCompleted, state.Issues[1].Status)

	appended := Reduce(next, IssueUpdated{Issue: models.Issue{ID: 9, Status: models.IssueStatusPending}})
	assert.Len(t, appended.Issues, 4)
}

func TestReduceFetchFailureKeepsIssues(t *testing.T) {
	state := Reduce(Initial(), IssuesLoaded{Issues: sampleIssues()})
	state = Reduce(state, FetchStarted{})
	assert.True(t, state.Loading)

	boom := errors.New("boom")
	state = Reduce(state, FetchFailed{Err: boom})
	assert.False(t, state.Loading)
	assert.ErrorIs(t, state.Err, boom)
	assert.Len(t, state.Issues, 3)
}

func TestStorePublishesChanges(t *testing.T) {
	s := New(Initial(), nil)
	defer s.Close()

	updates, cancel := s.Subscribe()
	defer cancel()

	first := <-updates
	assert.Equal(t, uint64(0), first.Version)

	require.NoError(t, s.Dispatch(context.Background(), LanguageChanged{Language: "hi"}))
	next := <-updates
	assert.Equal(t, "hi", next.Language)
	assert.Equal(t, "hi", s.State().Language)
}

func TestStoreUnsubscribeClosesChannel(t *testing.T) {
	s := New(Initial(), nil)
	defer s.Close()

	updates, cancel := s.Subscribe()
	<-updates
	cancel()
	cancel()

	_, open := <-updates
	assert.False(t, open)
}

func TestStoreFetch(t *testing.T) {
	s := New(Initial(), nil)
	defer s.Close()

	err := s.Fetch(context.Background(), func(context.Context) ([]models.Issue, error) {
		assert.True(t, s.State().Loading)
		return sampleIssues(), nil
	})
	require.NoError(t, err)
	state := s.State()
	assert.False(t, state.Loading)
	assert.Len(t, state.Issues, 3)

	boom := errors.New("upstream down")
	err = s.Fetch(context.Background(), func(context.Context) ([]models.Issue, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.State().Err, boom)
	assert.Len(t, s.State().Issues, 3)
}

func TestStoreFetchDiscardsResultAfterClose(t *testing.T) {
	s := New(Initial(), nil)

	err := s.Fetch(context.Background(), func(context.Context) ([]models.Issue, error) {
		s.Close()
		return sampleIssues(), nil
	})
	assert.ErrorIs(t, err, ErrClosed)

	state := s.State()
	assert.True(t, state.Loading)
	assert.Empty(t, state.Issues)
	assert.ErrorIs(t, s.Dispatch(context.Background(), SessionEnded{}), ErrClosed)

	updates, cancel := s.Subscribe()
	defer cancel()
	_, open := <-updates
	assert.False(t, open)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	p, err := Open(ctx, path)
	require.NoError(t, err)

	empty, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Initial(), empty)

	state := Reduce(Initial(), SessionStarted{Session: sampleSession()})
	state = Reduce(state, LanguageChanged{Language: "hi"})
	state = Reduce(state, QueryChanged{Query: issueview.Query{Status: "completed", Sort: issueview.SortStatus}})
	require.NoError(t, p.Save(ctx, state))
	require.NoError(t, p.Close())

	p, err = Open(ctx, path)
	require.NoError(t, err)
	defer p.Close()

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded.Session)
	assert.Equal(t, "token-1", loaded.Session.AccessToken)
	assert.Equal(t, models.RoleClient, loaded.Session.Profile.Role)
	assert.Equal(t, "hi", loaded.Language)
	assert.Equal(t, "completed", loaded.Query.Status)
	assert.Equal(t, issueview.SortStatus, loaded.Query.Sort)

	require.NoError(t, p.Save(ctx, Reduce(loaded, SessionEnded{})))
	cleared, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cleared.Session)
	assert.Equal(t, "hi", cleared.Language)
}
