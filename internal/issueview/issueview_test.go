package issueview

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func scenarioIssues() []models.Issue {
	return []models.Issue{
		{ID: 1, Status: models.IssueStatusPending, Priority: 0.9, CreatedAt: day("2024-01-01")},
		{ID: 2, Status: models.IssueStatusCompleted, Priority: 0.3, CreatedAt: day("2024-02-01")},
	}
}

func ids(issues []models.Issue) []int64 {
	out := make([]int64, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.ID)
	}
	return out
}

func randomIssues(r *rand.Rand, n int) []models.Issue {
	statuses := []string{"pending", "Assigned", "COMPLETED", "verified", "rejected", "weird"}
	base := day("2024-01-01")
	issues := make([]models.Issue, n)
	for i := range issues {
		issues[i] = models.Issue{
			ID:        int64(i + 1),
			Status:    models.IssueStatus(statuses[r.Intn(len(statuses))]),
			Priority:  float64(r.Intn(11)) / 10,
			CreatedAt: base.Add(time.Duration(i*7919%(n*13+1)) * time.Hour),
		}
	}
	return issues
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		input string
		tier  ColorTier
		icon  string
		label string
	}{
		{"pending", TierWarning, "schedule", "status.pending"},
		{"Assigned", TierInfo, "assignment_ind", "status.assigned"},
		{"COMPLETED", TierSuccess, "check_circle", "status.completed"},
		{"verified", TierAccent, "verified", "status.verified"},
		{"rejected", TierDanger, "cancel", "status.rejected"},
		{"unknown_status", TierNeutral, IconUnknown, "unknown_status"},
		{"", TierNeutral, IconUnknown, ""},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := ClassifyStatus(tc.input)
			assert.Equal(t, tc.tier, got.ColorTier)
			assert.Equal(t, tc.icon, got.Icon)
			assert.Equal(t, tc.label, got.LabelKey)
		})
	}
	assert.Equal(t, ClassifyStatus("rejected"), ClassifyStatus("REJECTED"))
}

func TestClassifyPriorityBoundaries(t *testing.T) {
	assert.Equal(t, PriorityHigh, ClassifyPriority(0.8))
	assert.Equal(t, PriorityMedium, ClassifyPriority(0.79999))
	assert.Equal(t, PriorityMedium, ClassifyPriority(0.5))
	assert.Equal(t, PriorityLow, ClassifyPriority(0.49999))
	assert.Equal(t, PriorityHigh, ClassifyPriority(1.7))
	assert.Equal(t, PriorityLow, ClassifyPriority(-0.2))
}

func TestClassifyPriorityMonotonic(t *testing.T) {
	rank := map[PriorityTier]int{PriorityLow: 0, PriorityMedium: 1, PriorityHigh: 2}
	prev := ClassifyPriority(-1)
	for p := -1.0; p <= 2.0; p += 0.001 {
		cur := ClassifyPriority(p)
		require.GreaterOrEqual(t, rank[cur], rank[prev], "priority %f", p)
		prev = cur
	}
}

func TestFilterScenario(t *testing.T) {
	issues := scenarioIssues()
	assert.Equal(t, []int64{1}, ids(Filter(issues, "pending")))
	assert.Equal(t, []int64{1}, ids(Filter(issues, "PENDING")))
	assert.Empty(t, Filter(issues, "verified"))
	assert.Equal(t, issues, Filter(issues, "all"))
	assert.Equal(t, issues, Filter(issues, "ALL"))
}

func TestFilterProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		issues := randomIssues(r, r.Intn(30))
		original := append([]models.Issue(nil), issues...)
		for _, selector := range []string{"pending", "assigned", "completed", "Verified", "weird"} {
			filtered := Filter(issues, selector)
			next := 0
			for _, issue := range filtered {
				assert.Equal(t, strings.ToLower(selector), strings.ToLower(string(issue.Status)))
				for next < len(issues) && issues[next].ID != issue.ID {
					next++
				}
				require.Less(t, next, len(issues), "filtered result is not a subsequence")
				next++
			}
		}
		assert.Equal(t, original, issues)
	}
}

func TestFilterAllReturnsCopy(t *testing.T) {
	issues := scenarioIssues()
	all := Filter(issues, SelectorAll)
	all[0].Title = "changed"
	assert.Empty(t, issues[0].Title)
}

func TestSortScenario(t *testing.T) {
	issues := scenarioIssues()
	assert.Equal(t, []int64{2, 1}, ids(Sort(issues, SortNewest)))
	assert.Equal(t, []int64{1, 2}, ids(Sort(issues, SortOldest)))
	assert.Equal(t, []int64{1, 2}, ids(Sort(issues, SortPriority)))
	assert.Equal(t, []int64{2, 1}, ids(Sort(issues, SortStatus)))
	assert.Equal(t, []int64{1, 2}, ids(issues))
}

func TestSortStatusIsLexicographic(t *testing.T) {
	issues := []models.Issue{
		{ID: 1, Status: models.IssueStatusVerified},
		{ID: 2, Status: models.IssueStatusPending},
		{ID: 3, Status: models.IssueStatusCompleted},
		{ID: 4, Status: models.IssueStatusAssigned},
	}
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(Sort(issues, SortStatus)))
}

func TestSortPriorityIsStable(t *testing.T) {
	issues := []models.Issue{
		{ID: 1, Priority: 0.5},
		{ID: 2, Priority: 0.9},
		{ID: 3, Priority: 0.5},
		{ID: 4, Priority: 0.9},
	}
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(Sort(issues, SortPriority)))
}

func TestSortProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := r.Intn(25)
		issues := randomIssues(r, n)
		for i := range issues {
			issues[i].CreatedAt = day("2024-01-01").Add(time.Duration(r.Perm(1000)[0]+i*1000) * time.Minute)
		}
		r.Shuffle(len(issues), func(i, j int) { issues[i], issues[j] = issues[j], issues[i] })
		original := append([]models.Issue(nil), issues...)

		newest := Sort(issues, SortNewest)
		oldest := Sort(issues, SortOldest)
		for i := range newest {
			assert.Equal(t, newest[i].ID, oldest[len(oldest)-1-i].ID)
		}

		byPriority := Sort(issues, SortPriority)
		for i := 1; i < len(byPriority); i++ {
			assert.GreaterOrEqual(t, byPriority[i-1].Priority, byPriority[i].Priority)
		}
		assert.Equal(t, original, issues)
	}
}

func TestSortUnknownKeyReturnsCopy(t *testing.T) {
	issues := scenarioIssues()
	out := Sort(issues, SortKey("random"))
	assert.Equal(t, issues, out)
	out[0].ID = 99
	assert.Equal(t, int64(1), issues[0].ID)
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, key)

	key, err = ParseSortKey(" Priority ")
	require.NoError(t, err)
	assert.Equal(t, SortPriority, key)

	_, err = ParseSortKey("alphabetical")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "newest, oldest, priority, status")
	assert.Len(t, SortKeys(), 4)
}

func TestParseSelector(t *testing.T) {
	selector, err := ParseSelector("")
	require.NoError(t, err)
	assert.Equal(t, SelectorAll, selector)

	selector, err = ParseSelector("COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, "completed", selector)

	_, err = ParseSelector("archived")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApplyAndDecorate(t *testing.T) {
	issues := append(scenarioIssues(), models.Issue{ID: 3, Status: "Pending", Priority: 0.6, CreatedAt: day("2024-03-01")})
	out := Apply(issues, Query{Status: "pending", Sort: SortPriority})
	assert.Equal(t, []int64{1, 3}, ids(out))

	out = Apply(issues, Query{})
	assert.Equal(t, []int64{3, 2, 1}, ids(out))

	views := DecorateAll(out)
	require.Len(t, views, 3)
	assert.Equal(t, PriorityMedium, views[0].PriorityTier)
	assert.Equal(t, TierWarning, views[0].Display.ColorTier)
	assert.Equal(t, TierSuccess, views[1].Display.ColorTier)
	assert.Equal(t, PriorityHigh, views[2].PriorityTier)
}

func TestBreakdown(t *testing.T) {
	breakdown := Breakdown(scenarioIssues())
	assert.Equal(t, 2, breakdown.Total)
	assert.Equal(t, map[string]int{"pending": 1, "completed": 1}, breakdown.ByStatus)
	assert.Equal(t, map[string]int{"high": 1, "low": 1}, breakdown.ByPriority)
}
