package issueview

import "github.com/noah-isme/smart-haryana-gateway/internal/models"

// Query combines a status selector with a sort key.
type Query struct {
	Status string  `json:"status"`
	Sort   SortKey `json:"sort"`
}

// View is an issue decorated with its display classification.
type View struct {
	models.Issue
	Display      StatusDisplay `json:"display"`
	PriorityTier PriorityTier  `json:"priority_tier"`
}

// Apply filters then sorts issues. Empty fields fall back to SelectorAll and DefaultSort.
func Apply(issues []models.Issue, q Query) []models.Issue {
	selector := q.Status
	if selector == "" {
		selector = SelectorAll
	}
	key := q.Sort
	if key == "" {
		key = DefaultSort
	}
	return Sort(Filter(issues, selector), key)
}

// Decorate attaches the status display and priority tier to issue.
func Decorate(issue models.Issue) View {
	return View{
		Issue:        issue,
		Display:      ClassifyStatus(string(issue.Status)),
		PriorityTier: ClassifyPriority(issue.Priority),
	}
}

// DecorateAll decorates every issue, preserving order.
func DecorateAll(issues []models.Issue) []View {
	out := make([]View, 0, len(issues))
	for _, issue := range issues {
		out = append(out, Decorate(issue))
	}
	return out
}

// Breakdown counts issues by status and priority tier.
func Breakdown(issues []models.Issue) models.IssueBreakdown {
	breakdown := models.IssueBreakdown{
		Total:      len(issues),
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}
	for _, issue := range issues {
		breakdown.ByStatus[string(issue.Status)]++
		breakdown.ByPriority[string(ClassifyPriority(issue.Priority))]++
	}
	return breakdown
}
