package issueview

import (
	"fmt"
	"strings"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

// SelectorAll matches every issue.
const SelectorAll = "all"

// Filter returns the issues whose status equals selector, ignoring case,
// in their original order. SelectorAll returns every issue.
func Filter(issues []models.Issue, selector string) []models.Issue {
	if strings.EqualFold(selector, SelectorAll) {
		return clone(issues)
	}
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if strings.EqualFold(string(issue.Status), selector) {
			out = append(out, issue)
		}
	}
	return out
}

// ParseSelector validates a status selector from user input. Empty input
// selects all issues.
func ParseSelector(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, SelectorAll) {
		return SelectorAll, nil
	}
	status, ok := models.ParseIssueStatus(trimmed)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported status filter %q", raw))
	}
	return string(status), nil
}

func clone(issues []models.Issue) []models.Issue {
	out := make([]models.Issue, len(issues))
	copy(out, issues)
	return out
}
