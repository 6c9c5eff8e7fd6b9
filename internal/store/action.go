package store

import (
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// Action describes one state change.
type Action interface {
	isAction()
}

type (
	// SessionStarted records a successful login.
	SessionStarted struct{ Session models.Session }
	// SessionEnded forgets the session and every issue loaded under it.
	SessionEnded struct{}
	// LanguageChanged switches the interface language. Unsupported codes are ignored.
	LanguageChanged struct{ Language string }
	// FetchStarted marks an issue fetch in flight.
	FetchStarted struct{}
	// IssuesLoaded replaces the loaded issues.
	IssuesLoaded struct{ Issues []models.Issue }
	// FetchFailed records a failed fetch and keeps the issues already loaded.
	FetchFailed struct{ Err error }
	// IssueUpdated replaces a single issue after a mutation.
	IssueUpdated struct{ Issue models.Issue }
	// QueryChanged changes the selector and sort key. Empty fields keep the current value.
	QueryChanged struct{ Query issueview.Query }
)

func (SessionStarted) isAction() {}
func (SessionEnded) isAction() {}
func (LanguageChanged) isAction() {}
func (FetchStarted) isAction() {}
func (IssuesLoaded) isAction() {}
func (FetchFailed) isAction() {}
func (IssueUpdated) isAction() {}
func (QueryChanged) isAction() {}

// Reduce returns the state produced by applying action to state.
func Reduce(state State, action Action) State {
	next := state
	switch a := action.(type) {
	case SessionStarted:
		session := a.Session
		next.Session = &session
		next.Issues = nil
		next.Err = nil
	case SessionEnded:
		next.Session = nil
		next.Issues = nil
		next.Loading = false
		next.Err = nil
	case LanguageChanged:
		if !SupportedLanguage(a.Language) {
			return state
		}
		next.Language = a.Language
	case FetchStarted:
		next.Loading = true
		next.Err = nil
	case IssuesLoaded:
		next.Issues = append([]models.Issue(nil), a.Issues...)
		next.Loading = false
		next.Err = nil
	case FetchFailed:
		next.Loading = false
		next.Err = a.Err
	case IssueUpdated:
		next.Issues = replaceIssue(state.Issues, a.Issue)
	case QueryChanged:
		if a.Query.Status != "" {
			next.Query.Status = a.Query.Status
		}
		if a.Query.Sort != "" {
			next.Query.Sort = a.Query.Sort
		}
	default:
		return state
	}
	next.Version = state.Version + 1
	return next
}

func replaceIssue(issues []models.Issue, updated models.Issue) []models.Issue {
	out := make([]models.Issue, 0, len(issues)+1)
	found := false
	for _, issue := range issues {
		if issue.ID == updated.ID {
			out = append(out, updated)
			found = true
			continue
		}
		out = append(out, issue)
	}
	if !found {
		out = append(out, updated)
	}
	return out
}
