// Package store holds the terminal client's application state. A single
// goroutine owns the State; callers change it only by dispatching actions.
package store

import (
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// DefaultLanguage is used until the caller picks one.
const DefaultLanguage = "en"

// Languages lists the supported interface languages.
var Languages = []string{"en", "hi"}

// State is an immutable snapshot. Reduce always returns a fresh value and
// never writes through the slices or pointers of its input.
type State struct {
	Session  *models.Session
	Language string
	Issues   []models.Issue
	Query    issueview.Query
	Loading  bool
	Err      error
	Version  uint64
}

// Initial returns the state of a fresh client.
func Initial() State {
	return State{
		Language: DefaultLanguage,
		Query:    issueview.Query{Status: issueview.SelectorAll, Sort: issueview.DefaultSort},
	}
}

// SignedIn reports whether a session is present.
func (s State) SignedIn() bool {
	return s.Session != nil && s.Session.AccessToken != ""
}

// Visible applies the current selector and sort to the loaded issues.
func (s State) Visible() []issueview.View {
	return issueview.DecorateAll(issueview.Apply(s.Issues, s.Query))
}

// SupportedLanguage reports whether code is one of Languages.
func SupportedLanguage(code string) bool {
	for _, lang := range Languages {
		if lang == code {
			return true
		}
	}
	return false
}
