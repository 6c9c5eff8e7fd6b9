package models

import (
	"encoding/json"
	"time"
)

// IssueSnapshot is the last known projection of an issue for a listing scope.
type IssueSnapshot struct {
	Scope       string          `db:"scope"`
	IssueID     int64           `db:"issue_id"`
	Title       string          `db:"title"`
	Status      string          `db:"status"`
	Priority    float64         `db:"priority"`
	ProblemType string          `db:"problem_type"`
	District    string          `db:"district"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   *time.Time      `db:"updated_at"`
	Payload     json.RawMessage `db:"payload"`
	FetchedAt   time.Time       `db:"fetched_at"`
}

// NewIssueSnapshot denormalises issue into a snapshot row for scope.
func NewIssueSnapshot(scope string, issue Issue, fetchedAt time.Time) (IssueSnapshot, error) {
	payload, err := json.Marshal(issue)
	if err != nil {
		return IssueSnapshot{}, err
	}
	return IssueSnapshot{
		Scope:       scope,
		IssueID:     issue.ID,
		Title:       issue.Title,
		Status:      string(issue.Status),
		Priority:    issue.Priority,
		ProblemType: issue.ProblemType,
		District:    issue.District,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		Payload:     payload,
		FetchedAt:   fetchedAt,
	}, nil
}

// Issue decodes the stored payload.
func (s IssueSnapshot) Issue() (Issue, error) {
	var issue Issue
	if err := json.Unmarshal(s.Payload, &issue); err != nil {
		return Issue{}, err
	}
	return issue, nil
}
