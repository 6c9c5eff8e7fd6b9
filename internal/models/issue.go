package models

import (
	"strings"
	"time"
)

// IssueStatus is the lifecycle token reported by the civic backend.
type IssueStatus string

const (
	IssueStatusPending   IssueStatus = "pending"
	IssueStatusAssigned  IssueStatus = "assigned"
	IssueStatusCompleted IssueStatus = "completed"
	IssueStatusVerified  IssueStatus = "verified"
	// IssueStatusRejected is only ever displayed; no transition produces it.
	IssueStatusRejected IssueStatus = "rejected"
)

// IssueStatuses lists every status token the gateway recognises, in workflow order.
var IssueStatuses = []IssueStatus{
	IssueStatusPending,
	IssueStatusAssigned,
	IssueStatusCompleted,
	IssueStatusVerified,
	IssueStatusRejected,
}

// ParseIssueStatus normalises raw input and reports whether it is a known token.
func ParseIssueStatus(raw string) (IssueStatus, bool) {
	normalized := IssueStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, status := range IssueStatuses {
		if status == normalized {
			return status, true
		}
	}
	return normalized, false
}

// MediaType classifies an attachment.
type MediaType string

const (
	MediaPhotoInitial MediaType = "photo_initial"
	MediaPhotoProof   MediaType = "photo_proof"
	MediaAudio        MediaType = "audio"
	MediaSignature    MediaType = "signature"
)

// Issue is the read-only projection of a citizen-reported problem.
type Issue struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      IssueStatus `json:"status"`
	Priority    float64     `json:"priority"`
	ProblemType string      `json:"problem_type"`
	District    string      `json:"district"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
	SubmittedBy UserRef     `json:"submitted_by"`
	AssignedTo  *WorkerRef  `json:"assigned_to,omitempty"`
	MediaFiles  []Media     `json:"media_files"`
	Feedback    []Feedback  `json:"feedback"`
}

// UserRef is the narrow projection of the reporting citizen.
type UserRef struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

// WorkerRef references the worker an issue is assigned to.
type WorkerRef struct {
	User       UserRef     `json:"user"`
	Department *Department `json:"department,omitempty"`
}

// Department groups workers by civic function.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Media is an attachment on an issue.
type Media struct {
	ID        int64     `json:"id"`
	FileURL   string    `json:"file_url"`
	MediaType MediaType `json:"media_type"`
}

// Feedback is a citizen's rating of a resolved issue.
type Feedback struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Rating    int     `json:"rating"`
	Comment   string  `json:"comment"`
	Sentiment *string `json:"sentiment,omitempty"`
}

// NewIssueInput carries a citizen's report before it is sent upstream.
type NewIssueInput struct {
	Title       string
	Description string
	ProblemType string
	District    string
	Latitude    float64
	Longitude   float64
	Photo       Upload
}

// FeedbackInput carries a citizen's rating of a resolved issue.
type FeedbackInput struct {
	Rating  int
	Comment string
}

// CompletionInput carries a worker's proof of completion.
type CompletionInput struct {
	Latitude  float64
	Longitude float64
	Proof     Upload
}

// Upload is an in-memory file forwarded to the backend.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
