package dto

import (
	"time"

	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// IssueList is one page of the caller's issue view.
type IssueList struct {
	Items      []issueview.View   `json:"items"`
	Pagination *models.Pagination `json:"-"`
	Status     string             `json:"status"`
	Sort       issueview.SortKey  `json:"sort"`
	// Stale is set when the list was served from the last snapshot because
	// the civic backend could not be reached.
	Stale     bool       `json:"-"`
	FetchedAt *time.Time `json:"-"`
	CacheHit  bool       `json:"-"`
}

// ModerationResult reports the outcome of an admin action.
type ModerationResult struct {
	Action models.ModerationAction `json:"action"`
	Issue  *issueview.View         `json:"issue,omitempty"`
}

// ExportResponse describes a rendered export and its signed download link.
type ExportResponse struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	Stale     bool      `json:"stale"`
	ExpiresAt time.Time `json:"expires_at"`
}
