package civic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// Wire schemas mirror the backend's JSON. They are validated before being
// converted into domain models so malformed data never reaches callers.

type wireUserRef struct {
	ID       *int64 `json:"id" validate:"required"`
	FullName string `json:"full_name"`
}

type wireDepartment struct {
	ID   *int64 `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

type wireWorkerRef struct {
	User       *wireUserRef    `json:"user" validate:"required"`
	Department *wireDepartment `json:"department" validate:"omitempty"`
}

type wireMedia struct {
	ID        *int64 `json:"id" validate:"required"`
	FileURL   string `json:"file_url" validate:"required"`
	MediaType string `json:"media_type" validate:"required,oneof=photo_initial photo_proof audio signature"`
}

type wireFeedback struct {
	ID        *int64  `json:"id" validate:"required"`
	UserID    int64   `json:"user_id"`
	Rating    int     `json:"rating" validate:"min=1,max=5"`
	Comment   string  `json:"comment"`
	Sentiment *string `json:"sentiment"`
}

type wireIssue struct {
	ID          *int64         `json:"id" validate:"required"`
	Title       string         `json:"title" validate:"required"`
	Description *string        `json:"description"`
	Status      string         `json:"status"`
	Priority    *float64       `json:"priority"`
	ProblemType string         `json:"problem_type"`
	District    string         `json:"district"`
	CreatedAt   string         `json:"created_at" validate:"required"`
	UpdatedAt   *string        `json:"updated_at"`
	SubmittedBy *wireUserRef   `json:"submitted_by" validate:"required"`
	AssignedTo  *wireWorkerRef `json:"assigned_to" validate:"omitempty"`
	MediaFiles  []wireMedia    `json:"media_files" validate:"dive"`
	Feedback    []wireFeedback `json:"feedback" validate:"dive"`
}

type wireProfile struct {
	ID       *int64 `json:"id" validate:"required"`
	FullName string `json:"full_name"`
	Email    string `json:"email" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=client worker admin super_admin"`
	District string `json:"district"`
	Pincode  string `json:"pincode"`
	IsActive bool   `json:"is_active"`
}

type wireWorker struct {
	ID             *int64          `json:"id" validate:"required"`
	User           *wireProfile    `json:"user" validate:"required"`
	Department     *wireDepartment `json:"department" validate:"omitempty"`
	DailyTaskCount int             `json:"daily_task_count"`
}

type wireToken struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 and the backend's naive ISO timestamps,
// which are treated as UTC.
func parseTimestamp(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func (w wireUserRef) model() models.UserRef {
	return models.UserRef{ID: *w.ID, FullName: w.FullName}
}

func (w *wireDepartment) model() *models.Department {
	if w == nil {
		return nil
	}
	return &models.Department{ID: *w.ID, Name: w.Name}
}

func (w wireIssue) model() (models.Issue, error) {
	createdAt, err := parseTimestamp(w.CreatedAt)
	if err != nil {
		return models.Issue{}, fmt.Errorf("created_at: %w", err)
	}
	issue := models.Issue{
		ID:          *w.ID,
		Title:       w.Title,
		Status:      models.IssueStatus(strings.TrimSpace(w.Status)),
		ProblemType: w.ProblemType,
		District:    w.District,
		CreatedAt:   createdAt,
		SubmittedBy: w.SubmittedBy.model(),
		MediaFiles:  make([]models.Media, 0, len(w.MediaFiles)),
		Feedback:    make([]models.Feedback, 0, len(w.Feedback)),
	}
	if issue.Status == "" {
		issue.Status = models.IssueStatusPending
	}
	if w.Description != nil {
		issue.Description = *w.Description
	}
	if w.Priority != nil {
		issue.Priority = *w.Priority
	}
	if w.UpdatedAt != nil && strings.TrimSpace(*w.UpdatedAt) != "" {
		updatedAt, err := parseTimestamp(*w.UpdatedAt)
		if err != nil {
			return models.Issue{}, fmt.Errorf("updated_at: %w", err)
		}
		issue.UpdatedAt = &updatedAt
	}
	if w.AssignedTo != nil {
		issue.AssignedTo = &models.WorkerRef{
			User:       w.AssignedTo.User.model(),
			Department: w.AssignedTo.Department.model(),
		}
	}
	for _, media := range w.MediaFiles {
		issue.MediaFiles = append(issue.MediaFiles, models.Media{
			ID:        *media.ID,
			FileURL:   media.FileURL,
			MediaType: models.MediaType(media.MediaType),
		})
	}
	for _, fb := range w.Feedback {
		issue.Feedback = append(issue.Feedback, models.Feedback{
			ID:        *fb.ID,
			UserID:    fb.UserID,
			Rating:    fb.Rating,
			Comment:   fb.Comment,
			Sentiment: fb.Sentiment,
		})
	}
	if err := checkIssueInvariants(issue); err != nil {
		return models.Issue{}, err
	}
	return issue, nil
}

// checkIssueInvariants rejects projections that contradict the lifecycle.
func checkIssueInvariants(issue models.Issue) error {
	status, _ := models.ParseIssueStatus(string(issue.Status))
	if status == models.IssueStatusPending && issue.AssignedTo != nil {
		return fmt.Errorf("pending issue %d carries an assignee", issue.ID)
	}
	if len(issue.Feedback) > 0 && status != models.IssueStatusCompleted && status != models.IssueStatusVerified {
		return fmt.Errorf("issue %d has feedback while %s", issue.ID, issue.Status)
	}
	return nil
}

func (w wireProfile) model() models.UserProfile {
	return models.UserProfile{
		ID:       *w.ID,
		FullName: w.FullName,
		Email:    w.Email,
		Role:     models.UserRole(w.Role),
		District: w.District,
		Pincode:  w.Pincode,
		IsActive: w.IsActive,
	}
}

func (w wireWorker) model() models.WorkerProfile {
	return models.WorkerProfile{
		ID:             *w.ID,
		User:           w.User.model(),
		Department:     w.Department.model(),
		DailyTaskCount: w.DailyTaskCount,
	}
}

// decoder validates wire payloads for one operation.
type decoder struct {
	op       string
	validate *validator.Validate
}

func (d decoder) unmarshal(body []byte, dest interface{}) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return &DeserializationError{Operation: d.op, Err: err}
	}
	return nil
}

func (d decoder) check(value interface{}, position string) error {
	if err := d.validate.Struct(value); err != nil {
		if position != "" {
			return malformed(d.op, "%s: %v", position, err)
		}
		return &DeserializationError{Operation: d.op, Err: err}
	}
	return nil
}

func (d decoder) issue(body []byte) (models.Issue, error) {
	var w wireIssue
	if err := d.unmarshal(body, &w); err != nil {
		return models.Issue{}, err
	}
	return d.convertIssue(w, "")
}

func (d decoder) issues(body []byte) ([]models.Issue, error) {
	var ws []wireIssue
	if err := d.unmarshal(body, &ws); err != nil {
		return nil, err
	}
	out := make([]models.Issue, 0, len(ws))
	for i, w := range ws {
		issue, err := d.convertIssue(w, fmt.Sprintf("issue[%d]", i))
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	return out, nil
}

func (d decoder) convertIssue(w wireIssue, position string) (models.Issue, error) {
	if err := d.check(w, position); err != nil {
		return models.Issue{}, err
	}
	issue, err := w.model()
	if err != nil {
		if position != "" {
			return models.Issue{}, malformed(d.op, "%s: %v", position, err)
		}
		return models.Issue{}, &DeserializationError{Operation: d.op, Err: err}
	}
	return issue, nil
}

func (d decoder) feedback(body []byte) (models.Feedback, error) {
	var w wireFeedback
	if err := d.unmarshal(body, &w); err != nil {
		return models.Feedback{}, err
	}
	if err := d.check(w, ""); err != nil {
		return models.Feedback{}, err
	}
	return models.Feedback{ID: *w.ID, UserID: w.UserID, Rating: w.Rating, Comment: w.Comment, Sentiment: w.Sentiment}, nil
}

func (d decoder) profile(body []byte) (models.UserProfile, error) {
	var w wireProfile
	if err := d.unmarshal(body, &w); err != nil {
		return models.UserProfile{}, err
	}
	if err := d.check(w, ""); err != nil {
		return models.UserProfile{}, err
	}
	return w.model(), nil
}

func (d decoder) workers(body []byte) ([]models.WorkerProfile, error) {
	var ws []wireWorker
	if err := d.unmarshal(body, &ws); err != nil {
		return nil, err
	}
	out := make([]models.WorkerProfile, 0, len(ws))
	for i, w := range ws {
		if err := d.check(w, fmt.Sprintf("worker[%d]", i)); err != nil {
			return nil, err
		}
		out = append(out, w.model())
	}
	return out, nil
}

func (d decoder) token(body []byte) (wireToken, error) {
	var w wireToken
	if err := d.unmarshal(body, &w); err != nil {
		return wireToken{}, err
	}
	if err := d.check(w, ""); err != nil {
		return wireToken{}, err
	}
	if w.TokenType == "" {
		w.TokenType = "bearer"
	}
	return w, nil
}

// stats decodes the backend's statistics payloads, which carry no nested schema.
func (d decoder) stats(body []byte, dest interface{}) error {
	return d.unmarshal(body, dest)
}
