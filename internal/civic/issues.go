package civic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// MyIssues lists the issues reported by the token's owner.
func (c *Client) MyIssues(ctx context.Context, token string) ([]models.Issue, error) {
	return c.listIssues(ctx, "my_issues", "/users/issues", token)
}

// Issue fetches one issue visible to the caller.
func (c *Client) Issue(ctx context.Context, token string, id int64) (models.Issue, error) {
	const op = "issue"
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: fmt.Sprintf("/users/issues/%d", id), token: token})
	if err != nil {
		return models.Issue{}, err
	}
	return decoder{op: op, validate: c.validate}.issue(body)
}

// CreateIssue submits a new report together with its initial photo.
func (c *Client) CreateIssue(ctx context.Context, token string, input models.NewIssueInput) (models.Issue, error) {
	const op = "create_issue"
	payload, contentType, err := multipartBody([]formField{
		{name: "title", value: input.Title},
		{name: "description", value: input.Description},
		{name: "problem_type", value: input.ProblemType},
		{name: "district", value: input.District},
		floatField("latitude", input.Latitude),
		floatField("longitude", input.Longitude),
	}, "file", input.Photo)
	if err != nil {
		return models.Issue{}, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodPost, path: "/users/issues", token: token, body: payload, contentType: contentType})
	if err != nil {
		return models.Issue{}, err
	}
	return decoder{op: op, validate: c.validate}.issue(body)
}

// SubmitFeedback rates a resolved issue.
func (c *Client) SubmitFeedback(ctx context.Context, token string, id int64, input models.FeedbackInput) (models.Feedback, error) {
	const op = "submit_feedback"
	payload, err := json.Marshal(map[string]interface{}{"rating": input.Rating, "comment": input.Comment})
	if err != nil {
		return models.Feedback{}, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        fmt.Sprintf("/users/issues/%d/feedback", id),
		token:       token,
		body:        payload,
		contentType: "application/json",
	})
	if err != nil {
		return models.Feedback{}, err
	}
	return decoder{op: op, validate: c.validate}.feedback(body)
}

// VerifyCompletion confirms a completed issue was resolved.
func (c *Client) VerifyCompletion(ctx context.Context, token string, id int64) (models.Issue, error) {
	const op = "verify_completion"
	body, err := c.do(ctx, call{op: op, method: http.MethodPost, path: fmt.Sprintf("/users/issues/%d/verify", id), token: token})
	if err != nil {
		return models.Issue{}, err
	}
	return decoder{op: op, validate: c.validate}.issue(body)
}

func (c *Client) listIssues(ctx context.Context, op, path, token string) ([]models.Issue, error) {
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: path, token: token})
	if err != nil {
		return nil, err
	}
	return decoder{op: op, validate: c.validate}.issues(body)
}
