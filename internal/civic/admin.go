package civic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// AllIssues lists every issue visible to an administrator.
func (c *Client) AllIssues(ctx context.Context, token string) ([]models.Issue, error) {
	return c.listIssues(ctx, "all_issues", "/admin/problems", token)
}

// ReassignIssue hands an issue to another worker.
func (c *Client) ReassignIssue(ctx context.Context, token string, id, workerID int64) (models.Issue, error) {
	const op = "reassign_issue"
	payload, err := json.Marshal(map[string]int64{"worker_id": workerID})
	if err != nil {
		return models.Issue{}, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.do(ctx, call{
		op:          op,
		method:      http.MethodPut,
		path:        fmt.Sprintf("/admin/problems/%d/assign", id),
		token:       token,
		body:        payload,
		contentType: "application/json",
	})
	if err != nil {
		return models.Issue{}, err
	}
	return decoder{op: op, validate: c.validate}.issue(body)
}

// DeleteIssue removes an issue, recording the moderator's reason upstream.
func (c *Client) DeleteIssue(ctx context.Context, token string, id int64, reason string) error {
	const op = "delete_issue"
	payload, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = c.do(ctx, call{
		op:          op,
		method:      http.MethodDelete,
		path:        fmt.Sprintf("/admin/problems/%d", id),
		token:       token,
		body:        payload,
		contentType: "application/json",
	})
	return err
}

// Workers lists workers eligible for assignment.
func (c *Client) Workers(ctx context.Context, token string) ([]models.WorkerProfile, error) {
	const op = "workers"
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/admin/workers", token: token})
	if err != nil {
		return nil, err
	}
	return decoder{op: op, validate: c.validate}.workers(body)
}
