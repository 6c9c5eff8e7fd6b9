package civic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// WorkerTasks lists the issues assigned to the calling worker.
func (c *Client) WorkerTasks(ctx context.Context, token string) ([]models.Issue, error) {
	return c.listIssues(ctx, "worker_tasks", "/worker/tasks", token)
}

// CompleteTask submits proof of completion. The backend checks the
// coordinates against the issue location.
func (c *Client) CompleteTask(ctx context.Context, token string, id int64, input models.CompletionInput) (models.Issue, error) {
	const op = "complete_task"
	payload, contentType, err := multipartBody([]formField{
		floatField("latitude", input.Latitude),
		floatField("longitude", input.Longitude),
	}, "proof_file", input.Proof)
	if err != nil {
		return models.Issue{}, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        fmt.Sprintf("/worker/tasks/%d/complete", id),
		token:       token,
		body:        payload,
		contentType: contentType,
	})
	if err != nil {
		return models.Issue{}, err
	}
	return decoder{op: op, validate: c.validate}.issue(body)
}
