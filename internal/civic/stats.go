package civic

import (
	"context"
	"net/http"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// ClientDistrictStats returns the summary for the citizen's district.
func (c *Client) ClientDistrictStats(ctx context.Context, token string) (models.ClientDistrictStats, error) {
	const op = "client_district_stats"
	var stats models.ClientDistrictStats
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/users/dashboard/my-district/details", token: token})
	if err != nil {
		return stats, err
	}
	err = decoder{op: op, validate: c.validate}.stats(body, &stats)
	return stats, err
}

// AdminStats returns the backend's analytics summary.
func (c *Client) AdminStats(ctx context.Context, token string) (models.AdminStats, error) {
	const op = "admin_stats"
	var stats models.AdminStats
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/admin/analytics/stats", token: token})
	if err != nil {
		return stats, err
	}
	err = decoder{op: op, validate: c.validate}.stats(body, &stats)
	return stats, err
}

// WorkerStats returns the calling worker's throughput summary.
func (c *Client) WorkerStats(ctx context.Context, token string) (models.WorkerSelfStats, error) {
	const op = "worker_stats"
	var stats models.WorkerSelfStats
	body, err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/worker/me/stats", token: token})
	if err != nil {
		return stats, err
	}
	err = decoder{op: op, validate: c.validate}.stats(body, &stats)
	return stats, err
}
