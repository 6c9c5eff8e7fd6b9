package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-haryana-gateway/internal/middleware"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	"github.com/noah-isme/smart-haryana-gateway/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, session models.Session) (*models.Dashboard, bool, error)
}

// DashboardHandler exposes the role-scoped dashboard.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Get godoc
// @Summary Dashboard
// @Description Upstream statistics for the caller's role plus a status and priority breakdown of their issues
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	dashboard, hit, err := h.service.Dashboard(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.ExtractMeta(c))
}
