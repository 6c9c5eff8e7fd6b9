package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-haryana-gateway/internal/dto"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	"github.com/noah-isme/smart-haryana-gateway/internal/service"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
	"github.com/noah-isme/smart-haryana-gateway/pkg/response"
)

type moderationService interface {
	Workers(ctx context.Context, session models.Session) ([]models.WorkerProfile, error)
	Reassign(ctx context.Context, session models.Session, id int64, req service.ReassignRequest) (*dto.ModerationResult, error)
	Delete(ctx context.Context, session models.Session, id int64, req service.DeleteIssueRequest) (*dto.ModerationResult, error)
	History(ctx context.Context, session models.Session, id int64) ([]models.ModerationAction, error)
}

// AdminHandler exposes moderation endpoints.
type AdminHandler struct {
	service moderationService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(svc moderationService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Workers godoc
// @Summary List workers
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/workers [get]
func (h *AdminHandler) Workers(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	workers, err := h.service.Workers(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workers, nil)
}

// Reassign godoc
// @Summary Reassign an issue
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Param payload body service.ReassignRequest true "Target worker"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/issues/{id}/assign [put]
func (h *AdminHandler) Reassign(c *gin.Context) {
	session, id, ok := issueTarget(c)
	if !ok {
		return
	}
	var req service.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reassignment payload"))
		return
	}
	result, err := h.service.Reassign(c.Request.Context(), session, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete an issue
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Param payload body service.DeleteIssueRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/issues/{id} [delete]
func (h *AdminHandler) Delete(c *gin.Context) {
	session, id, ok := issueTarget(c)
	if !ok {
		return
	}
	var req service.DeleteIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a deletion reason is required"))
		return
	}
	result, err := h.service.Delete(c.Request.Context(), session, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary Moderation history of an issue
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Success 200 {object} response.Envelope
// @Router /admin/issues/{id}/moderation [get]
func (h *AdminHandler) History(c *gin.Context) {
	session, id, ok := issueTarget(c)
	if !ok {
		return
	}
	actions, err := h.service.History(c.Request.Context(), session, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, actions, nil)
}
