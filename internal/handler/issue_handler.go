package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-haryana-gateway/internal/dto"
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/middleware"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	"github.com/noah-isme/smart-haryana-gateway/internal/service"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
	"github.com/noah-isme/smart-haryana-gateway/pkg/response"
)

type issueService interface {
	List(ctx context.Context, session models.Session, query service.IssueListQuery) (*dto.IssueList, error)
	Get(ctx context.Context, session models.Session, id int64) (*issueview.View, error)
	Create(ctx context.Context, session models.Session, req service.CreateIssueRequest) (*issueview.View, error)
	Feedback(ctx context.Context, session models.Session, id int64, req service.FeedbackRequest) (*models.Feedback, error)
	Verify(ctx context.Context, session models.Session, id int64) (*issueview.View, error)
	Complete(ctx context.Context, session models.Session, id int64, req service.CompleteTaskRequest) (*issueview.View, error)
}

// IssueHandler exposes issue listing and citizen/worker actions.
type IssueHandler struct {
	service issueService
}

// NewIssueHandler constructs the handler.
func NewIssueHandler(svc issueService) *IssueHandler {
	return &IssueHandler{service: svc}
}

// List godoc
// @Summary List issues
// @Description Role-scoped issue list. Citizens see their reports, workers their tasks, admins every issue.
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status selector: all, pending, assigned, completed, verified, rejected"
// @Param sort query string false "Sort key: newest, oldest, priority, status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /issues [get]
func (h *IssueHandler) List(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query service.IssueListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	list, err := h.service.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, list.CacheHit)
	middleware.SetStale(c, list.Stale, list.FetchedAt)
	meta := middleware.ExtractMeta(c)
	meta["status"] = list.Status
	meta["sort"] = list.Sort
	response.JSON(c, http.StatusOK, list.Items, list.Pagination, meta)
}

// Get godoc
// @Summary Get issue
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /issues/{id} [get]
func (h *IssueHandler) Get(c *gin.Context) {
	session, id, ok := issueTarget(c)
	if !ok {
		return
	}
	view, err := h.service.Get(c.Request.Context(), session, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Create godoc
// @Summary Report an issue
// @Tags Issues
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param problem_type formData string true "Problem type"
// @Param district formData string true "District"
// @Param latitude formData number true "Latitude"
// @Param longitude formData number true "Longitude"
// @Param file formData file true "Photo"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /issues [post]
func (h *IssueHandler) Create(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limitBody(c)
	lat, lon, err := coordinatesForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	photo, err := uploadForm(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.service.Create(c.Request.Context(), session, service.CreateIssueRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		ProblemType: c.PostForm("problem_type"),
		District:    c.PostForm("district"),
		Latitude:    lat,
		Longitude:   lon,
		Photo:       photo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Feedback godoc
// @Summary Rate a resolved issue
// @Tags Issues
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Param payload body service.FeedbackRequest true "Feedback"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /issues/{id}/feedback [post]
func (h *IssueHandler) Feedback(c *gin.Context) {
	session, id, ok := issueTarget(c)
	if !ok {
		return
	}
	var req service.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}
	feedback, err := h.service.Feedback(c.Request.Context(), session, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// Verify godoc
// @Summary Verify a completed issue
// @Tags Issues
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /issues/{id}/verify [post]
func (h *IssueHandler) Verify(c *gin.Context) {
	session, id, ok := issueTarget(c)
	if !ok {
		return
	}
	view, err := h.service.Verify(c.Request.Context(), session, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Complete godoc
// @Summary Complete an assigned task
// @Tags Worker
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Issue ID"
// @Param latitude formData number true "Latitude"
// @Param longitude formData number true "Longitude"
// @Param proof_file formData file true "Proof photo"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /worker/tasks/{id}/complete [post]
func (h *IssueHandler) Complete(c *gin.Context) {
	session, id, ok := issueTarget(c)
	if !ok {
		return
	}
	limitBody(c)
	lat, lon, err := coordinatesForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	proof, err := uploadForm(c, "proof_file")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Complete(c.Request.Context(), session, id, service.CompleteTaskRequest{Latitude: lat, Longitude: lon, Proof: proof})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
