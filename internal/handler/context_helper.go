package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-haryana-gateway/internal/middleware"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
	"github.com/noah-isme/smart-haryana-gateway/pkg/response"
)

// maxFormBytes bounds a multipart body: one photo plus its fields.
const maxFormBytes = 11 << 20

func sessionFromContext(c *gin.Context) (models.Session, error) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return models.Session{}, appErrors.ErrUnauthorized
	}
	return *session, nil
}

func issueTarget(c *gin.Context) (models.Session, int64, bool) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return models.Session{}, 0, false
	}
	id, err := issueIDParam(c)
	if err != nil {
		response.Error(c, err)
		return models.Session{}, 0, false
	}
	return session, id, true
}

func issueIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "issue id must be a positive integer")
	}
	return id, nil
}

func floatForm(c *gin.Context, field string) (float64, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", field))
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a number", field))
	}
	return value, nil
}

func coordinatesForm(c *gin.Context) (float64, float64, error) {
	lat, err := floatForm(c, "latitude")
	if err != nil {
		return 0, 0, err
	}
	lon, err := floatForm(c, "longitude")
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func uploadForm(c *gin.Context, field string) (models.Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return models.Upload{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", field))
	}
	file, err := header.Open()
	if err != nil {
		return models.Upload{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("cannot read %s", field))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFormBytes))
	if err != nil {
		return models.Upload{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("cannot read %s", field))
	}
	return models.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// limitBody caps the request body before multipart parsing.
func limitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFormBytes)
	}
}
