package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

// maxUploadBytes caps photo and proof uploads.
const maxUploadBytes = 10 << 20

var unsafeTextPatterns = []string{"<script", "javascript:", "onerror=", "onclick="}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// newValidator returns validate with the gateway's custom tags registered.
func newValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("safetext", func(fl validator.FieldLevel) bool {
		return isSafeText(fl.Field().String())
	})
	_ = validate.RegisterValidation("district", func(fl validator.FieldLevel) bool {
		return models.IsValidDistrict(fl.Field().String())
	})
	return validate
}

func isSafeText(value string) bool {
	lower := strings.ToLower(value)
	for _, pattern := range unsafeTextPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		message = fmt.Sprintf("%s: %s", message, strings.Join(parts, ", "))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// checkImage validates an uploaded photo.
func checkImage(upload models.Upload, field string) error {
	if len(upload.Data) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", field))
	}
	if len(upload.Data) > maxUploadBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds %d MB", field, maxUploadBytes>>20))
	}
	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(upload.Data)
	}
	if !allowedImageTypes[strings.ToLower(strings.Split(contentType, ";")[0])] {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a JPEG, PNG or WebP image", field))
	}
	return nil
}
