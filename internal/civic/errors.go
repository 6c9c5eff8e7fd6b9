package civic

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

// ErrUnavailable marks transport-level failures reaching the backend.
var ErrUnavailable = errors.New("civic backend unreachable")

// ErrResponseTooLarge marks a backend response body over the client's limit.
var ErrResponseTooLarge = errors.New("civic backend response too large")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Operation string
	Status    int
	Detail    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Operation, e.Status, e.Detail)
}

// DeserializationError reports a payload that does not match the expected schema.
type DeserializationError struct {
	Operation string
	Err       error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %v", e.Operation, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

func malformed(operation string, format string, args ...interface{}) *DeserializationError {
	return &DeserializationError{Operation: operation, Err: fmt.Errorf(format, args...)}
}

// ToAppError maps client errors onto the gateway error taxonomy.
func ToAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail := apiErr.Detail
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return appErrors.Clone(appErrors.ErrUnauthorized, detail)
		case apiErr.Status == http.StatusForbidden:
			return appErrors.Clone(appErrors.ErrForbidden, detail)
		case apiErr.Status == http.StatusNotFound:
			return appErrors.Clone(appErrors.ErrNotFound, detail)
		case apiErr.Status == http.StatusConflict:
			return appErrors.Clone(appErrors.ErrConflict, detail)
		case apiErr.Status == http.StatusTooManyRequests:
			return appErrors.Clone(appErrors.ErrRateLimited, detail)
		case apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
			return appErrors.Clone(appErrors.ErrValidation, detail)
		default:
			return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
		}
	}

	var decodeErr *DeserializationError
	if errors.As(err, &decodeErr) {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "civic backend returned a malformed payload")
	}

	if errors.Is(err, ErrResponseTooLarge) {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "civic backend response too large")
	}

	if errors.Is(err, ErrUnavailable) {
		return appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}

	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
}

// parseDetail extracts the backend's {"detail": ...} message.
func parseDetail(body []byte, status int) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			return text
		}
		var items []struct {
			Loc []interface{} `json:"loc"`
			Msg string        `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if len(item.Loc) > 0 {
					msgs = append(msgs, fmt.Sprintf("%v: %s", item.Loc[len(item.Loc)-1], item.Msg))
					continue
				}
				msgs = append(msgs, item.Msg)
			}
			return strings.Join(msgs, "; ")
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return text
}
