package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrInvalidTransition, "cannot verify a pending issue")
	assert.Equal(t, "cannot verify a pending issue", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrInvalidTransition))
	assert.False(t, errors.Is(cloned, ErrConflict))
	assert.Equal(t, "issue status does not allow this action", ErrInvalidTransition.Message)
}

func TestWrapUnwraps(t *testing.T) {
	inner := fmt.Errorf("dial tcp: refused")
	err := Wrap(inner, ErrUpstreamUnavailable.Code, ErrUpstreamUnavailable.Status, "civic backend unavailable")
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "dial tcp")
}
