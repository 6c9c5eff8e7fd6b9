package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

func TestCheckTransition(t *testing.T) {
	allowed := map[IssueAction][]models.IssueStatus{
		ActionAssign:   {models.IssueStatusPending, models.IssueStatusAssigned},
		ActionComplete: {models.IssueStatusAssigned},
		ActionVerify:   {models.IssueStatusCompleted},
		ActionFeedback: {models.IssueStatusCompleted, models.IssueStatusVerified},
		ActionDelete:   {models.IssueStatusPending, models.IssueStatusAssigned},
	}
	for action, sources := range allowed {
		legal := make(map[models.IssueStatus]bool)
		for _, status := range sources {
			legal[status] = true
		}
		for _, status := range models.IssueStatuses {
			err := CheckTransition(action, status)
			if legal[status] {
				assert.NoError(t, err, "%s from %s", action, status)
				continue
			}
			assert.ErrorIs(t, err, appErrors.ErrInvalidTransition, "%s from %s", action, status)
		}
	}
}

func TestCheckTransitionIgnoresCase(t *testing.T) {
	assert.NoError(t, CheckTransition(ActionVerify, "Completed"))
	assert.ErrorIs(t, CheckTransition(IssueAction("archive"), models.IssueStatusPending), appErrors.ErrValidation)
}

func TestResultingStatus(t *testing.T) {
	status, ok := ResultingStatus(ActionComplete)
	assert.True(t, ok)
	assert.Equal(t, models.IssueStatusCompleted, status)

	_, ok = ResultingStatus(ActionDelete)
	assert.False(t, ok)
}
