package service

import (
	"fmt"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

// IssueAction is a mutation the gateway forwards to the backend.
type IssueAction string

const (
	ActionAssign   IssueAction = "assign"
	ActionComplete IssueAction = "complete"
	ActionVerify   IssueAction = "verify"
	ActionFeedback IssueAction = "feedback"
	ActionDelete   IssueAction = "delete"
)

// legalSources lists the statuses each action may start from.
var legalSources = map[IssueAction]map[models.IssueStatus]bool{
	ActionAssign: {
		models.IssueStatusPending:  true,
		models.IssueStatusAssigned: true,
	},
	ActionComplete: {
		models.IssueStatusAssigned: true,
	},
	ActionVerify: {
		models.IssueStatusCompleted: true,
	},
	ActionFeedback: {
		models.IssueStatusCompleted: true,
		models.IssueStatusVerified:  true,
	},
	ActionDelete: {
		models.IssueStatusPending:  true,
		models.IssueStatusAssigned: true,
	},
}

var resultingStatus = map[IssueAction]models.IssueStatus{
	ActionAssign:   models.IssueStatusAssigned,
	ActionComplete: models.IssueStatusCompleted,
	ActionVerify:   models.IssueStatusVerified,
}

// CheckTransition rejects action when the issue's current status does not allow it.
func CheckTransition(action IssueAction, current models.IssueStatus) error {
	status, _ := models.ParseIssueStatus(string(current))
	sources, ok := legalSources[action]
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", action))
	}
	if !sources[status] {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot %s an issue that is %s", action, current))
	}
	return nil
}

// ResultingStatus reports the status an action moves an issue to; false when
// the action leaves the status unchanged or removes the issue.
func ResultingStatus(action IssueAction) (models.IssueStatus, bool) {
	status, ok := resultingStatus[action]
	return status, ok
}
