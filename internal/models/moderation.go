package models

import "time"

// ModerationActionType enumerates admin moderation actions.
type ModerationActionType string

const (
	ModerationReassign ModerationActionType = "reassign"
	ModerationDelete   ModerationActionType = "delete"
)

// ModerationAction is an audit record of an admin intervention on an issue.
type ModerationAction struct {
	ID              string               `db:"id" json:"id"`
	IssueID         int64                `db:"issue_id" json:"issue_id"`
	Action          ModerationActionType `db:"action" json:"action"`
	ActorEmail      string               `db:"actor_email" json:"actor_email"`
	ActorDistrict   *string              `db:"actor_district" json:"actor_district,omitempty"`
	Reason          *string              `db:"reason" json:"reason,omitempty"`
	PreviousStatus  IssueStatus          `db:"previous_status" json:"previous_status"`
	ResultingStatus *IssueStatus         `db:"resulting_status" json:"resulting_status,omitempty"`
	TargetWorkerID  *int64               `db:"target_worker_id" json:"target_worker_id,omitempty"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
}
