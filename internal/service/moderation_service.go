package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/civic"
	"github.com/noah-isme/smart-haryana-gateway/internal/dto"
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

type moderationClient interface {
	ReassignIssue(ctx context.Context, token string, id, workerID int64) (models.Issue, error)
	DeleteIssue(ctx context.Context, token string, id int64, reason string) error
	Workers(ctx context.Context, token string) ([]models.WorkerProfile, error)
}

type moderationStore interface {
	Create(ctx context.Context, action *models.ModerationAction) error
	ListByIssue(ctx context.Context, issueID int64) ([]models.ModerationAction, error)
}

type issueTracker interface {
	Current(ctx context.Context, session models.Session, id int64) (models.Issue, error)
	AfterMutation(ctx context.Context, session models.Session)
}

type snapshotRemover interface {
	RemoveIssue(ctx context.Context, issueID int64) error
}

// ReassignRequest moves an issue to another worker.
type ReassignRequest struct {
	WorkerID int64  `json:"worker_id" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"omitempty,min=5,max=500,safetext"`
}

// DeleteIssueRequest removes an issue; a reason is mandatory.
type DeleteIssueRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=500,safetext"`
}

// ModerationService handles admin interventions and keeps an audit trail.
type ModerationService struct {
	client    moderationClient
	audit     moderationStore
	issues    issueTracker
	snapshots snapshotRemover
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModerationService constructs the service.
func NewModerationService(client moderationClient, audit moderationStore, issues issueTracker, snapshots snapshotRemover, validate *validator.Validate, logger *zap.Logger) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{
		client:    client,
		audit:     audit,
		issues:    issues,
		snapshots: snapshots,
		validator: newValidator(validate),
		logger:    logger,
	}
}

// Workers lists workers an issue can be assigned to.
func (s *ModerationService) Workers(ctx context.Context, session models.Session) ([]models.WorkerProfile, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	workers, err := s.client.Workers(ctx, session.AccessToken)
	if err != nil {
		return nil, civic.ToAppError(err)
	}
	return workers, nil
}

// Reassign hands an issue to another worker.
func (s *ModerationService) Reassign(ctx context.Context, session models.Session, id int64, req ReassignRequest) (*dto.ModerationResult, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid reassignment payload")
	}

	current, err := s.issues.Current(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(ActionAssign, current.Status); err != nil {
		return nil, err
	}

	updated, err := s.client.ReassignIssue(ctx, session.AccessToken, id, req.WorkerID)
	if err != nil {
		return nil, civic.ToAppError(err)
	}

	action := s.newAction(session, current, models.ModerationReassign, ActionAssign, req.Reason)
	action.TargetWorkerID = &req.WorkerID
	s.record(ctx, &action)
	s.issues.AfterMutation(ctx, session)

	view := issueview.Decorate(updated)
	return &dto.ModerationResult{Action: action, Issue: &view}, nil
}

// Delete removes an issue with a recorded reason.
func (s *ModerationService) Delete(ctx context.Context, session models.Session, id int64, req DeleteIssueRequest) (*dto.ModerationResult, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "a deletion reason of at least 5 characters is required")
	}

	current, err := s.issues.Current(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(ActionDelete, current.Status); err != nil {
		return nil, err
	}

	if err := s.client.DeleteIssue(ctx, session.AccessToken, id, req.Reason); err != nil {
		return nil, civic.ToAppError(err)
	}

	action := s.newAction(session, current, models.ModerationDelete, ActionDelete, req.Reason)
	s.record(ctx, &action)
	if s.snapshots != nil {
		if err := s.snapshots.RemoveIssue(ctx, id); err != nil {
			s.logger.Warn("failed to drop deleted issue from snapshots", zap.Int64("issue_id", id), zap.Error(err))
		}
	}
	s.issues.AfterMutation(ctx, session)

	return &dto.ModerationResult{Action: action}, nil
}

// History lists the recorded moderation actions of an issue.
func (s *ModerationService) History(ctx context.Context, session models.Session, id int64) ([]models.ModerationAction, error) {
	if err := requireStaff(session); err != nil {
		return nil, err
	}
	actions, err := s.audit.ListByIssue(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load moderation history")
	}
	if actions == nil {
		actions = []models.ModerationAction{}
	}
	return actions, nil
}

func (s *ModerationService) newAction(session models.Session, current models.Issue, kind models.ModerationActionType, transition IssueAction, reason string) models.ModerationAction {
	action := models.ModerationAction{
		IssueID:        current.ID,
		Action:         kind,
		ActorEmail:     session.Profile.Email,
		PreviousStatus: current.Status,
	}
	if status, ok := ResultingStatus(transition); ok {
		action.ResultingStatus = &status
	}
	if session.Profile.District != "" {
		district := session.Profile.District
		action.ActorDistrict = &district
	}
	if reason != "" {
		action.Reason = &reason
	}
	return action
}

// record writes the audit row. The upstream change already happened, so a
// failure here is logged rather than returned.
func (s *ModerationService) record(ctx context.Context, action *models.ModerationAction) {
	if err := s.audit.Create(ctx, action); err != nil {
		s.logger.Error("failed to record moderation action",
			zap.Int64("issue_id", action.IssueID),
			zap.String("action", string(action.Action)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("moderation action recorded",
		zap.String("id", action.ID),
		zap.Int64("issue_id", action.IssueID),
		zap.String("action", string(action.Action)),
		zap.String("actor", action.ActorEmail),
	)
}

func requireStaff(session models.Session) error {
	if !session.Profile.Role.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}
