package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

// ModerationRepository persists the audit trail of admin moderation.
type ModerationRepository struct {
	db *sqlx.DB
}

// NewModerationRepository constructs the repository.
func NewModerationRepository(db *sqlx.DB) *ModerationRepository {
	return &ModerationRepository{db: db}
}

// Create inserts a moderation action, assigning its id and timestamp when empty.
func (r *ModerationRepository) Create(ctx context.Context, action *models.ModerationAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO moderation_actions
	(id, issue_id, action, actor_email, actor_district, reason, previous_status, resulting_status, target_worker_id, created_at)
	VALUES (:id, :issue_id, :action, :actor_email, :actor_district, :reason, :previous_status, :resulting_status, :target_worker_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, action); err != nil {
		return fmt.Errorf("create moderation action: %w", err)
	}
	return nil
}

// ListByIssue returns the actions recorded for an issue, newest first.
func (r *ModerationRepository) ListByIssue(ctx context.Context, issueID int64) ([]models.ModerationAction, error) {
	const query = `SELECT id, issue_id, action, actor_email, actor_district, reason, previous_status, resulting_status, target_worker_id, created_at
	FROM moderation_actions WHERE issue_id = $1 ORDER BY created_at DESC`
	var actions []models.ModerationAction
	if err := r.db.SelectContext(ctx, &actions, query, issueID); err != nil {
		return nil, fmt.Errorf("list moderation actions: %w", err)
	}
	return actions, nil
}
