package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

const snapshotColumns = `scope, issue_id, title, status, priority, problem_type, district, created_at, updated_at, payload, fetched_at`

// SnapshotRepository keeps the last fetched issue projection per listing scope.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ReplaceScope makes snapshots the complete content of scope.
func (r *SnapshotRepository) ReplaceScope(ctx context.Context, scope string, snapshots []models.IssueSnapshot) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ids := make([]int64, 0, len(snapshots))
	for _, snapshot := range snapshots {
		ids = append(ids, snapshot.IssueID)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM issue_snapshots WHERE scope = $1 AND NOT (issue_id = ANY($2))`, scope, pq.Array(ids)); err != nil {
		return fmt.Errorf("prune snapshots for %s: %w", scope, err)
	}

	const upsert = `INSERT INTO issue_snapshots (` + snapshotColumns + `)
	VALUES (:scope, :issue_id, :title, :status, :priority, :problem_type, :district, :created_at, :updated_at, :payload, :fetched_at)
	ON CONFLICT (scope, issue_id) DO UPDATE SET
		title = EXCLUDED.title,
		status = EXCLUDED.status,
		priority = EXCLUDED.priority,
		problem_type = EXCLUDED.problem_type,
		district = EXCLUDED.district,
		created_at = EXCLUDED.created_at,
		updated_at = EXCLUDED.updated_at,
		payload = EXCLUDED.payload,
		fetched_at = EXCLUDED.fetched_at`
	for _, snapshot := range snapshots {
		row := snapshot
		row.Scope = scope
		if _, err = tx.NamedExecContext(ctx, upsert, &row); err != nil {
			return fmt.Errorf("upsert snapshot %d: %w", row.IssueID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	return nil
}

// ListScope returns the snapshots of scope, optionally restricted to statuses.
func (r *SnapshotRepository) ListScope(ctx context.Context, scope string, statuses []string) ([]models.IssueSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM issue_snapshots WHERE scope = $1`
	args := []interface{}{scope}
	if len(statuses) > 0 {
		query += ` AND LOWER(status) = ANY($2)`
		args = append(args, pq.Array(statuses))
	}
	query += ` ORDER BY created_at DESC, issue_id`

	var snapshots []models.IssueSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, fmt.Errorf("list snapshots for %s: %w", scope, err)
	}
	return snapshots, nil
}

// RemoveIssue drops an issue from every scope.
func (r *SnapshotRepository) RemoveIssue(ctx context.Context, issueID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM issue_snapshots WHERE issue_id = $1`, issueID); err != nil {
		return fmt.Errorf("remove snapshot %d: %w", issueID, err)
	}
	return nil
}

// LastFetched reports when scope was last refreshed; nil when never.
func (r *SnapshotRepository) LastFetched(ctx context.Context, scope string) (*time.Time, error) {
	var fetched pq.NullTime
	if err := r.db.GetContext(ctx, &fetched, `SELECT MAX(fetched_at) FROM issue_snapshots WHERE scope = $1`, scope); err != nil {
		return nil, fmt.Errorf("last fetch for %s: %w", scope, err)
	}
	if !fetched.Valid {
		return nil, nil
	}
	t := fetched.Time
	return &t, nil
}
