package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-haryana-gateway/internal/models"
)

func TestModerationRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewModerationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO moderation_actions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	reason := "duplicate of #12"
	action := &models.ModerationAction{
		IssueID:        14,
		Action:         models.ModerationDelete,
		ActorEmail:     "admin@haryana.gov.in",
		Reason:         &reason,
		PreviousStatus: models.IssueStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), action))
	assert.NotEmpty(t, action.ID)
	assert.False(t, action.CreatedAt.IsZero())

	rows := sqlmock.NewRows([]string{"id", "issue_id", "action", "actor_email", "actor_district", "reason", "previous_status", "resulting_status", "target_worker_id", "created_at"}).
		AddRow(action.ID, 14, "delete", "admin@haryana.gov.in", nil, reason, "pending", nil, nil, time.Now()).
		AddRow("older", 14, "reassign", "admin@haryana.gov.in", "Ambala", nil, "assigned", "assigned", 8, time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM moderation_actions WHERE issue_id = $1")).
		WithArgs(int64(14)).
		WillReturnRows(rows)

	actions, err := repo.ListByIssue(context.Background(), 14)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, models.ModerationDelete, actions[0].Action)
	require.NotNil(t, actions[1].TargetWorkerID)
	assert.Equal(t, int64(8), *actions[1].TargetWorkerID)
	assert.Nil(t, actions[0].ResultingStatus)
	require.NotNil(t, actions[1].ResultingStatus)
	assert.Equal(t, models.IssueStatusAssigned, *actions[1].ResultingStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}
