package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	postCols   = []string{"id", "user_id", "post_type", "title", "content", "scheduled_at", "dispatch_started_at", "dispatch_cycle", "status", "created_at", "updated_at"}
	targetCols = []string{"id", "post_id", "account_id", "platform", "position", "status", "failure_kind", "failure_reason", "remote_post_id", "resolved_at", "created_at"}
	mediaCols  = []string{"id", "user_id", "file_name", "file_type", "file_size", "file_url", "thumbnail_url", "created_at"}
)

const (
	lockPostQuery    = `SELECT (.+) FROM posts WHERE id = \$1 FOR UPDATE`
	listTargetsQuery = `SELECT (.+) FROM targets WHERE post_id = \$1 ORDER BY position`
	listMediaQuery   = `SELECT (.+) FROM post_media pm JOIN media_assets ma`
)

func newMockRepo(t *testing.T) (*DispatchRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDispatchRepository(db), mock
}

func postRow(id int64, scheduledAt, startedAt any, cycle int, status models.PostStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(postCols).
		AddRow(id, int64(1), models.PostTypeText, "title", "content", scheduledAt, startedAt, cycle, string(status), now, now)
}

func TestClaimForDispatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	due := now.Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPostQuery).WithArgs(int64(5)).
		WillReturnRows(postRow(5, due, nil, 0, models.PostStatusScheduled))
	mock.ExpectQuery(listTargetsQuery).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(targetCols).
			AddRow(int64(50), int64(5), int64(2), "facebook", 0, "pending", "", "", "", nil, now).
			AddRow(int64(51), int64(5), int64(3), "linkedin", 1, "pending", "", "", "", nil, now))
	mock.ExpectQuery(listMediaQuery).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(mediaCols).
			AddRow(int64(9), int64(1), "a.png", "image/png", int64(100), "https://cdn/a.png", "", now))
	mock.ExpectExec(`UPDATE posts SET dispatch_started_at = \$1, status = \$2`).
		WithArgs(now, models.PostStatusPublishing, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claim, err := repo.ClaimForDispatch(context.Background(), 5, now)
	require.NoError(t, err)

	assert.True(t, claim.Post.Dispatched())
	assert.Len(t, claim.Targets, 2)
	assert.Equal(t, models.PlatformLinkedin, claim.Targets[1].Platform)
	assert.Len(t, claim.Media, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimForDispatchRejections(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	started := now.Add(-time.Second)

	tests := []struct {
		name string
		rows *sqlmock.Rows
		want error
	}{
		{"missing", sqlmock.NewRows(postCols), publish.ErrPostNotFound},
		{"not due", postRow(5, future, nil, 0, models.PostStatusScheduled), publish.ErrNotDue},
		{"draft", postRow(5, nil, nil, 0, models.PostStatusDraft), publish.ErrNotDue},
		{"already started", postRow(5, now, started, 0, models.PostStatusPublishing), publish.ErrAlreadyTriggered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectBegin()
			mock.ExpectQuery(lockPostQuery).WithArgs(int64(5)).WillReturnRows(tt.rows)
			mock.ExpectRollback()

			_, err := repo.ClaimForDispatch(context.Background(), 5, now)
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClaimForDispatchWithoutTargets(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(lockPostQuery).WithArgs(int64(5)).
		WillReturnRows(postRow(5, now, nil, 0, models.PostStatusScheduled))
	mock.ExpectQuery(listTargetsQuery).WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(targetCols))
	mock.ExpectRollback()

	_, err := repo.ClaimForDispatch(context.Background(), 5, now)
	assert.ErrorIs(t, err, publish.ErrNoTargets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTarget(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(lockPostQuery).WithArgs(int64(5)).
		WillReturnRows(postRow(5, now, now, 2, models.PostStatusPublishing))
	mock.ExpectExec(`UPDATE targets SET (.+) WHERE id = \$6 AND post_id = \$7 AND status = 'pending'`).
		WithArgs(models.TargetFailed, models.FailureTimeout, "publish timed out", "", now, int64(50), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(listTargetsQuery).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(targetCols).
			AddRow(int64(50), int64(5), int64(2), "facebook", 0, "failed", "timeout", "publish timed out", "", now, now).
			AddRow(int64(51), int64(5), int64(3), "linkedin", 1, "success", "", "", "urn:li:share:1", now, now))
	mock.ExpectExec(`UPDATE posts SET status = \$1`).
		WithArgs(models.PostStatusPartiallyPublished, now, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status, err := repo.CompleteTarget(context.Background(), &publish.Completion{
		PostID: 5,
		Cycle:  2,
		At:     now,
		Outcome: publish.Outcome{
			TargetID:    50,
			Status:      models.TargetFailed,
			FailureKind: models.FailureTimeout,
			Reason:      "publish timed out",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPartiallyPublished, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTargetStaleCycle(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(lockPostQuery).WithArgs(int64(5)).
		WillReturnRows(postRow(5, nil, nil, 3, models.PostStatusDraft))
	mock.ExpectRollback()

	_, err := repo.CompleteTarget(context.Background(), &publish.Completion{
		PostID:  5,
		Cycle:   2,
		At:      now,
		Outcome: publish.Outcome{TargetID: 50, Status: models.TargetSuccess},
	})
	assert.ErrorIs(t, err, publish.ErrStaleDispatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTargetAlreadyResolved(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(lockPostQuery).WithArgs(int64(5)).
		WillReturnRows(postRow(5, now, now, 0, models.PostStatusPublishing))
	mock.ExpectExec(`UPDATE targets SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.CompleteTarget(context.Background(), &publish.Completion{
		PostID:  5,
		At:      now,
		Outcome: publish.Outcome{TargetID: 50, Status: models.TargetSuccess, RemotePostID: "1"},
	})
	assert.ErrorIs(t, err, publish.ErrTargetResolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
