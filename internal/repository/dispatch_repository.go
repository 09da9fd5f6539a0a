package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publish"
)

// DispatchRepository is the Postgres publish.Store. Every write locks the post
// row first, which serializes claims, completions, unschedules and deletes of
// the same post.
type DispatchRepository struct {
	db *sql.DB
}

func NewDispatchRepository(db *sql.DB) *DispatchRepository {
	return &DispatchRepository{db: db}
}

func lockPost(ctx context.Context, tx *sql.Tx, postID int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 FOR UPDATE`
	post, err := scanPost(tx.QueryRowContext(ctx, query, postID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, publish.ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (r *DispatchRepository) ClaimForDispatch(ctx context.Context, postID int64, now time.Time) (*publish.Claim, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer tx.Rollback()

	post, err := lockPost(ctx, tx, postID)
	if err != nil {
		return nil, err
	}
	switch {
	case post.Dispatched():
		return nil, publish.ErrAlreadyTriggered
	case post.ScheduledAt == nil || post.ScheduledAt.After(now):
		return nil, publish.ErrNotDue
	}

	targets, err := listTargets(ctx, tx, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if len(targets) == 0 {
		return nil, publish.ErrNoTargets
	}
	for _, t := range targets {
		if t.Resolved() {
			return nil, publish.ErrAlreadyTriggered
		}
	}

	media, err := listMedia(ctx, tx, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	query := `UPDATE posts SET dispatch_started_at = $1, status = $2, updated_at = $1 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, now, models.PostStatusPublishing, postID); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	post.DispatchStartedAt = &now
	post.Status = models.PostStatusPublishing
	post.Targets = targets
	return &publish.Claim{Post: post, Targets: targets, Media: media}, nil
}

// CompleteTarget resolves one pending target and rewrites the post status from
// the committed target set in the same transaction.
func (r *DispatchRepository) CompleteTarget(ctx context.Context, c *publish.Completion) (models.PostStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer tx.Rollback()

	post, err := lockPost(ctx, tx, c.PostID)
	if err != nil {
		return "", err
	}
	if post.DispatchCycle != c.Cycle || !post.Dispatched() {
		return "", publish.ErrStaleDispatch
	}

	out := c.Outcome
	query := `
		UPDATE targets
		SET status = $1,
			failure_kind = $2,
			failure_reason = $3,
			remote_post_id = $4,
			resolved_at = $5
		WHERE id = $6 AND post_id = $7 AND status = 'pending'
	`
	result, err := tx.ExecContext(ctx, query, out.Status, out.FailureKind, out.Reason, out.RemotePostID, c.At, out.TargetID, c.PostID)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if affected == 0 {
		return "", publish.ErrTargetResolved
	}

	targets, err := listTargets(ctx, tx, c.PostID)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	status := publish.Resolve(publish.StateOf(post, targets))

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET status = $1, updated_at = $2 WHERE id = $3`, status, c.At, c.PostID); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return status, nil
}
