package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postpilot/internal/models"
)

type TargetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *models.Target) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.Target, error)
}

const targetColumns = `id, post_id, COALESCE(account_id, 0), platform, position, status, failure_kind, failure_reason, remote_post_id, resolved_at, created_at`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanTarget(row rowScanner) (*models.Target, error) {
	var t models.Target
	var resolvedAt sql.NullTime
	err := row.Scan(&t.ID, &t.PostID, &t.AccountID, &t.Platform, &t.Position, &t.Status,
		&t.FailureKind, &t.FailureReason, &t.RemotePostID, &resolvedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t.ResolvedAt = &resolvedAt.Time
	}
	return &t, nil
}

// listTargets loads targets in insertion order through a db or a tx.
func listTargets(ctx context.Context, q querier, postID int64) ([]*models.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets WHERE post_id = $1 ORDER BY position`

	rows, err := q.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var targets []*models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		targets = append(targets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return targets, nil
}

type targetRepository struct {
	db *sql.DB
}

func NewTargetRepository(db *sql.DB) TargetRepository {
	return &targetRepository{db: db}
}

func (r *targetRepository) Create(ctx context.Context, tx *sql.Tx, t *models.Target) (int64, error) {
	var id int64
	var err error

	query := `
		INSERT INTO targets (post_id, account_id, platform, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, t.PostID, t.AccountID, t.Platform, t.Position).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, t.PostID, t.AccountID, t.Platform, t.Position).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *targetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.Target, error) {
	targets, err := listTargets(ctx, r.db, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return targets, nil
}
