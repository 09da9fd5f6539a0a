package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]int64, error)
	Update(ctx context.Context, post *models.Post) error
	Unschedule(ctx context.Context, id int64) error
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

const postColumns = `id, user_id, post_type, title, content, scheduled_at, dispatch_started_at, dispatch_cycle, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var scheduledAt, startedAt sql.NullTime
	err := row.Scan(&post.ID, &post.UserID, &post.PostType, &post.Title, &post.Content,
		&scheduledAt, &startedAt, &post.DispatchCycle, &post.Status, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		post.ScheduledAt = &scheduledAt.Time
	}
	if startedAt.Valid {
		post.DispatchStartedAt = &startedAt.Time
	}
	return &post, nil
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, post_type, title, content, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.PostType, post.Title, post.Content, post.ScheduledAt, post.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.PostType, post.Title, post.Content, post.ScheduledAt, post.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY COALESCE(scheduled_at, created_at) DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

// ListDue returns posts whose schedule has elapsed but whose dispatch never
// started, oldest first.
func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM posts
		WHERE scheduled_at <= $1 AND dispatch_started_at IS NULL
		ORDER BY scheduled_at
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update rewrites the editable fields of a post that has not been dispatched.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET title = $1,
			content = $2,
			scheduled_at = $3,
			status = $4,
			updated_at = $5
		WHERE id = $6 AND dispatch_started_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, post.Title, post.Content, post.ScheduledAt, post.Status, time.Now(), post.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return ErrPostDispatched
	}
	return nil
}

// Unschedule moves a post back to draft and starts a new dispatch cycle, so
// outcomes of a dispatch still in flight are discarded. It is refused once any
// target has resolved.
func (r *postRepository) Unschedule(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		slog.Info(err.Error())
		return err
	}

	var resolved int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM targets WHERE post_id = $1 AND status <> 'pending'`, id).Scan(&resolved)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if resolved > 0 {
		return ErrPostDispatched
	}

	query := `
		UPDATE posts
		SET scheduled_at = NULL,
			dispatch_started_at = NULL,
			dispatch_cycle = dispatch_cycle + 1,
			status = $1,
			updated_at = $2
		WHERE id = $3
	`
	if _, err = tx.ExecContext(ctx, query, models.PostStatusDraft, time.Now(), id); err != nil {
		slog.Info(err.Error())
		return err
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
