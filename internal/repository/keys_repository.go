package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/postpilot/internal/models"
)

type ApiKeyRepository interface {
	GetUserID(ctx context.Context, key string) (int64, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	CountByUserID(ctx context.Context, userID int64) (int, error)
	Create(ctx context.Context, key *models.ApiKey) error
	DeleteForUser(ctx context.Context, userID, keyID int64) error
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

// GetUserID resolves the owner of an API key, or ErrNotFound.
func (r *apiKeyRepository) GetUserID(ctx context.Context, key string) (int64, error) {
	var userID int64
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM api_keys WHERE api_key = $1`, key).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return userID, nil
}

func (r *apiKeyRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, api_key, created_at FROM api_keys WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var keys []*models.ApiKey
	for rows.Next() {
		var k models.ApiKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Key, &k.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (r *apiKeyRepository) CountByUserID(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys WHERE user_id = $1`, userID).Scan(&n); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

// Create stores key and fills in its id and creation time.
func (r *apiKeyRepository) Create(ctx context.Context, key *models.ApiKey) error {
	query := `INSERT INTO api_keys (user_id, api_key) VALUES ($1, $2) RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, query, key.UserID, key.Key).Scan(&key.ID, &key.CreatedAt); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// DeleteForUser removes a key owned by userID. Keys of other users are
// reported as ErrNotFound.
func (r *apiKeyRepository) DeleteForUser(ctx context.Context, userID, keyID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
