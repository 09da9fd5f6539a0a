package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postpilot/internal/models"
)

type PreferencesRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Preferences, error)
	Upsert(ctx context.Context, p *models.Preferences) error
}

type preferencesRepository struct {
	db *sql.DB
}

func NewPreferencesRepository(db *sql.DB) PreferencesRepository {
	return &preferencesRepository{db: db}
}

// GetByUserID falls back to the defaults for users who never saved any.
func (r *preferencesRepository) GetByUserID(ctx context.Context, userID int64) (*models.Preferences, error) {
	query := `SELECT user_id, language, theme, timezone, updated_at FROM preferences WHERE user_id = $1`

	var p models.Preferences
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.Language, &p.Theme, &p.Timezone, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DefaultPreferences(userID), nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &p, nil
}

func (r *preferencesRepository) Upsert(ctx context.Context, p *models.Preferences) error {
	query := `
		INSERT INTO preferences (user_id, language, theme, timezone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			language = EXCLUDED.language,
			theme = EXCLUDED.theme,
			timezone = EXCLUDED.timezone,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, p.UserID, p.Language, p.Theme, p.Timezone)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
