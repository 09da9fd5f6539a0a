package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

type UserService interface {
	GetUserInfo(ctx context.Context, id int64) (*models.User, error)
	Preferences(ctx context.Context, userID int64) (*models.Preferences, error)
	UpdatePreferences(ctx context.Context, userID int64, req *transfer.PreferencesRequest) (*models.Preferences, error)
}

type userService struct {
	u repository.UserRepository
	p repository.PreferencesRepository
}

func NewUserService(u repository.UserRepository, p repository.PreferencesRepository) UserService {
	return &userService{
		u: u,
		p: p,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.u.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		slog.Info(ErrUserNotFound.Error(), "user_id", id)
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user info: %w", err)
	}
	return user, nil
}

func (s *userService) Preferences(ctx context.Context, userID int64) (*models.Preferences, error) {
	return s.p.GetByUserID(ctx, userID)
}

func (s *userService) UpdatePreferences(ctx context.Context, userID int64, req *transfer.PreferencesRequest) (*models.Preferences, error) {
	if err := utils.ValidateDTO(req); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	prefs := &models.Preferences{
		UserID:   userID,
		Language: req.Language,
		Theme:    req.Theme,
		Timezone: req.Timezone,
	}
	if err := s.p.Upsert(ctx, prefs); err != nil {
		return nil, err
	}
	return s.p.GetByUserID(ctx, userID)
}
