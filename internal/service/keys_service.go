package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

const maxApiKeys = 5

type ApiKeyService interface {
	Create(ctx context.Context, userID int64) (*models.ApiKey, error)
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, userID int64) (*models.ApiKey, error) {
	n, err := s.k.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if n >= maxApiKeys {
		slog.Info(ErrKeyLimit.Error(), "user_id", userID)
		return nil, ErrKeyLimit
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error generating API key: %w", err)
	}

	apiKey := &models.ApiKey{
		UserID: userID,
		Key:    key,
	}
	if err := s.k.Create(ctx, apiKey); err != nil {
		return nil, fmt.Errorf("error saving API key: %w", err)
	}
	return apiKey, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, err := s.k.GetUserID(ctx, apiKey)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrKeyNotFound
	}
	return userID, err
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting API keys: %w", err)
	}

	// the full key is only shown once, on creation
	redacted := make([]*models.ApiKey, len(apiKeys))
	for i, k := range apiKeys {
		redacted[i] = k.Redacted()
	}
	return redacted, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	if userID == 0 || keyID == 0 {
		slog.Info(ErrParamInvalid.Error(), "user_id", userID, "key_id", keyID)
		return ErrParamInvalid
	}

	err := s.k.DeleteForUser(ctx, userID, keyID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrKeyNotFound
	}
	return err
}
