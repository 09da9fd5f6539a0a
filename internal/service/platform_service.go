package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/platform"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/pkg/utils"
	"golang.org/x/oauth2"
)

// OAuthFlow is the platform side of connecting and disconnecting accounts.
type OAuthFlow interface {
	AuthCodeURL(p models.Platform, state string) (string, error)
	Exchange(ctx context.Context, p models.Platform, code string) (*oauth2.Token, error)
	Revoke(ctx context.Context, p models.Platform, token string) error
}

// ProfileSource resolves the adapter used to read the connected profile.
type ProfileSource interface {
	Adapter(p models.Platform) (platform.Adapter, error)
}

// page tokens never expire
const pageTokenLifetime = 50 * 365 * 24 * time.Hour

type PlatformService interface {
	AuthURL(ctx context.Context, userID int64, platform string) (string, error)
	Callback(ctx context.Context, platform, state, code string) (*models.SocialAccount, error)
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	secretKey string
	oauth     OAuthFlow
	profiles  ProfileSource
	sa        repository.SocialAccountRepository
	cipher    *utils.TokenCipher
}

func NewPlatformService(secretKey string, oauth OAuthFlow, profiles ProfileSource, sa repository.SocialAccountRepository, cipher *utils.TokenCipher) PlatformService {
	return &platformService{
		secretKey: secretKey,
		oauth:     oauth,
		profiles:  profiles,
		sa:        sa,
		cipher:    cipher,
	}
}

func (s *platformService) AuthURL(ctx context.Context, userID int64, name string) (string, error) {
	p, err := models.ParsePlatform(name)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("%w: %v", ErrParamInvalid, err)
	}

	state, err := utils.GenerateStateToken(s.secretKey, strconv.FormatInt(userID, 10), p.String(), stateTTL)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(p, state)
}

// Callback completes a connect flow. Reconnecting an account already linked
// to the user refreshes its stored credentials.
func (s *platformService) Callback(ctx context.Context, name, state, code string) (*models.SocialAccount, error) {
	p, err := models.ParsePlatform(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParamInvalid, err)
	}

	claims, err := utils.ValidateToken(s.secretKey, state)
	if err != nil || claims.Platform != p.String() {
		slog.Info(ErrInvalidState.Error(), "platform", p)
		return nil, ErrInvalidState
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID == 0 {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, fmt.Errorf("%w: code is empty", ErrParamInvalid)
	}

	token, err := s.oauth.Exchange(ctx, p, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error exchanging code: %w", err)
	}

	adapter, err := s.profiles.Adapter(p)
	if err != nil {
		return nil, err
	}
	profile, err := adapter.Profile(ctx, token.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error reading profile: %w", err)
	}

	accessToken, expiresAt := token.AccessToken, token.Expiry
	if profile.AccessToken != "" {
		accessToken = profile.AccessToken
		expiresAt = time.Now().Add(pageTokenLifetime)
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(longLivedToken)
	}

	encAccess, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return nil, err
	}
	encRefresh, err := s.cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return nil, err
	}

	sa := &models.SocialAccount{
		UserID:          userID,
		Platform:        p,
		AccountID:       profile.AccountID,
		AccountName:     profile.Name,
		AccountUsername: profile.Username,
		ProfilePicture:  profile.Picture,
		AccessToken:     encAccess,
		RefreshToken:    encRefresh,
		TokenExpiresAt:  expiresAt,
		AccountStatus:   models.AccountConnected,
	}
	sa.ID, err = s.sa.Create(ctx, nil, sa)
	if err != nil {
		return nil, fmt.Errorf("error saving social account: %w", err)
	}
	return sa, nil
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		slog.Info(ErrParamInvalid.Error())
		return nil, ErrParamInvalid
	}

	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts: %w", err)
	}
	return accounts, nil
}

// Delete disconnects an account. Revocation is best effort; the account is
// removed even when the platform refuses it.
func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	if userID == 0 || accountID == 0 {
		slog.Info(ErrParamInvalid.Error(), "user_id", userID, "account_id", accountID)
		return ErrParamInvalid
	}

	ok, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}

	acc, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acc == nil {
		return ErrAccountNotFound
	}

	if token, err := s.cipher.Decrypt(acc.AccessToken); err != nil {
		slog.Info(err.Error(), "account_id", accountID)
	} else if err := s.oauth.Revoke(ctx, acc.Platform, token); err != nil {
		slog.Info(err.Error(), "account_id", accountID, "platform", acc.Platform)
	}

	if err := s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("error removing social account: %w", err)
	}
	return nil
}
